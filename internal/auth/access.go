package auth

// AccessLevel classifies a request's visibility tier.
type AccessLevel string

const (
	// AccessGuest is the default tier when no verified user is present.
	// Guests only ever see Dallas County rows.
	AccessGuest AccessLevel = "guest"
	// AccessRegistered is the tier for callers with a verified identity.
	AccessRegistered AccessLevel = "registered"
)

// LevelFor maps an optional user ID onto an access level.
// An empty user ID means the caller is a guest.
func LevelFor(userID string) AccessLevel {
	if userID == "" {
		return AccessGuest
	}
	return AccessRegistered
}
