package middleware

import (
	"net/http"
	"strings"

	"github.com/dfwgrid/parcelsearch/api/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	// UserIDKey is the context key for the verified user ID.
	UserIDKey = "user_id"
	// AccessLevelKey is the context key for the resolved access level.
	AccessLevelKey = "access_level"
)

// OptionalAuth resolves the caller's identity when a valid bearer token is
// present. Missing, malformed, or invalid tokens all collapse to guest
// access; the request is never rejected here.
func OptionalAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""

		if token := bearerToken(c); token != "" {
			id, err := verifier.Verify(c.Request.Context(), token)
			if err == nil {
				userID = id
			} else if log := GetLogger(c); log != nil {
				log.Debug("Treating request as guest", map[string]interface{}{
					"reason": err.Error(),
					"path":   c.Request.URL.Path,
				})
			}
		}

		c.Set(UserIDKey, userID)
		c.Set(AccessLevelKey, auth.LevelFor(userID))

		c.Next()
	}
}

// RequireAuth rejects requests without a valid bearer token. A missing
// credential and an invalid one produce distinct codes, but both end in 401.
func RequireAuth(verifier auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, "AUTHENTICATION_REQUIRED", "Authentication required")
			return
		}

		userID, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			if log := GetLogger(c); log != nil {
				log.Warn("Rejected invalid credential", map[string]interface{}{
					"reason": err.Error(),
					"path":   c.Request.URL.Path,
				})
			}
			abortUnauthorized(c, "AUTHENTICATION_FAILED", "Invalid or expired token")
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(AccessLevelKey, auth.AccessRegistered)

		c.Next()
	}
}

// GetUserID retrieves the verified user ID from the Gin context.
// Returns an empty string for guests or when no auth middleware ran.
func GetUserID(c *gin.Context) string {
	if v, exists := c.Get(UserIDKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// GetAccessLevel retrieves the resolved access level from the Gin context.
// Returns AccessGuest when no auth middleware ran.
func GetAccessLevel(c *gin.Context) auth.AccessLevel {
	if v, exists := c.Get(AccessLevelKey); exists {
		if level, ok := v.(auth.AccessLevel); ok {
			return level
		}
	}
	return auth.AccessGuest
}

// bearerToken extracts the token from the Authorization header.
// Returns an empty string for absent or non-Bearer headers.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

// abortUnauthorized writes the standard error envelope with a 401 status.
func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": gin.H{
			"code":       code,
			"message":    message,
			"request_id": GetRequestID(c),
		},
	})
}
