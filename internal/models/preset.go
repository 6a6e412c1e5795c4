package models

import "time"

// Preset is a named, persisted filter specification owned by one user.
// At most one preset per user may have IsDefault set; the store enforces
// this by clearing other defaults whenever one is promoted.
type Preset struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Filters   FilterSpec `json:"filters"`
	IsDefault bool       `json:"isDefault"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// PresetPatch carries the optional fields of a partial preset update.
// Nil fields are left untouched, which keeps the mutation contract explicit
// instead of merging a shapeless map.
type PresetPatch struct {
	Name      *string     `json:"name,omitempty" binding:"omitempty,min=1,max=100"`
	Filters   *FilterSpec `json:"filters,omitempty"`
	IsDefault *bool       `json:"isDefault,omitempty"`
}
