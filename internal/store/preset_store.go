// Package store persists named filter presets in a single JSON document.
// The database user is read-only, so preferences live beside the process in
// a file keyed by user ID. Write volume is low enough that whole-document
// read-modify-write under one mutex is sufficient.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dfwgrid/parcelsearch/api/internal/logger"
	"github.com/dfwgrid/parcelsearch/api/internal/models"
	"github.com/google/uuid"
)

// PresetStore defines the interface for preset persistence operations.
// Presets are partitioned by user ID; a user only ever sees their own.
type PresetStore interface {
	// List returns the user's presets in insertion order, or an empty slice.
	List(userID string) []models.Preset

	// Get returns a preset by ID. Returns nil if not found (not an error).
	Get(userID, presetID string) *models.Preset

	// GetDefault returns the user's default preset, or nil if none is set.
	// If more than one is somehow marked default, the first in list order wins.
	GetDefault(userID string) *models.Preset

	// Create generates a fresh preset with server-side ID and timestamps.
	// When isDefault is set, all other defaults of the user are cleared in
	// the same critical section.
	Create(userID, name string, filters models.FilterSpec, isDefault bool) (*models.Preset, error)

	// Update applies only the fields present in the patch and refreshes the
	// updated timestamp. Returns nil, nil if the preset does not exist.
	Update(userID, presetID string, patch models.PresetPatch) (*models.Preset, error)

	// Delete removes a preset by ID and reports whether one was removed.
	Delete(userID, presetID string) (bool, error)
}

// FilePresetStore is the JSON-file-backed implementation of PresetStore.
// Every operation holds the mutex across the full load-mutate-persist cycle
// so two concurrent writers cannot silently drop each other's changes.
type FilePresetStore struct {
	path string
	log  *logger.Logger
	mu   sync.Mutex
}

// NewFilePresetStore creates a store persisting to the given file path.
// The file and its directory are created lazily on first write.
func NewFilePresetStore(path string, log *logger.Logger) *FilePresetStore {
	return &FilePresetStore{
		path: path,
		log:  log,
	}
}

// List returns all presets for a user, or an empty slice if none exist.
func (s *FilePresetStore) List(userID string) []models.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets := s.load()[userID]
	if presets == nil {
		presets = []models.Preset{}
	}
	return presets
}

// Get returns a specific preset by ID, or nil if not found.
func (s *FilePresetStore) Get(userID, presetID string) *models.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load()[userID] {
		if p.ID == presetID {
			preset := p
			return &preset
		}
	}
	return nil
}

// GetDefault returns the first preset marked as default, or nil.
func (s *FilePresetStore) GetDefault(userID string) *models.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.load()[userID] {
		if p.IsDefault {
			preset := p
			return &preset
		}
	}
	return nil
}

// Create appends a new preset with a generated ID and timestamps.
func (s *FilePresetStore) Create(userID, name string, filters models.FilterSpec, isDefault bool) (*models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()

	now := time.Now().UTC()
	preset := models.Preset{
		ID:        uuid.New().String(),
		Name:      name,
		Filters:   filters,
		IsDefault: isDefault,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// A new default displaces any existing one.
	if isDefault {
		clearDefaults(all[userID])
	}

	all[userID] = append(all[userID], preset)

	if err := s.save(all); err != nil {
		return nil, err
	}

	s.log.Info("Created preset", map[string]interface{}{
		"preset_id": preset.ID,
		"user_id":   userID,
	})
	return &preset, nil
}

// Update applies the patch to an existing preset. Nil patch fields are left
// untouched. Returns nil, nil when the preset does not exist.
func (s *FilePresetStore) Update(userID, presetID string, patch models.PresetPatch) (*models.Preset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	presets := all[userID]

	for i := range presets {
		if presets[i].ID != presetID {
			continue
		}

		if patch.Name != nil {
			presets[i].Name = *patch.Name
		}
		if patch.Filters != nil {
			presets[i].Filters = *patch.Filters
		}
		if patch.IsDefault != nil {
			// Promoting to default displaces any existing one.
			if *patch.IsDefault {
				clearDefaults(presets)
			}
			presets[i].IsDefault = *patch.IsDefault
		}
		presets[i].UpdatedAt = time.Now().UTC()

		if err := s.save(all); err != nil {
			return nil, err
		}

		s.log.Info("Updated preset", map[string]interface{}{
			"preset_id": presetID,
			"user_id":   userID,
		})
		preset := presets[i]
		return &preset, nil
	}

	return nil, nil
}

// Delete removes a preset by ID. Returns false when nothing was removed.
func (s *FilePresetStore) Delete(userID, presetID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.load()
	presets := all[userID]

	remaining := presets[:0:0]
	for _, p := range presets {
		if p.ID != presetID {
			remaining = append(remaining, p)
		}
	}

	if len(remaining) == len(presets) {
		return false, nil
	}

	all[userID] = remaining
	if err := s.save(all); err != nil {
		return false, err
	}

	s.log.Info("Deleted preset", map[string]interface{}{
		"preset_id": presetID,
		"user_id":   userID,
	})
	return true, nil
}

// load reads the whole preset document. A missing file is an empty store;
// an unreadable or corrupt file is logged and also treated as empty rather
// than failing every preference operation.
func (s *FilePresetStore) load() map[string][]models.Preset {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("Failed to read preset file, treating as empty", map[string]interface{}{
				"path":  s.path,
				"error": err.Error(),
			})
		}
		return map[string][]models.Preset{}
	}

	var all map[string][]models.Preset
	if err := json.Unmarshal(data, &all); err != nil {
		s.log.Warn("Corrupt preset file, treating as empty", map[string]interface{}{
			"path":  s.path,
			"error": err.Error(),
		})
		return map[string][]models.Preset{}
	}

	if all == nil {
		all = map[string][]models.Preset{}
	}
	return all
}

// save writes the whole preset document back to disk.
func (s *FilePresetStore) save(all map[string][]models.Preset) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preset directory: %w", err)
	}

	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode presets: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preset file: %w", err)
	}
	return nil
}

// clearDefaults unsets the default flag on every preset in the slice.
func clearDefaults(presets []models.Preset) {
	for i := range presets {
		presets[i].IsDefault = false
	}
}
