// Package models defines the core domain entities for the early-shift application.
// These models represent CCU snapshots, creator videos, detected growth events,
// and the spike candidates handed to notification sinks.
// All models include built-in validation to ensure data integrity throughout the application.
//
// Terminology (matching Roblox's own naming):
//   - Universe: a Roblox game, which groups one or more places. This is the unit we track.
//   - CCU: concurrent user count, the point-in-time "playing" gauge reported by the games API.
package models

import (
	"errors"
	"time"
)

// Snapshot represents one CCU observation for one universe at one instant.
// Snapshots are append-only: the collector writes them once and nothing
// downstream ever mutates them.
type Snapshot struct {
	EntityID  int64     `json:"entity_id"` // Roblox universe ID
	Name      string    `json:"name"`      // Name reported by the games API at poll time
	CCU       int64     `json:"ccu"`
	Timestamp time.Time `json:"timestamp"`
}

// Validate checks that all snapshot fields are valid
func (s *Snapshot) Validate() error {
	if s.EntityID <= 0 {
		return errors.New("universe ID must be positive")
	}
	if s.Name == "" {
		return errors.New("name must not be empty")
	}
	if s.CCU < 0 {
		return errors.New("ccu must not be negative")
	}
	if s.Timestamp.IsZero() {
		return errors.New("timestamp must be set")
	}
	if s.Timestamp.After(time.Now()) {
		return errors.New("timestamp must not be in the future")
	}
	return nil
}

// GameMeta holds the slower-moving universe metadata kept alongside snapshots.
// The detector only uses Name (preferred over the snapshot name when present);
// the remaining fields exist for the report and API surfaces.
type GameMeta struct {
	EntityID    int64     `json:"entity_id"`
	Name        string    `json:"name"`
	RootPlaceID int64     `json:"root_place_id,omitempty"`
	CreatorID   int64     `json:"creator_id,omitempty"`
	CreatorName string    `json:"creator_name,omitempty"`
	Description string    `json:"description,omitempty"`
	Genre       string    `json:"genre,omitempty"`
	Visits      int64     `json:"visits"`
	LastSeenCCU int64     `json:"last_seen_ccu"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Validate checks that all metadata fields are valid
func (g *GameMeta) Validate() error {
	if g.EntityID <= 0 {
		return errors.New("universe ID must be positive")
	}
	if g.Name == "" {
		return errors.New("name must not be empty")
	}
	if g.Visits < 0 {
		return errors.New("visits must not be negative")
	}
	if g.LastSeenCCU < 0 {
		return errors.New("last seen ccu must not be negative")
	}
	if g.UpdatedAt.IsZero() {
		return errors.New("updated at must be set")
	}
	return nil
}
