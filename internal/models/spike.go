package models

import (
	"errors"
	"time"
	"unicode/utf8"
)

// MaxMechanicPhraseLen bounds the extracted mechanic phrase, in runes.
const MaxMechanicPhraseLen = 120

// SpikeState describes where a universe sits in the alert cycle. The state is
// derived from current growth and ledger recency, never stored: QUIET →
// GROWING → ALERTED → COOLDOWN → QUIET, re-entered indefinitely while
// monitoring continues.
type SpikeState string

const (
	StateQuiet    SpikeState = "quiet"
	StateGrowing  SpikeState = "growing"
	StateAlerted  SpikeState = "alerted"
	StateCooldown SpikeState = "cooldown"
)

// SpikeCandidate is the detector's output unit: a growth event combined with
// its best corroborating video (if any) and an extracted mechanic phrase.
// Candidates are appended to the spike ledger before delivery so a repeat
// spike inside the cooldown window is never re-alerted.
type SpikeCandidate struct {
	ID               string    `json:"id"`
	EntityID         int64     `json:"entity_id"`
	DisplayName      string    `json:"display_name"`
	GrowthPercent    float64   `json:"growth_percent"`
	GrowthRate       float64   `json:"growth_rate"`
	CurrentCCU       int64     `json:"current_ccu"`
	WeekAgoCCU       int64     `json:"week_ago_ccu"`
	PeakCCU          int64     `json:"peak_ccu"`
	MechanicPhrase   string    `json:"mechanic_phrase,omitempty"`
	VideoID          string    `json:"video_id,omitempty"`
	VideoTitle       string    `json:"video_title,omitempty"`
	VideoURL         string    `json:"video_url,omitempty"`
	ChannelTitle     string    `json:"channel_title,omitempty"`
	VideoPublishedAt time.Time `json:"video_published_at,omitzero"`
	MatchConfidence  float64   `json:"match_confidence"`
	DetectedAt       time.Time `json:"detected_at"`
}

// HasVideo reports whether the candidate is backed by a correlated video
// rather than growth alone.
func (c *SpikeCandidate) HasVideo() bool {
	return c.VideoID != ""
}

// Validate checks that all spike candidate fields are valid.
func (c *SpikeCandidate) Validate() error {
	if c.ID == "" {
		return errors.New("spike ID must not be empty")
	}
	if c.EntityID <= 0 {
		return errors.New("universe ID must be positive")
	}
	if c.DisplayName == "" {
		return errors.New("display name must not be empty")
	}
	if c.CurrentCCU < 0 {
		return errors.New("current ccu must not be negative")
	}
	if c.WeekAgoCCU <= 0 {
		return errors.New("week-ago ccu must be positive")
	}
	if c.PeakCCU < c.CurrentCCU {
		return errors.New("peak ccu must be >= current ccu")
	}
	if c.MatchConfidence < 0.0 || c.MatchConfidence > 1.0 {
		return errors.New("match confidence must be between 0.0 and 1.0")
	}
	if utf8.RuneCountInString(c.MechanicPhrase) > MaxMechanicPhraseLen {
		return errors.New("mechanic phrase exceeds the length bound")
	}
	if c.DetectedAt.IsZero() {
		return errors.New("detected at must be set")
	}
	if c.DetectedAt.After(time.Now()) {
		return errors.New("detected at must not be in the future")
	}

	// Video fields travel together: all set for a correlated candidate,
	// all empty for a growth-only one.
	if c.HasVideo() {
		if c.VideoURL == "" {
			return errors.New("video URL must be set when a video ID is present")
		}
		if c.VideoPublishedAt.IsZero() {
			return errors.New("video published at must be set when a video ID is present")
		}
		if c.VideoPublishedAt.After(c.DetectedAt) {
			return errors.New("video published at must not be after detected at")
		}
	} else {
		if c.VideoTitle != "" || c.VideoURL != "" || c.ChannelTitle != "" || !c.VideoPublishedAt.IsZero() {
			return errors.New("video fields must be empty for a growth-only candidate")
		}
		if c.MechanicPhrase != "" {
			return errors.New("mechanic phrase requires a source video")
		}
	}
	return nil
}
