package models

import (
	"errors"
	"math"
	"time"
)

// GrowthEvent represents a detected week-over-week CCU increase for one
// universe. Events are derived fresh on every detector pass and never stored
// on their own; the spike ledger records the aggregated SpikeCandidate instead.
type GrowthEvent struct {
	EntityID         int64     `json:"entity_id"`
	DisplayName      string    `json:"display_name"`
	CurrentCCU       int64     `json:"current_ccu"`
	WeekAgoCCU       int64     `json:"week_ago_ccu"`
	GrowthPercent    float64   `json:"growth_percent"` // rounded to one decimal
	GrowthRate       float64   `json:"growth_rate"`    // unrounded, for ranking
	PeakCCU          int64     `json:"peak_ccu"`
	CurrentTimestamp time.Time `json:"current_timestamp"`
}

// Validate checks that all growth event fields are valid.
func (g *GrowthEvent) Validate() error {
	if g.EntityID <= 0 {
		return errors.New("universe ID must be positive")
	}
	if g.DisplayName == "" {
		return errors.New("display name must not be empty")
	}
	if g.CurrentCCU < 0 {
		return errors.New("current ccu must not be negative")
	}
	if g.WeekAgoCCU <= 0 {
		return errors.New("week-ago ccu must be positive")
	}
	if g.PeakCCU < g.CurrentCCU {
		return errors.New("peak ccu must be >= current ccu")
	}

	// Verify the rounded percentage and raw rate agree with the CCU fields
	expectedRate := float64(g.CurrentCCU-g.WeekAgoCCU) / float64(g.WeekAgoCCU)
	if math.Abs(g.GrowthRate-expectedRate) > 1e-9 {
		return errors.New("growth rate must equal (current - week_ago) / week_ago")
	}
	expectedPercent := math.Round(expectedRate*1000) / 10
	if math.Abs(g.GrowthPercent-expectedPercent) > 0.05 {
		return errors.New("growth percent must equal the rate expressed as a rounded percentage")
	}

	if g.CurrentTimestamp.IsZero() {
		return errors.New("current timestamp must be set")
	}
	return nil
}
