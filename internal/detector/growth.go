// Package detector implements growth detection, video correlation, and spike
// aggregation over the collected snapshot history.
//
// Growth is measured week-over-week per universe:
//
//	growth_percent = round((current_ccu - week_ago_ccu) × 100 / week_ago_ccu, 1)
//
// The current reading is the universe's latest snapshot; the baseline is its
// most recent snapshot at least one trailing window old. Universes with no
// usable baseline (a data gap, or a baseline of zero players) are excluded
// rather than reported, since neither yields a meaningful ratio.
//
// Qualifying growth events are then correlated against creator videos by
// fuzzy title similarity, a mechanic phrase is extracted from the matched
// video's text, and the combined SpikeCandidate passes through a ledger-backed
// cooldown before it reaches any notification sink.
package detector

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
)

// EntityError records a per-universe failure during a detection pass.
// Failures never abort the pass; the remaining universes proceed.
type EntityError struct {
	EntityID int64
	Err      error
}

func (e EntityError) Error() string {
	return fmt.Sprintf("universe %d: %v", e.EntityID, e.Err)
}

func (e EntityError) Unwrap() error {
	return e.Err
}

// entityHistory accumulates the per-universe extremes needed by ComputeGrowth
// in a single pass over the snapshot slice.
type entityHistory struct {
	current  *models.Snapshot // latest snapshot overall
	baseline *models.Snapshot // latest snapshot at or before the window cutoff
	peak     int64
	hasPeak  bool
	invalid  bool
}

// ComputeGrowth derives a ranked growth event per universe from raw snapshots.
//
// For each universe: the current reading is the snapshot with the highest
// timestamp, the baseline is the highest-timestamped snapshot at or before
// now-window, and the peak is the highest CCU observed inside the window
// (falling back to the current CCU when the window holds nothing). Universes
// missing a baseline, or whose baseline CCU is zero, are skipped silently;
// universes carrying malformed rows (negative CCU or a zero timestamp) are
// skipped entirely and reported in the error slice.
//
// Display names come from the names map when present, otherwise from the
// latest snapshot. Events are sorted by GrowthPercent descending, ties broken
// by ascending universe ID, so repeated runs over the same history produce
// identical output.
func ComputeGrowth(snaps []*models.Snapshot, names map[int64]string, now time.Time, window time.Duration) ([]models.GrowthEvent, []EntityError) {
	cutoff := now.Add(-window)

	histories := make(map[int64]*entityHistory)
	for _, snap := range snaps {
		if snap == nil {
			continue
		}
		h := histories[snap.EntityID]
		if h == nil {
			h = &entityHistory{}
			histories[snap.EntityID] = h
		}
		if snap.CCU < 0 || snap.Timestamp.IsZero() {
			h.invalid = true
			continue
		}
		// Latest snapshot wins; on equal timestamps the later row wins so
		// replayed input stays deterministic.
		if h.current == nil || !snap.Timestamp.Before(h.current.Timestamp) {
			h.current = snap
		}
		if !snap.Timestamp.After(cutoff) {
			if h.baseline == nil || !snap.Timestamp.Before(h.baseline.Timestamp) {
				h.baseline = snap
			}
		}
		if !snap.Timestamp.Before(cutoff) {
			if !h.hasPeak || snap.CCU > h.peak {
				h.peak = snap.CCU
				h.hasPeak = true
			}
		}
	}

	events := make([]models.GrowthEvent, 0, len(histories))
	var errs []EntityError
	dataGaps, zeroBaselines := 0, 0

	for entityID, h := range histories {
		if h.invalid {
			errs = append(errs, EntityError{EntityID: entityID, Err: errors.New("invalid snapshot data")})
			continue
		}
		if h.current == nil {
			continue
		}
		if h.baseline == nil {
			dataGaps++
			continue
		}
		if h.baseline.CCU == 0 {
			zeroBaselines++
			continue
		}

		// The peak window always contains the current snapshot unless the
		// universe went stale before the cutoff, so the fallback only fires
		// for stale universes.
		peak := h.current.CCU
		if h.hasPeak && h.peak > peak {
			peak = h.peak
		}

		rate := float64(h.current.CCU-h.baseline.CCU) / float64(h.baseline.CCU)
		displayName := h.current.Name
		if name, ok := names[entityID]; ok && name != "" {
			displayName = name
		}

		events = append(events, models.GrowthEvent{
			EntityID:         entityID,
			DisplayName:      displayName,
			CurrentCCU:       h.current.CCU,
			WeekAgoCCU:       h.baseline.CCU,
			GrowthPercent:    math.Round(rate*1000) / 10,
			GrowthRate:       rate,
			PeakCCU:          peak,
			CurrentTimestamp: h.current.Timestamp,
		})
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].GrowthPercent != events[j].GrowthPercent {
			return events[i].GrowthPercent > events[j].GrowthPercent
		}
		return events[i].EntityID < events[j].EntityID
	})
	sort.Slice(errs, func(i, j int) bool { return errs[i].EntityID < errs[j].EntityID })

	logger.Debug("ComputeGrowth: universes=%d events=%d dataGaps=%d zeroBaselines=%d invalid=%d",
		len(histories), len(events), dataGaps, zeroBaselines, len(errs))

	return events, errs
}

// FilterThreshold keeps the events whose rounded growth percentage meets the
// threshold, preserving order. The comparison uses the rounded figure, so an
// event displayed as exactly the threshold always qualifies.
func FilterThreshold(events []models.GrowthEvent, threshold float64) []models.GrowthEvent {
	kept := make([]models.GrowthEvent, 0, len(events))
	for _, event := range events {
		if event.GrowthPercent >= threshold {
			kept = append(kept, event)
		}
	}
	return kept
}
