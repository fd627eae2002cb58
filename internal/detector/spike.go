package detector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/earlyshift/earlyshift/internal/logger"
	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// ConfidenceParams tunes how match confidence blends the fuzzy score with
// growth magnitude. The values ship from configuration and are policy, not
// contract: downstream consumers may only rely on video-backed candidates
// scoring at or above the fuzzy threshold and growth-only candidates scoring
// strictly below it.
type ConfidenceParams struct {
	GrowthWeight      float64 // share of the headroom above the fuzzy score granted by growth
	SaturationPercent float64 // growth percentage at which the growth factor maxes out
	GrowthOnlyCap     float64 // ceiling for candidates without video evidence
}

// Confidence computes a candidate's match confidence in [0, 1].
//
// With g = clamp(growthPercent / SaturationPercent, 0, 1):
//
//	video-backed:  confidence = score + (1 - score) × GrowthWeight × g
//	growth-only:   confidence = GrowthOnlyCap × g
//
// A video-backed candidate never scores below its fuzzy score, so it always
// clears the match threshold; a growth-only candidate never reaches the cap,
// so the two populations stay separable by confidence alone.
func Confidence(fuzzyScore float64, hasVideo bool, growthPercent float64, p ConfidenceParams) float64 {
	var g float64
	if p.SaturationPercent > 0 {
		g = growthPercent / p.SaturationPercent
	}
	if g < 0 {
		g = 0
	}
	if g > 1 {
		g = 1
	}
	if !hasVideo {
		return p.GrowthOnlyCap * g
	}
	confidence := fuzzyScore + (1-fuzzyScore)*p.GrowthWeight*g
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// AggregatorConfig carries the tunables for spike aggregation.
type AggregatorConfig struct {
	Cooldown   time.Duration // suppression window after an emitted spike
	Lookback   time.Duration // how far before the current snapshot a video may be published
	Confidence ConfidenceParams

	// Aliases returns alternate names to score for a universe. Optional.
	Aliases func(entityID int64) []string
}

// Aggregator combines ranked growth events with correlated videos into spike
// candidates, and gates emission through the spike ledger so a universe that
// already alerted inside the cooldown window stays quiet.
type Aggregator struct {
	ledger    storage.SpikeLedger
	matcher   *Matcher
	extractor *Extractor
	cfg       AggregatorConfig

	// Serializes the ledger lookup and append so concurrent passes cannot
	// both emit for the same universe. Coarser than per-universe locking,
	// but a pass touches few universes and the ledger is fast.
	mu sync.Mutex
}

// NewAggregator wires the aggregation stage.
func NewAggregator(ledger storage.SpikeLedger, matcher *Matcher, extractor *Extractor, cfg AggregatorConfig) *Aggregator {
	return &Aggregator{
		ledger:    ledger,
		matcher:   matcher,
		extractor: extractor,
		cfg:       cfg,
	}
}

// Process converts growth events into emitted spike candidates.
//
// For each event it correlates the best video published within the lookback
// window ending at the event's current snapshot, extracts a mechanic phrase
// from the matched video, computes confidence, and emits the candidate unless
// the ledger shows a spike for that universe inside the cooldown window.
// Growth-only events (no correlated video) are emitted all the same, just
// with lower confidence and no video fields.
//
// The input order is preserved in the output. A ledger failure suppresses
// only the universe it struck; everything else proceeds.
func (a *Aggregator) Process(ctx context.Context, events []models.GrowthEvent, videos []*models.VideoRecord, now time.Time) ([]models.SpikeCandidate, []EntityError) {
	emitted := make([]models.SpikeCandidate, 0, len(events))
	var errs []EntityError
	suppressed := 0

	for _, event := range events {
		var aliases []string
		if a.cfg.Aliases != nil {
			aliases = a.cfg.Aliases(event.EntityID)
		}
		windowEnd := event.CurrentTimestamp
		match := a.matcher.BestMatch(event.DisplayName, aliases, videos, windowEnd.Add(-a.cfg.Lookback), windowEnd)

		candidate := a.buildCandidate(event, match, now)
		ok, err := a.emit(ctx, &candidate)
		if err != nil {
			errs = append(errs, EntityError{EntityID: event.EntityID, Err: err})
			continue
		}
		if !ok {
			suppressed++
			continue
		}
		emitted = append(emitted, candidate)
	}

	logger.Debug("Process: events=%d emitted=%d suppressed=%d failed=%d",
		len(events), len(emitted), suppressed, len(errs))

	return emitted, errs
}

// buildCandidate assembles the spike candidate for one growth event.
func (a *Aggregator) buildCandidate(event models.GrowthEvent, match *VideoMatch, now time.Time) models.SpikeCandidate {
	candidate := models.SpikeCandidate{
		ID:              uuid.New().String(),
		EntityID:        event.EntityID,
		DisplayName:     event.DisplayName,
		GrowthPercent:   event.GrowthPercent,
		GrowthRate:      event.GrowthRate,
		CurrentCCU:      event.CurrentCCU,
		WeekAgoCCU:      event.WeekAgoCCU,
		PeakCCU:         event.PeakCCU,
		MatchConfidence: Confidence(0, false, event.GrowthPercent, a.cfg.Confidence),
		DetectedAt:      now,
	}
	if match != nil {
		video := match.Video
		candidate.MechanicPhrase = a.extractor.Extract(video.Title, video.Description)
		candidate.VideoID = video.VideoID
		candidate.VideoTitle = video.Title
		candidate.VideoURL = video.URL()
		candidate.ChannelTitle = video.ChannelTitle
		candidate.VideoPublishedAt = video.PublishedAt
		candidate.MatchConfidence = Confidence(match.Score, true, event.GrowthPercent, a.cfg.Confidence)
	}
	return candidate
}

// emit runs the cooldown lookup and the ledger append as one critical
// section. Returns false with a nil error when a prior spike inside the
// cooldown window suppresses this one.
func (a *Aggregator) emit(ctx context.Context, candidate *models.SpikeCandidate) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.ledger.LastSpikeSince(ctx, candidate.EntityID, candidate.DetectedAt.Add(-a.cfg.Cooldown))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}

	if err := a.ledger.AppendSpike(ctx, candidate); err != nil {
		return false, fmt.Errorf("ledger append: %w", err)
	}
	return true, nil
}

// DeriveState reports where a universe sits in the alert cycle given its
// current growth and its most recent ledger entry (zero time when none).
// The state is derived on demand and never persisted:
//
//	growth ≥ threshold, no recent spike  → GROWING   (will alert this pass)
//	growth ≥ threshold, recent spike     → COOLDOWN  (still hot, suppressed)
//	growth < threshold, recent spike     → ALERTED   (alert fired, growth subsided)
//	growth < threshold, no recent spike  → QUIET
func DeriveState(growthPercent, threshold float64, lastSpikeAt, now time.Time, cooldown time.Duration) models.SpikeState {
	inCooldown := !lastSpikeAt.IsZero() && now.Sub(lastSpikeAt) < cooldown
	qualifies := growthPercent >= threshold
	switch {
	case qualifies && inCooldown:
		return models.StateCooldown
	case qualifies:
		return models.StateGrowing
	case inCooldown:
		return models.StateAlerted
	default:
		return models.StateQuiet
	}
}
