package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

const spikeColumns = `
	id, entity_id, display_name, growth_percent, growth_rate,
	current_ccu, week_ago_ccu, peak_ccu, mechanic_phrase,
	video_id, video_title, video_url, channel_title,
	video_published_at, match_confidence, detected_at
`

// AppendSpike records an emitted spike.
func (s *Store) AppendSpike(ctx context.Context, spike *models.SpikeCandidate) error {
	if spike == nil || spike.ID == "" {
		return storage.ErrInvalidInput
	}

	var pubUnix int64
	if !spike.VideoPublishedAt.IsZero() {
		pubUnix = spike.VideoPublishedAt.Unix()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO mechanic_spikes (`+spikeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		spike.ID,
		spike.EntityID,
		spike.DisplayName,
		spike.GrowthPercent,
		spike.GrowthRate,
		spike.CurrentCCU,
		spike.WeekAgoCCU,
		spike.PeakCCU,
		spike.MechanicPhrase,
		spike.VideoID,
		spike.VideoTitle,
		spike.VideoURL,
		spike.ChannelTitle,
		pubUnix,
		spike.MatchConfidence,
		spike.DetectedAt.Unix(),
	)
	if err != nil {
		if isConstraintError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append spike %s: %w", spike.ID, err)
	}
	return nil
}

// LastSpikeSince retrieves the most recent spike for an entity with
// detected_at >= since.
func (s *Store) LastSpikeSince(ctx context.Context, entityID int64, since time.Time) (*models.SpikeCandidate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+spikeColumns+`
		FROM mechanic_spikes
		WHERE entity_id = ? AND detected_at >= ?
		ORDER BY detected_at DESC, id ASC
		LIMIT 1
	`, entityID, since.Unix())

	spike, err := scanSpike(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lookup last spike for entity %d: %w", entityID, err)
	}
	return spike, nil
}

// RecentSpikes retrieves up to limit spikes, newest first. A non-positive
// limit returns all spikes.
func (s *Store) RecentSpikes(ctx context.Context, limit int) ([]*models.SpikeCandidate, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+spikeColumns+`
		FROM mechanic_spikes
		ORDER BY detected_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent spikes: %w", err)
	}
	defer rows.Close()

	var spikes []*models.SpikeCandidate
	for rows.Next() {
		spike, err := scanSpike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan spike row: %w", err)
		}
		spikes = append(spikes, spike)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spike rows: %w", err)
	}

	return spikes, nil
}

// scanSpike scans a single spike row from either a Row or Rows.
func scanSpike(row interface{ Scan(dest ...any) error }) (*models.SpikeCandidate, error) {
	var spike models.SpikeCandidate
	var pubUnix, detectedUnix int64

	err := row.Scan(
		&spike.ID,
		&spike.EntityID,
		&spike.DisplayName,
		&spike.GrowthPercent,
		&spike.GrowthRate,
		&spike.CurrentCCU,
		&spike.WeekAgoCCU,
		&spike.PeakCCU,
		&spike.MechanicPhrase,
		&spike.VideoID,
		&spike.VideoTitle,
		&spike.VideoURL,
		&spike.ChannelTitle,
		&pubUnix,
		&spike.MatchConfidence,
		&detectedUnix,
	)
	if err != nil {
		return nil, err
	}

	if pubUnix > 0 {
		spike.VideoPublishedAt = time.Unix(pubUnix, 0).UTC()
	}
	spike.DetectedAt = time.Unix(detectedUnix, 0).UTC()
	return &spike, nil
}
