package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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

	// Growth-only spikes carry a NULL publish time.
	var published *time.Time
	if !spike.VideoPublishedAt.IsZero() {
		t := spike.VideoPublishedAt
		published = &t
	}

	query := `
		INSERT INTO mechanic_spikes (` + spikeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := s.pool.Exec(ctx, query,
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
		published,
		spike.MatchConfidence,
		spike.DetectedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append spike %s: %w", spike.ID, err)
	}
	return nil
}

// LastSpikeSince retrieves the most recent spike for an entity with
// detected_at >= since.
func (s *Store) LastSpikeSince(ctx context.Context, entityID int64, since time.Time) (*models.SpikeCandidate, error) {
	query := `
		SELECT ` + spikeColumns + `
		FROM mechanic_spikes
		WHERE entity_id = $1 AND detected_at >= $2
		ORDER BY detected_at DESC, id ASC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, entityID, since)
	spike, err := scanSpike(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("lookup last spike for entity %d: %w", entityID, err)
	}
	return spike, nil
}

// RecentSpikes retrieves up to limit spikes, newest first. A non-positive
// limit returns all spikes.
func (s *Store) RecentSpikes(ctx context.Context, limit int) ([]*models.SpikeCandidate, error) {
	query := `
		SELECT ` + spikeColumns + `
		FROM mechanic_spikes
		ORDER BY detected_at DESC, id ASC
	`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
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

// scanSpike scans a single spike row.
func scanSpike(row pgx.Row) (*models.SpikeCandidate, error) {
	var spike models.SpikeCandidate
	var published *time.Time

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
		&published,
		&spike.MatchConfidence,
		&spike.DetectedAt,
	)
	if err != nil {
		return nil, err
	}

	if published != nil {
		spike.VideoPublishedAt = published.UTC()
	}
	spike.DetectedAt = spike.DetectedAt.UTC()
	return &spike, nil
}
