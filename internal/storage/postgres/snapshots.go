package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// UpsertSnapshots inserts snapshots, replacing rows that share (entity_id, timestamp).
func (s *Store) UpsertSnapshots(ctx context.Context, snaps []*models.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO snapshots (entity_id, name, ccu, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_id, timestamp) DO UPDATE SET
			name = EXCLUDED.name,
			ccu = EXCLUDED.ccu
	`

	for _, snap := range snaps {
		if snap == nil || snap.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, query, snap.EntityID, snap.Name, snap.CCU, snap.Timestamp); err != nil {
			return fmt.Errorf("upsert snapshot for entity %d: %w", snap.EntityID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// SnapshotsSince retrieves snapshots with timestamp >= since, ordered by
// entity_id ASC, timestamp ASC.
func (s *Store) SnapshotsSince(ctx context.Context, since time.Time) ([]*models.Snapshot, error) {
	query := `
		SELECT entity_id, name, ccu, timestamp
		FROM snapshots
		WHERE timestamp >= $1
		ORDER BY entity_id ASC, timestamp ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		if err := rows.Scan(&snap.EntityID, &snap.Name, &snap.CCU, &snap.Timestamp); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = snap.Timestamp.UTC()
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// DeleteSnapshotsBefore removes snapshots older than cutoff.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM snapshots WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}
