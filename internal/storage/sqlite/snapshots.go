package sqlite

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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (entity_id, name, ccu, timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (entity_id, timestamp) DO UPDATE SET
			name = excluded.name,
			ccu = excluded.ccu
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot upsert: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		if snap == nil || snap.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
		if _, err := stmt.ExecContext(ctx, snap.EntityID, snap.Name, snap.CCU, snap.Timestamp.Unix()); err != nil {
			return fmt.Errorf("upsert snapshot for entity %d: %w", snap.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot upsert: %w", err)
	}
	return nil
}

// SnapshotsSince retrieves snapshots with timestamp >= since, ordered by
// entity_id ASC, timestamp ASC.
func (s *Store) SnapshotsSince(ctx context.Context, since time.Time) ([]*models.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, name, ccu, timestamp
		FROM snapshots
		WHERE timestamp >= ?
		ORDER BY entity_id ASC, timestamp ASC
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.Snapshot
	for rows.Next() {
		var snap models.Snapshot
		var ts int64
		if err := rows.Scan(&snap.EntityID, &snap.Name, &snap.CCU, &ts); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.Timestamp = time.Unix(ts, 0).UTC()
		snaps = append(snaps, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snaps, nil
}

// DeleteSnapshotsBefore removes snapshots older than cutoff.
func (s *Store) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE timestamp < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete old snapshots: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted snapshots: %w", err)
	}
	return removed, nil
}
