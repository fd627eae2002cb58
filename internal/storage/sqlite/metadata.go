package sqlite

import (
	"context"
	"fmt"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// UpsertMetadata inserts or replaces metadata rows keyed by entity_id.
func (s *Store) UpsertMetadata(ctx context.Context, metas []*models.GameMeta) error {
	if len(metas) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_metadata (
			entity_id, name, root_place_id, creator_id, creator_name,
			description, genre, visits, last_seen_ccu, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (entity_id) DO UPDATE SET
			name = excluded.name,
			root_place_id = excluded.root_place_id,
			creator_id = excluded.creator_id,
			creator_name = excluded.creator_name,
			description = excluded.description,
			genre = excluded.genre,
			visits = excluded.visits,
			last_seen_ccu = excluded.last_seen_ccu,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("prepare metadata upsert: %w", err)
	}
	defer stmt.Close()

	for _, meta := range metas {
		if meta == nil || meta.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
		_, err := stmt.ExecContext(ctx,
			meta.EntityID,
			meta.Name,
			meta.RootPlaceID,
			meta.CreatorID,
			meta.CreatorName,
			meta.Description,
			meta.Genre,
			meta.Visits,
			meta.LastSeenCCU,
			meta.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert metadata for entity %d: %w", meta.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata upsert: %w", err)
	}
	return nil
}

// DisplayNames retrieves the preferred display name per entity.
func (s *Store) DisplayNames(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT entity_id, name FROM game_metadata`)
	if err != nil {
		return nil, fmt.Errorf("query display names: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan display name row: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate display name rows: %w", err)
	}

	return names, nil
}
