package postgres

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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO game_metadata (
			entity_id, name, root_place_id, creator_id, creator_name,
			description, genre, visits, last_seen_ccu, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (entity_id) DO UPDATE SET
			name = EXCLUDED.name,
			root_place_id = EXCLUDED.root_place_id,
			creator_id = EXCLUDED.creator_id,
			creator_name = EXCLUDED.creator_name,
			description = EXCLUDED.description,
			genre = EXCLUDED.genre,
			visits = EXCLUDED.visits,
			last_seen_ccu = EXCLUDED.last_seen_ccu,
			updated_at = EXCLUDED.updated_at
	`

	for _, meta := range metas {
		if meta == nil || meta.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			meta.EntityID,
			meta.Name,
			meta.RootPlaceID,
			meta.CreatorID,
			meta.CreatorName,
			meta.Description,
			meta.Genre,
			meta.Visits,
			meta.LastSeenCCU,
			meta.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert metadata for entity %d: %w", meta.EntityID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// DisplayNames retrieves the preferred display name per entity.
func (s *Store) DisplayNames(ctx context.Context) (map[int64]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT entity_id, name FROM game_metadata`)
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
