package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

// UpsertVideos inserts or replaces video rows keyed by video_id.
func (s *Store) UpsertVideos(ctx context.Context, videos []*models.VideoRecord) error {
	if len(videos) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin video upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO youtube_videos (
			video_id, channel_id, channel_title, title, description,
			published_at, view_count, like_count, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id = excluded.channel_id,
			channel_title = excluded.channel_title,
			title = excluded.title,
			description = excluded.description,
			published_at = excluded.published_at,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("prepare video upsert: %w", err)
	}
	defer stmt.Close()

	for _, video := range videos {
		if video == nil || video.VideoID == "" {
			return storage.ErrInvalidInput
		}
		_, err := stmt.ExecContext(ctx,
			video.VideoID,
			video.ChannelID,
			video.ChannelTitle,
			video.Title,
			video.Description,
			video.PublishedAt.Unix(),
			video.ViewCount,
			video.LikeCount,
			video.FetchedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert video %s: %w", video.VideoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit video upsert: %w", err)
	}
	return nil
}

// VideosPublishedSince retrieves videos with published_at >= since, ordered by
// published_at DESC, video_id ASC.
func (s *Store) VideosPublishedSince(ctx context.Context, since time.Time) ([]*models.VideoRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT video_id, channel_id, channel_title, title, description,
		       published_at, view_count, like_count, fetched_at
		FROM youtube_videos
		WHERE published_at >= ?
		ORDER BY published_at DESC, video_id ASC
	`, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.VideoRecord
	for rows.Next() {
		var video models.VideoRecord
		var published, fetched int64
		err := rows.Scan(
			&video.VideoID,
			&video.ChannelID,
			&video.ChannelTitle,
			&video.Title,
			&video.Description,
			&published,
			&video.ViewCount,
			&video.LikeCount,
			&fetched,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		video.PublishedAt = time.Unix(published, 0).UTC()
		video.FetchedAt = time.Unix(fetched, 0).UTC()
		videos = append(videos, &video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video rows: %w", err)
	}

	return videos, nil
}

// DeleteVideosBefore removes videos published before cutoff.
func (s *Store) DeleteVideosBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM youtube_videos WHERE published_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete old videos: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted videos: %w", err)
	}
	return removed, nil
}
