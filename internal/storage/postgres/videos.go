package postgres

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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO youtube_videos (
			video_id, channel_id, channel_title, title, description,
			published_at, view_count, like_count, fetched_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			channel_title = EXCLUDED.channel_title,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			published_at = EXCLUDED.published_at,
			view_count = EXCLUDED.view_count,
			like_count = EXCLUDED.like_count,
			fetched_at = EXCLUDED.fetched_at
	`

	for _, video := range videos {
		if video == nil || video.VideoID == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			video.VideoID,
			video.ChannelID,
			video.ChannelTitle,
			video.Title,
			video.Description,
			video.PublishedAt,
			video.ViewCount,
			video.LikeCount,
			video.FetchedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert video %s: %w", video.VideoID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// VideosPublishedSince retrieves videos with published_at >= since, ordered by
// published_at DESC, video_id ASC.
func (s *Store) VideosPublishedSince(ctx context.Context, since time.Time) ([]*models.VideoRecord, error) {
	query := `
		SELECT video_id, channel_id, channel_title, title, description,
		       published_at, view_count, like_count, fetched_at
		FROM youtube_videos
		WHERE published_at >= $1
		ORDER BY published_at DESC, video_id ASC
	`

	rows, err := s.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.VideoRecord
	for rows.Next() {
		var video models.VideoRecord
		err := rows.Scan(
			&video.VideoID,
			&video.ChannelID,
			&video.ChannelTitle,
			&video.Title,
			&video.Description,
			&video.PublishedAt,
			&video.ViewCount,
			&video.LikeCount,
			&video.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan video row: %w", err)
		}
		video.PublishedAt = video.PublishedAt.UTC()
		video.FetchedAt = video.FetchedAt.UTC()
		videos = append(videos, &video)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate video rows: %w", err)
	}

	return videos, nil
}

// DeleteVideosBefore removes videos published before cutoff.
func (s *Store) DeleteVideosBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM youtube_videos WHERE published_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old videos: %w", err)
	}
	return tag.RowsAffected(), nil
}
