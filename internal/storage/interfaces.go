package storage

import (
	"context"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
)

// SnapshotStore provides access to CCU snapshot history.
type SnapshotStore interface {
	// UpsertSnapshots inserts snapshots, replacing rows that share
	// (entity_id, timestamp). Re-polling the same cycle is idempotent.
	UpsertSnapshots(ctx context.Context, snaps []*models.Snapshot) error

	// SnapshotsSince retrieves all snapshots with timestamp >= since,
	// ordered by entity_id ASC, timestamp ASC.
	SnapshotsSince(ctx context.Context, since time.Time) ([]*models.Snapshot, error)

	// DeleteSnapshotsBefore removes snapshots older than cutoff.
	// Returns the number of rows removed.
	DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MetadataStore provides access to per-universe metadata.
type MetadataStore interface {
	// UpsertMetadata inserts or replaces metadata rows keyed by entity_id.
	UpsertMetadata(ctx context.Context, metas []*models.GameMeta) error

	// DisplayNames retrieves the preferred display name per entity.
	DisplayNames(ctx context.Context) (map[int64]string, error)
}

// VideoStore provides access to collected creator videos.
type VideoStore interface {
	// UpsertVideos inserts or replaces video rows keyed by video_id.
	UpsertVideos(ctx context.Context, videos []*models.VideoRecord) error

	// VideosPublishedSince retrieves videos with published_at >= since,
	// ordered by published_at DESC, video_id ASC.
	VideosPublishedSince(ctx context.Context, since time.Time) ([]*models.VideoRecord, error)

	// DeleteVideosBefore removes videos published before cutoff.
	// Returns the number of rows removed.
	DeleteVideosBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SpikeLedger provides access to the append-only record of emitted spikes.
// It backs both recurrence suppression and historical reporting.
type SpikeLedger interface {
	// AppendSpike records an emitted spike. Returns ErrDuplicateKey if the
	// spike ID already exists and ErrInvalidInput on a nil or ID-less spike.
	AppendSpike(ctx context.Context, spike *models.SpikeCandidate) error

	// LastSpikeSince retrieves the most recent spike for an entity with
	// detected_at >= since. Returns ErrNotFound if none exists.
	LastSpikeSince(ctx context.Context, entityID int64, since time.Time) (*models.SpikeCandidate, error)

	// RecentSpikes retrieves up to limit spikes ordered by detected_at DESC,
	// ID ASC on equal times.
	RecentSpikes(ctx context.Context, limit int) ([]*models.SpikeCandidate, error)
}

// Store bundles every persistence concern behind one handle.
type Store interface {
	SnapshotStore
	MetadataStore
	VideoStore
	SpikeLedger

	// Close releases the underlying database resources.
	Close() error
}
