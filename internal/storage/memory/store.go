// Package memory provides an in-memory storage.Store used by tests and
// single-shot runs that do not need persistence.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

type snapKey struct {
	entityID int64
	unix     int64
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu        sync.RWMutex
	snapshots map[snapKey]*models.Snapshot
	metadata  map[int64]*models.GameMeta
	videos    map[string]*models.VideoRecord
	spikes    map[string]*models.SpikeCandidate
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		snapshots: make(map[snapKey]*models.Snapshot),
		metadata:  make(map[int64]*models.GameMeta),
		videos:    make(map[string]*models.VideoRecord),
		spikes:    make(map[string]*models.SpikeCandidate),
	}
}

// Verify interface compliance at compile time.
var _ storage.Store = (*Store)(nil)

// UpsertSnapshots inserts snapshots, replacing rows that share (entity_id, timestamp).
// Like the SQL backends, an invalid batch leaves the store untouched.
func (s *Store) UpsertSnapshots(_ context.Context, snaps []*models.Snapshot) error {
	for _, snap := range snaps {
		if snap == nil || snap.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, snap := range snaps {
		// Store a copy to prevent external mutation
		snapCopy := *snap
		s.snapshots[snapKey{snap.EntityID, snap.Timestamp.Unix()}] = &snapCopy
	}
	return nil
}

// SnapshotsSince retrieves snapshots with timestamp >= since, ordered by
// entity_id ASC, timestamp ASC.
func (s *Store) SnapshotsSince(_ context.Context, since time.Time) ([]*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Snapshot
	for _, snap := range s.snapshots {
		if !snap.Timestamp.Before(since) {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].EntityID != result[j].EntityID {
			return result[i].EntityID < result[j].EntityID
		}
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}

// DeleteSnapshotsBefore removes snapshots older than cutoff.
func (s *Store) DeleteSnapshotsBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, snap := range s.snapshots {
		if snap.Timestamp.Before(cutoff) {
			delete(s.snapshots, key)
			removed++
		}
	}
	return removed, nil
}

// UpsertMetadata inserts or replaces metadata rows keyed by entity_id.
func (s *Store) UpsertMetadata(_ context.Context, metas []*models.GameMeta) error {
	for _, meta := range metas {
		if meta == nil || meta.EntityID <= 0 {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, meta := range metas {
		metaCopy := *meta
		s.metadata[meta.EntityID] = &metaCopy
	}
	return nil
}

// DisplayNames retrieves the preferred display name per entity.
func (s *Store) DisplayNames(_ context.Context) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make(map[int64]string, len(s.metadata))
	for id, meta := range s.metadata {
		names[id] = meta.Name
	}
	return names, nil
}

// UpsertVideos inserts or replaces video rows keyed by video_id.
func (s *Store) UpsertVideos(_ context.Context, videos []*models.VideoRecord) error {
	for _, video := range videos {
		if video == nil || video.VideoID == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, video := range videos {
		videoCopy := *video
		s.videos[video.VideoID] = &videoCopy
	}
	return nil
}

// VideosPublishedSince retrieves videos with published_at >= since, ordered by
// published_at DESC, video_id ASC.
func (s *Store) VideosPublishedSince(_ context.Context, since time.Time) ([]*models.VideoRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.VideoRecord
	for _, video := range s.videos {
		if !video.PublishedAt.Before(since) {
			videoCopy := *video
			result = append(result, &videoCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].PublishedAt.Equal(result[j].PublishedAt) {
			return result[i].PublishedAt.After(result[j].PublishedAt)
		}
		return result[i].VideoID < result[j].VideoID
	})

	return result, nil
}

// DeleteVideosBefore removes videos published before cutoff.
func (s *Store) DeleteVideosBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for id, video := range s.videos {
		if video.PublishedAt.Before(cutoff) {
			delete(s.videos, id)
			removed++
		}
	}
	return removed, nil
}

// AppendSpike records an emitted spike.
func (s *Store) AppendSpike(_ context.Context, spike *models.SpikeCandidate) error {
	if spike == nil || spike.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.spikes[spike.ID]; exists {
		return storage.ErrDuplicateKey
	}

	spikeCopy := *spike
	s.spikes[spike.ID] = &spikeCopy
	return nil
}

// LastSpikeSince retrieves the most recent spike for an entity with
// detected_at >= since.
func (s *Store) LastSpikeSince(_ context.Context, entityID int64, since time.Time) (*models.SpikeCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.SpikeCandidate
	for _, spike := range s.spikes {
		if spike.EntityID != entityID || spike.DetectedAt.Before(since) {
			continue
		}
		switch {
		case best == nil, spike.DetectedAt.After(best.DetectedAt):
			best = spike
		case spike.DetectedAt.Equal(best.DetectedAt) && spike.ID < best.ID:
			best = spike
		}
	}
	if best == nil {
		return nil, storage.ErrNotFound
	}

	bestCopy := *best
	return &bestCopy, nil
}

// RecentSpikes retrieves up to limit spikes, newest first.
func (s *Store) RecentSpikes(_ context.Context, limit int) ([]*models.SpikeCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.SpikeCandidate, 0, len(s.spikes))
	for _, spike := range s.spikes {
		spikeCopy := *spike
		result = append(result, &spikeCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].DetectedAt.Equal(result[j].DetectedAt) {
			return result[i].DetectedAt.After(result[j].DetectedAt)
		}
		return result[i].ID < result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
