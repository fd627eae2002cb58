package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
	"github.com/earlyshift/earlyshift/internal/storage"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestStore_UpsertAndQuerySnapshots(t *testing.T) {
	store := New()
	ctx := context.Background()

	snaps := []*models.Snapshot{
		{EntityID: 3317771874, Name: "Pet Simulator X", CCU: 1000, Timestamp: baseTime.Add(-48 * time.Hour)},
		{EntityID: 3317771874, Name: "Pet Simulator X", CCU: 1300, Timestamp: baseTime},
		{EntityID: 245662005, Name: "Jailbreak", CCU: 8000, Timestamp: baseTime},
	}
	if err := store.UpsertSnapshots(ctx, snaps); err != nil {
		t.Fatalf("UpsertSnapshots failed: %v", err)
	}

	got, err := store.SnapshotsSince(ctx, baseTime.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsSince failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(got))
	}

	// Ordered by entity_id ASC, timestamp ASC
	if got[0].EntityID != 245662005 {
		t.Errorf("Expected Jailbreak first, got entity %d", got[0].EntityID)
	}
	if got[1].CCU != 1000 || got[2].CCU != 1300 {
		t.Errorf("Expected Pet Simulator X snapshots in timestamp order, got %d then %d", got[1].CCU, got[2].CCU)
	}

	// Cutoff excludes the older snapshot
	got, err = store.SnapshotsSince(ctx, baseTime.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 snapshots after cutoff, got %d", len(got))
	}
}

func TestStore_UpsertSnapshotReplacesSameTimestamp(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap := &models.Snapshot{EntityID: 1, Name: "Game", CCU: 100, Timestamp: baseTime}
	if err := store.UpsertSnapshots(ctx, []*models.Snapshot{snap}); err != nil {
		t.Fatalf("First upsert failed: %v", err)
	}

	snap.CCU = 150
	if err := store.UpsertSnapshots(ctx, []*models.Snapshot{snap}); err != nil {
		t.Fatalf("Second upsert failed: %v", err)
	}

	got, err := store.SnapshotsSince(ctx, baseTime.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SnapshotsSince failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 snapshot after replace, got %d", len(got))
	}
	if got[0].CCU != 150 {
		t.Errorf("Expected replaced CCU 150, got %d", got[0].CCU)
	}
}

func TestStore_DeleteSnapshotsBefore(t *testing.T) {
	store := New()
	ctx := context.Background()

	snaps := []*models.Snapshot{
		{EntityID: 1, Name: "Game", CCU: 100, Timestamp: baseTime.Add(-40 * 24 * time.Hour)},
		{EntityID: 1, Name: "Game", CCU: 120, Timestamp: baseTime},
	}
	if err := store.UpsertSnapshots(ctx, snaps); err != nil {
		t.Fatalf("UpsertSnapshots failed: %v", err)
	}

	removed, err := store.DeleteSnapshotsBefore(ctx, baseTime.Add(-30*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteSnapshotsBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 row removed, got %d", removed)
	}

	got, _ := store.SnapshotsSince(ctx, time.Time{})
	if len(got) != 1 {
		t.Errorf("Expected 1 snapshot remaining, got %d", len(got))
	}
}

func TestStore_DisplayNames(t *testing.T) {
	store := New()
	ctx := context.Background()

	metas := []*models.GameMeta{
		{EntityID: 3317771874, Name: "Pet Simulator X", UpdatedAt: baseTime},
		{EntityID: 245662005, Name: "Jailbreak", UpdatedAt: baseTime},
	}
	if err := store.UpsertMetadata(ctx, metas); err != nil {
		t.Fatalf("UpsertMetadata failed: %v", err)
	}

	names, err := store.DisplayNames(ctx)
	if err != nil {
		t.Fatalf("DisplayNames failed: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("Expected 2 names, got %d", len(names))
	}
	if names[3317771874] != "Pet Simulator X" {
		t.Errorf("Unexpected name: %s", names[3317771874])
	}
}

func TestStore_VideosPublishedSince(t *testing.T) {
	store := New()
	ctx := context.Background()

	videos := []*models.VideoRecord{
		{VideoID: "a1", ChannelID: "ch1", ChannelTitle: "KreekCraft", Title: "old video", PublishedAt: baseTime.Add(-72 * time.Hour), FetchedAt: baseTime},
		{VideoID: "b2", ChannelID: "ch1", ChannelTitle: "KreekCraft", Title: "newer video", PublishedAt: baseTime.Add(-2 * time.Hour), FetchedAt: baseTime},
		{VideoID: "c3", ChannelID: "ch2", ChannelTitle: "DeeterPlays", Title: "newest video", PublishedAt: baseTime.Add(-time.Hour), FetchedAt: baseTime},
	}
	if err := store.UpsertVideos(ctx, videos); err != nil {
		t.Fatalf("UpsertVideos failed: %v", err)
	}

	got, err := store.VideosPublishedSince(ctx, baseTime.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("VideosPublishedSince failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 videos in window, got %d", len(got))
	}
	// Newest first
	if got[0].VideoID != "c3" || got[1].VideoID != "b2" {
		t.Errorf("Unexpected order: %s, %s", got[0].VideoID, got[1].VideoID)
	}

	removed, err := store.DeleteVideosBefore(ctx, baseTime.Add(-48*time.Hour))
	if err != nil {
		t.Fatalf("DeleteVideosBefore failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 video removed, got %d", removed)
	}
}

func TestStore_AppendSpikeAndLookup(t *testing.T) {
	store := New()
	ctx := context.Background()

	spike := &models.SpikeCandidate{
		ID:              "spike-1",
		EntityID:        3317771874,
		DisplayName:     "Pet Simulator X",
		GrowthPercent:   30.0,
		GrowthRate:      0.3,
		CurrentCCU:      1300,
		WeekAgoCCU:      1000,
		PeakCCU:         1350,
		MatchConfidence: 0.91,
		DetectedAt:      baseTime,
	}
	if err := store.AppendSpike(ctx, spike); err != nil {
		t.Fatalf("AppendSpike failed: %v", err)
	}

	// Duplicate ID rejected
	if err := store.AppendSpike(ctx, spike); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}

	// Nil and ID-less spikes rejected
	if err := store.AppendSpike(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.AppendSpike(ctx, &models.SpikeCandidate{EntityID: 1}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}

	got, err := store.LastSpikeSince(ctx, 3317771874, baseTime.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("LastSpikeSince failed: %v", err)
	}
	if got.ID != "spike-1" {
		t.Errorf("Unexpected spike: %s", got.ID)
	}

	// Outside the window
	_, err = store.LastSpikeSince(ctx, 3317771874, baseTime.Add(time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound outside window, got %v", err)
	}

	// Unknown entity
	_, err = store.LastSpikeSince(ctx, 42, baseTime.Add(-24*time.Hour))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown entity, got %v", err)
	}
}

func TestStore_LastSpikeSincePicksNewest(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i, offset := range []time.Duration{-20 * time.Hour, -4 * time.Hour, -12 * time.Hour} {
		spike := &models.SpikeCandidate{
			ID:              fmt.Sprintf("spike-%d", i),
			EntityID:        1,
			DisplayName:     "Game",
			GrowthPercent:   30.0,
			GrowthRate:      0.3,
			CurrentCCU:      1300,
			WeekAgoCCU:      1000,
			PeakCCU:         1300,
			MatchConfidence: 0.5,
			DetectedAt:      baseTime.Add(offset),
		}
		if err := store.AppendSpike(ctx, spike); err != nil {
			t.Fatalf("AppendSpike failed: %v", err)
		}
	}

	got, err := store.LastSpikeSince(ctx, 1, baseTime.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("LastSpikeSince failed: %v", err)
	}
	if got.ID != "spike-1" {
		t.Errorf("Expected newest spike-1, got %s", got.ID)
	}
}

func TestStore_RecentSpikes(t *testing.T) {
	store := New()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		spike := &models.SpikeCandidate{
			ID:              fmt.Sprintf("spike-%d", i),
			EntityID:        int64(i + 1),
			DisplayName:     "Game",
			GrowthPercent:   30.0,
			GrowthRate:      0.3,
			CurrentCCU:      1300,
			WeekAgoCCU:      1000,
			PeakCCU:         1300,
			MatchConfidence: 0.5,
			DetectedAt:      baseTime.Add(time.Duration(i) * time.Hour),
		}
		if err := store.AppendSpike(ctx, spike); err != nil {
			t.Fatalf("AppendSpike failed: %v", err)
		}
	}

	got, err := store.RecentSpikes(ctx, 3)
	if err != nil {
		t.Fatalf("RecentSpikes failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 spikes, got %d", len(got))
	}
	if got[0].ID != "spike-4" || got[2].ID != "spike-2" {
		t.Errorf("Unexpected order: %s ... %s", got[0].ID, got[2].ID)
	}
}

func TestStore_CopiesPreventMutation(t *testing.T) {
	store := New()
	ctx := context.Background()

	snap := &models.Snapshot{EntityID: 1, Name: "Game", CCU: 100, Timestamp: baseTime}
	if err := store.UpsertSnapshots(ctx, []*models.Snapshot{snap}); err != nil {
		t.Fatalf("UpsertSnapshots failed: %v", err)
	}

	// Mutating the original must not affect the stored copy
	snap.CCU = 999

	got, _ := store.SnapshotsSince(ctx, time.Time{})
	if got[0].CCU != 100 {
		t.Errorf("Stored snapshot was mutated: CCU = %d", got[0].CCU)
	}

	// Mutating the returned copy must not affect the store
	got[0].CCU = 555
	again, _ := store.SnapshotsSince(ctx, time.Time{})
	if again[0].CCU != 100 {
		t.Errorf("Returned snapshot aliased storage: CCU = %d", again[0].CCU)
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	store := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			snap := &models.Snapshot{
				EntityID:  int64(n + 1),
				Name:      "Game",
				CCU:       int64(100 * (n + 1)),
				Timestamp: baseTime.Add(time.Duration(n) * time.Minute),
			}
			if err := store.UpsertSnapshots(ctx, []*models.Snapshot{snap}); err != nil {
				t.Errorf("UpsertSnapshots failed: %v", err)
			}
			if _, err := store.SnapshotsSince(ctx, time.Time{}); err != nil {
				t.Errorf("SnapshotsSince failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := store.SnapshotsSince(ctx, time.Time{})
	if len(got) != 10 {
		t.Errorf("Expected 10 snapshots, got %d", len(got))
	}
}
