package models

import (
	"testing"
	"time"
)

func TestSnapshotValidate(t *testing.T) {
	tests := []struct {
		name     string
		snapshot Snapshot
		wantErr  bool
	}{
		{
			name: "valid snapshot",
			snapshot: Snapshot{
				EntityID:  3317771874,
				Name:      "Pet Simulator X",
				CCU:       45210,
				Timestamp: time.Now().Add(-1 * time.Minute),
			},
			wantErr: false,
		},
		{
			name: "zero universe ID",
			snapshot: Snapshot{
				Name:      "Pet Simulator X",
				CCU:       45210,
				Timestamp: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "negative ccu",
			snapshot: Snapshot{
				EntityID:  3317771874,
				Name:      "Pet Simulator X",
				CCU:       -1,
				Timestamp: time.Now(),
			},
			wantErr: true,
		},
		{
			name: "future timestamp",
			snapshot: Snapshot{
				EntityID:  3317771874,
				Name:      "Pet Simulator X",
				CCU:       45210,
				Timestamp: time.Now().Add(1 * time.Hour),
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.snapshot.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Snapshot.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVideoRecordValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		video   VideoRecord
		wantErr bool
	}{
		{
			name: "valid video",
			video: VideoRecord{
				VideoID:      "dQw4w9WgXcQ",
				ChannelID:    "UC5p0TQ3uO9cwvx6YQg9nEuw",
				ChannelTitle: "KreekCraft",
				Title:        "NEW Merge Pets Update!!",
				PublishedAt:  now.Add(-10 * time.Hour),
				ViewCount:    120000,
				LikeCount:    8000,
				FetchedAt:    now,
			},
			wantErr: false,
		},
		{
			name: "empty video ID",
			video: VideoRecord{
				ChannelID:   "UC5p0TQ3uO9cwvx6YQg9nEuw",
				PublishedAt: now,
				FetchedAt:   now,
			},
			wantErr: true,
		},
		{
			name: "missing published at",
			video: VideoRecord{
				VideoID:   "dQw4w9WgXcQ",
				ChannelID: "UC5p0TQ3uO9cwvx6YQg9nEuw",
				FetchedAt: now,
			},
			wantErr: true,
		},
		{
			name: "negative view count",
			video: VideoRecord{
				VideoID:     "dQw4w9WgXcQ",
				ChannelID:   "UC5p0TQ3uO9cwvx6YQg9nEuw",
				PublishedAt: now,
				ViewCount:   -5,
				FetchedAt:   now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.video.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("VideoRecord.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestVideoRecordURL(t *testing.T) {
	v := VideoRecord{VideoID: "abc123"}
	want := "https://youtube.com/watch?v=abc123"
	if got := v.URL(); got != want {
		t.Errorf("URL() = %q, want %q", got, want)
	}
}

func TestGrowthEventValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		event   GrowthEvent
		wantErr bool
	}{
		{
			name: "valid event",
			event: GrowthEvent{
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				GrowthPercent:    30.0,
				GrowthRate:       0.3,
				PeakCCU:          1350,
				CurrentTimestamp: now,
			},
			wantErr: false,
		},
		{
			name: "zero week-ago ccu",
			event: GrowthEvent{
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       500,
				WeekAgoCCU:       0,
				GrowthPercent:    0,
				GrowthRate:       0,
				PeakCCU:          500,
				CurrentTimestamp: now,
			},
			wantErr: true,
		},
		{
			name: "peak below current",
			event: GrowthEvent{
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				GrowthPercent:    30.0,
				GrowthRate:       0.3,
				PeakCCU:          1200,
				CurrentTimestamp: now,
			},
			wantErr: true,
		},
		{
			name: "percent disagrees with ccu fields",
			event: GrowthEvent{
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				GrowthPercent:    55.0,
				GrowthRate:       0.3,
				PeakCCU:          1350,
				CurrentTimestamp: now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("GrowthEvent.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpikeCandidateValidate(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name    string
		spike   SpikeCandidate
		wantErr bool
	}{
		{
			name: "valid video-backed candidate",
			spike: SpikeCandidate{
				ID:               "spike-1",
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				GrowthPercent:    30.0,
				GrowthRate:       0.3,
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				PeakCCU:          1350,
				MechanicPhrase:   "Merge Pets Update!!",
				VideoID:          "abc123",
				VideoTitle:       "NEW Merge Pets Update!!",
				VideoURL:         "https://youtube.com/watch?v=abc123",
				ChannelTitle:     "KreekCraft",
				VideoPublishedAt: now.Add(-10 * time.Hour),
				MatchConfidence:  0.91,
				DetectedAt:       now,
			},
			wantErr: false,
		},
		{
			name: "valid growth-only candidate",
			spike: SpikeCandidate{
				ID:              "spike-2",
				EntityID:        3317771874,
				DisplayName:     "Pet Simulator X",
				GrowthPercent:   30.0,
				GrowthRate:      0.3,
				CurrentCCU:      1300,
				WeekAgoCCU:      1000,
				PeakCCU:         1350,
				MatchConfidence: 0.15,
				DetectedAt:      now,
			},
			wantErr: false,
		},
		{
			name: "confidence out of range",
			spike: SpikeCandidate{
				ID:              "spike-3",
				EntityID:        3317771874,
				DisplayName:     "Pet Simulator X",
				CurrentCCU:      1300,
				WeekAgoCCU:      1000,
				PeakCCU:         1350,
				MatchConfidence: 1.2,
				DetectedAt:      now,
			},
			wantErr: true,
		},
		{
			name: "video ID without URL",
			spike: SpikeCandidate{
				ID:               "spike-4",
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				PeakCCU:          1350,
				VideoID:          "abc123",
				VideoPublishedAt: now.Add(-10 * time.Hour),
				MatchConfidence:  0.9,
				DetectedAt:       now,
			},
			wantErr: true,
		},
		{
			name: "mechanic phrase without video",
			spike: SpikeCandidate{
				ID:              "spike-5",
				EntityID:        3317771874,
				DisplayName:     "Pet Simulator X",
				CurrentCCU:      1300,
				WeekAgoCCU:      1000,
				PeakCCU:         1350,
				MechanicPhrase:  "Merge Pets",
				MatchConfidence: 0.2,
				DetectedAt:      now,
			},
			wantErr: true,
		},
		{
			name: "video published after detection",
			spike: SpikeCandidate{
				ID:               "spike-6",
				EntityID:         3317771874,
				DisplayName:      "Pet Simulator X",
				CurrentCCU:       1300,
				WeekAgoCCU:       1000,
				PeakCCU:          1350,
				VideoID:          "abc123",
				VideoURL:         "https://youtube.com/watch?v=abc123",
				VideoPublishedAt: now.Add(1 * time.Hour),
				MatchConfidence:  0.9,
				DetectedAt:       now,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spike.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("SpikeCandidate.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
