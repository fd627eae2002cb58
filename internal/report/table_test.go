package report

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/earlyshift/earlyshift/internal/models"
)

func TestMain(m *testing.M) {
	// Force plain output so assertions see the raw table.
	color.NoColor = true
	os.Exit(m.Run())
}

func spikeRows() []*models.SpikeCandidate {
	return []*models.SpikeCandidate{
		{
			ID:               "spike-1",
			EntityID:         3317771874,
			DisplayName:      "Pet Simulator X",
			GrowthPercent:    30.0,
			GrowthRate:       0.3,
			CurrentCCU:       45123,
			WeekAgoCCU:       34710,
			PeakCCU:          48100,
			MechanicPhrase:   "Merge Pets Update!!",
			VideoID:          "dQw4w9WgXcQ",
			VideoTitle:       "Pet Simulator X NEW Merge Pets Update!!",
			VideoURL:         "https://youtube.com/watch?v=dQw4w9WgXcQ",
			ChannelTitle:     "KreekCraft",
			VideoPublishedAt: time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC),
			MatchConfidence:  0.93,
			DetectedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			ID:              "spike-2",
			EntityID:        245662005,
			DisplayName:     "Jailbreak",
			GrowthPercent:   41.7,
			GrowthRate:      0.417,
			CurrentCCU:      2800,
			WeekAgoCCU:      1976,
			PeakCCU:         2900,
			MatchConfidence: 0.21,
			DetectedAt:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
}

func TestFormatSpikesTable(t *testing.T) {
	out := FormatSpikesTable(spikeRows())

	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, expected 4 (header, dashes, two rows):\n%s", len(lines), out)
	}

	for _, header := range []string{"Game", "Growth", "Current CCU", "Mechanic", "Source", "Published"} {
		if !strings.Contains(lines[0], header) {
			t.Errorf("header line missing %q: %s", header, lines[0])
		}
	}
	if !strings.Contains(lines[1], "----") {
		t.Errorf("expected a dash separator line: %s", lines[1])
	}

	videoRow := lines[2]
	for _, cell := range []string{"Pet Simulator X", "30.0%", "45,123", "Merge Pets Update!!", "https://youtube.com/watch?v=dQw4w9WgXcQ", "2025-06-01 02:00"} {
		if !strings.Contains(videoRow, cell) {
			t.Errorf("video row missing %q: %s", cell, videoRow)
		}
	}

	growthOnlyRow := lines[3]
	if !strings.Contains(growthOnlyRow, "growth-only") {
		t.Errorf("growth-only row missing source marker: %s", growthOnlyRow)
	}
	if strings.Contains(growthOnlyRow, "http") {
		t.Errorf("growth-only row should not carry a URL: %s", growthOnlyRow)
	}
}

func TestFormatSpikesTable_Alignment(t *testing.T) {
	out := FormatSpikesTable(spikeRows())

	lines := strings.Split(out, "\n")
	first := strings.Index(lines[0], " | ")
	if first <= 0 {
		t.Fatalf("header line has no column separator: %s", lines[0])
	}
	for i, line := range lines {
		if idx := strings.Index(line, " | "); idx != first {
			t.Errorf("line %d separator at %d, expected %d: %s", i, idx, first, line)
		}
	}
}

func TestFormatSpikesTable_Empty(t *testing.T) {
	out := FormatSpikesTable(nil)
	if out != "No mechanic spikes detected in the selected window." {
		t.Errorf("unexpected empty message: %s", out)
	}
}

func TestFormatMoversTable(t *testing.T) {
	movers := []models.GrowthEvent{
		{EntityID: 1, DisplayName: "Pet Simulator X", CurrentCCU: 45123, WeekAgoCCU: 34710, GrowthPercent: 30.0, GrowthRate: 0.3, PeakCCU: 48100},
		{EntityID: 2, DisplayName: "Jailbreak", CurrentCCU: 2100, WeekAgoCCU: 2000, GrowthPercent: 5.0, GrowthRate: 0.05, PeakCCU: 2200},
	}

	out := FormatMoversTable(movers)
	lines := strings.Split(out, "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, expected 4:\n%s", len(lines), out)
	}
	for _, cell := range []string{"Week Ago", "Peak (7d)", "45,123", "34,710", "48,100", "5.0%"} {
		if !strings.Contains(out, cell) {
			t.Errorf("movers table missing %q:\n%s", cell, out)
		}
	}
}

func TestFormatMoversTable_Empty(t *testing.T) {
	out := FormatMoversTable(nil)
	if out != "No universes with computable growth in the window." {
		t.Errorf("unexpected empty message: %s", out)
	}
}
