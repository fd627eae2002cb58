package detector

import (
	"testing"
	"time"

	"github.com/earlyshift/earlyshift/internal/models"
)

func vid(id, title, description string, published time.Time) *models.VideoRecord {
	return &models.VideoRecord{
		VideoID:      id,
		ChannelID:    "UC-test-channel",
		ChannelTitle: "Test Channel",
		Title:        title,
		Description:  description,
		PublishedAt:  published,
		FetchedAt:    published.Add(time.Hour),
	}
}

func TestNameSimilarity_EmbeddedName(t *testing.T) {
	m := NewMatcher(0.82, nil)

	// A game name embedded verbatim in a longer title aligns perfectly.
	score := m.NameSimilarity("Pet Simulator X", "Pet Simulator X NEW Merge Pets Update!!")
	if score < 0.99 {
		t.Errorf("expected an embedded name to score ~1.0, got %v", score)
	}
}

func TestNameSimilarity_CaseInsensitive(t *testing.T) {
	m := NewMatcher(0.82, nil)

	upper := m.NameSimilarity("PET SIMULATOR X", "pet simulator x update")
	if upper < 0.99 {
		t.Errorf("expected case-insensitive comparison, got %v", upper)
	}
}

func TestNameSimilarity_Typo(t *testing.T) {
	m := NewMatcher(0.82, nil)

	// One dropped character still clears the threshold.
	score := m.NameSimilarity("Pet Simulatr X", "Pet Simulator X NEW Merge Pets Update!!")
	if score < 0.82 {
		t.Errorf("expected a one-character typo to stay above threshold, got %v", score)
	}
}

func TestNameSimilarity_Unrelated(t *testing.T) {
	m := NewMatcher(0.82, nil)

	score := m.NameSimilarity("Pet Simulator X", "Minecraft Hardcore Episode 12")
	if score >= 0.82 {
		t.Errorf("expected unrelated strings to score below threshold, got %v", score)
	}
	if m.NameSimilarity("", "anything") != 0 {
		t.Error("expected empty name to score zero")
	}
	if m.NameSimilarity("anything", "") != 0 {
		t.Error("expected empty text to score zero")
	}
}

func TestBestMatch_TitlePrimary(t *testing.T) {
	m := NewMatcher(0.82, nil)
	now := testNow

	videos := []*models.VideoRecord{
		vid("aaa", "Pet Simulator X NEW Merge Pets Update!!", "", now.Add(-10*time.Hour)),
		vid("bbb", "Minecraft Hardcore Episode 12", "", now.Add(-5*time.Hour)),
	}

	match := m.BestMatch("Pet Simulator X", nil, videos, now.Add(-48*time.Hour), now)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Video.VideoID != "aaa" {
		t.Errorf("expected video aaa, got %s", match.Video.VideoID)
	}
	if match.Score < 0.82 {
		t.Errorf("expected a qualifying score, got %v", match.Score)
	}
}

func TestBestMatch_DescriptionSecondary(t *testing.T) {
	m := NewMatcher(0.82, nil)
	now := testNow

	videos := []*models.VideoRecord{
		vid("ccc", "HUGE update you all missed!", "today we tour Brookhaven RP and its new mansion", now.Add(-6*time.Hour)),
	}

	match := m.BestMatch("Brookhaven RP", nil, videos, now.Add(-48*time.Hour), now)
	if match == nil {
		t.Fatal("expected a description-backed match")
	}
	if match.Score < 0.82 {
		t.Errorf("expected the description score to qualify, got %v", match.Score)
	}
}

func TestHintedTitleMatch(t *testing.T) {
	m := NewMatcher(0.82, []string{"new", "update", "Secret", "  ", "new"})

	tests := []struct {
		name    string
		games   []string
		title   string
		matches bool
	}{
		{"hint and name", []string{"Brookhaven"}, "NEW Brookhaven Tour 2025", true},
		{"hint and alias", []string{"Pet Simulator X", "PSX"}, "psx secret pets revealed", true},
		{"hint without name", []string{"Brookhaven"}, "NEW Minecraft base tour", false},
		{"name without hint", []string{"Brookhaven"}, "Brookhaven house speedrun", false},
		{"empty name ignored", []string{"  "}, "NEW update out now", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.hintedTitleMatch(tt.games, tt.title); got != tt.matches {
				t.Errorf("hintedTitleMatch(%v, %q) = %v, expected %v", tt.games, tt.title, got, tt.matches)
			}
		})
	}

	bare := NewMatcher(0.82, nil)
	if bare.hintedTitleMatch([]string{"Brookhaven"}, "NEW Brookhaven Tour 2025") {
		t.Error("expected no match when no hints are configured")
	}
}

func TestBestMatch_WindowBounds(t *testing.T) {
	m := NewMatcher(0.82, nil)
	now := testNow
	start := now.Add(-48 * time.Hour)

	tooOld := vid("old", "Pet Simulator X gameplay", "", start.Add(-time.Minute))
	tooNew := vid("new", "Pet Simulator X gameplay", "", now.Add(time.Minute))
	inside := vid("in", "Pet Simulator X gameplay", "", now.Add(-47*time.Hour))

	match := m.BestMatch("Pet Simulator X", nil, []*models.VideoRecord{tooOld, tooNew, inside}, start, now)
	if match == nil {
		t.Fatal("expected the in-window video to match")
	}
	if match.Video.VideoID != "in" {
		t.Errorf("expected only the in-window video, got %s", match.Video.VideoID)
	}

	none := m.BestMatch("Pet Simulator X", nil, []*models.VideoRecord{tooOld, tooNew}, start, now)
	if none != nil {
		t.Errorf("expected no match outside the window, got %s", none.Video.VideoID)
	}
}

func TestBestMatch_TieBreaks(t *testing.T) {
	m := NewMatcher(0.82, nil)
	now := testNow

	// Both titles embed the name verbatim, so the scores tie at 1.0 and the
	// more recently published video wins.
	older := vid("older", "Adopt Me! new pets showcase", "", now.Add(-20*time.Hour))
	newer := vid("newer", "Adopt Me! secret furniture", "", now.Add(-2*time.Hour))

	match := m.BestMatch("Adopt Me!", nil, []*models.VideoRecord{older, newer}, now.Add(-48*time.Hour), now)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Video.VideoID != "newer" {
		t.Errorf("expected the newer video to win the score tie, got %s", match.Video.VideoID)
	}

	// Identical publish instants fall back to the smaller video ID.
	same := now.Add(-3 * time.Hour)
	a := vid("aaa", "Adopt Me! trading tips", "", same)
	b := vid("bbb", "Adopt Me! trading tricks", "", same)
	match = m.BestMatch("Adopt Me!", nil, []*models.VideoRecord{b, a}, now.Add(-48*time.Hour), now)
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.Video.VideoID != "aaa" {
		t.Errorf("expected the smaller video ID on a full tie, got %s", match.Video.VideoID)
	}
}

func TestBestMatch_Aliases(t *testing.T) {
	m := NewMatcher(0.82, nil)
	now := testNow

	videos := []*models.VideoRecord{
		vid("ddd", "DOORS floor 2 is finally here", "", now.Add(-4*time.Hour)),
	}

	if m.BestMatch("Untitled Door Game", nil, videos, now.Add(-48*time.Hour), now) != nil {
		t.Fatal("expected no match on the display name alone")
	}

	match := m.BestMatch("Untitled Door Game", []string{"DOORS"}, videos, now.Add(-48*time.Hour), now)
	if match == nil {
		t.Fatal("expected the alias to match")
	}
	if match.Video.VideoID != "ddd" {
		t.Errorf("expected video ddd, got %s", match.Video.VideoID)
	}
}

func TestMatcher_ThresholdMonotonic(t *testing.T) {
	now := testNow
	videos := []*models.VideoRecord{
		vid("v1", "Pet Simulator X NEW Merge Pets Update!!", "", now.Add(-10*time.Hour)),
		vid("v2", "Pet Simulatr X huge secret", "", now.Add(-11*time.Hour)),
		vid("v3", "pet sim", "", now.Add(-12*time.Hour)),
		vid("v4", "Minecraft Hardcore Episode 12", "", now.Add(-13*time.Hour)),
	}

	count := func(threshold float64) int {
		m := NewMatcher(threshold, nil)
		names := []string{"Pet Simulator X"}
		n := 0
		for _, v := range videos {
			if _, ok := m.scoreVideo(names, v); ok {
				n++
			}
		}
		return n
	}

	prev := len(videos) + 1
	for _, threshold := range []float64{0.5, 0.82, 0.95, 1.0} {
		n := count(threshold)
		if n > prev {
			t.Errorf("raising the threshold to %v increased matches to %d", threshold, n)
		}
		prev = n
	}
}
