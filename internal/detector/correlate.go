package detector

import (
	"strings"
	"time"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/earlyshift/earlyshift/internal/models"
)

// VideoMatch pairs a correlated video with its similarity score.
type VideoMatch struct {
	Video *models.VideoRecord
	Score float64
}

// Matcher scores creator videos against universe display names using
// Smith-Waterman-Gotoh local alignment. The metric normalizes by the shorter
// input, so a game name embedded verbatim in a longer title scores 1.0 and
// minor misspellings degrade gracefully instead of falling to zero. Titles
// that name the universe exactly next to a keyword hint match regardless of
// alignment, floored at the threshold.
type Matcher struct {
	threshold float64
	hints     []string
	metric    *metrics.SmithWatermanGotoh
}

// NewMatcher returns a matcher that accepts matches at or above threshold.
// hints is the keyword vocabulary for the exact-name escape hatch; it may be
// empty.
func NewMatcher(threshold float64, hints []string) *Matcher {
	seen := make(map[string]bool)
	cleaned := make([]string, 0, len(hints))
	for _, hint := range hints {
		hint = strings.ToLower(strings.TrimSpace(hint))
		if hint == "" || seen[hint] {
			continue
		}
		seen[hint] = true
		cleaned = append(cleaned, hint)
	}
	return &Matcher{
		threshold: threshold,
		hints:     cleaned,
		metric:    metrics.NewSmithWatermanGotoh(),
	}
}

// NameSimilarity returns the local-alignment similarity between a universe
// name and a free-text field, in [0, 1]. Comparison is case-insensitive;
// empty inputs score zero.
func (m *Matcher) NameSimilarity(name, text string) float64 {
	name = strings.ToLower(strings.TrimSpace(name))
	text = strings.ToLower(strings.TrimSpace(text))
	if name == "" || text == "" {
		return 0
	}
	return strutil.Similarity(name, text, m.metric)
}

// scoreVideo scores one video against a set of candidate names. The title is
// the primary signal; the description is consulted only when every title
// score falls below the threshold. The returned score is the one that
// qualified (or the best title score when nothing did).
func (m *Matcher) scoreVideo(names []string, video *models.VideoRecord) (float64, bool) {
	var best float64
	for _, name := range names {
		if s := m.NameSimilarity(name, video.Title); s > best {
			best = s
		}
	}
	if best >= m.threshold {
		return best, true
	}

	// Exact name plus a hint word in the title qualifies even when the
	// alignment score falls short. The score is floored at the threshold
	// so video-backed confidence keeps its lower bound.
	if m.hintedTitleMatch(names, video.Title) {
		return m.threshold, true
	}

	if video.Description != "" {
		var descBest float64
		for _, name := range names {
			if s := m.NameSimilarity(name, video.Description); s > descBest {
				descBest = s
			}
		}
		if descBest >= m.threshold {
			return descBest, true
		}
	}
	return best, false
}

// BestMatch returns the highest-scoring video for a universe among those
// published inside [windowStart, windowEnd], or nil when none qualifies.
// Aliases are scored alongside the display name so renamed or abbreviated
// universes still correlate.
//
// Ties resolve deterministically: higher score first, then the more recently
// published video, then the lexically smaller video ID.
func (m *Matcher) BestMatch(name string, aliases []string, videos []*models.VideoRecord, windowStart, windowEnd time.Time) *VideoMatch {
	names := make([]string, 0, 1+len(aliases))
	names = append(names, name)
	names = append(names, aliases...)

	var best *VideoMatch
	for _, video := range videos {
		if video == nil {
			continue
		}
		if video.PublishedAt.Before(windowStart) || video.PublishedAt.After(windowEnd) {
			continue
		}
		score, ok := m.scoreVideo(names, video)
		if !ok {
			continue
		}
		if best == nil || beats(score, video, best) {
			best = &VideoMatch{Video: video, Score: score}
		}
	}
	return best
}

// hintedTitleMatch reports whether the title carries a keyword hint and one
// of the candidate names verbatim, both case-folded.
func (m *Matcher) hintedTitleMatch(names []string, title string) bool {
	if len(m.hints) == 0 {
		return false
	}
	title = strings.ToLower(title)

	hinted := false
	for _, hint := range m.hints {
		if strings.Contains(title, hint) {
			hinted = true
			break
		}
	}
	if !hinted {
		return false
	}
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" && strings.Contains(title, name) {
			return true
		}
	}
	return false
}

// beats reports whether a new scored video outranks the current best.
func beats(score float64, video *models.VideoRecord, best *VideoMatch) bool {
	switch {
	case score != best.Score:
		return score > best.Score
	case !video.PublishedAt.Equal(best.Video.PublishedAt):
		return video.PublishedAt.After(best.Video.PublishedAt)
	default:
		return video.VideoID < best.Video.VideoID
	}
}
