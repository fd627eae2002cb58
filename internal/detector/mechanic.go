package detector

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/earlyshift/earlyshift/internal/models"
)

// fixedCues are always part of the extraction vocabulary, on top of whatever
// keyword hints the configuration supplies.
var fixedCues = []string{"introducing", "added", "unlock"}

// Extractor pulls a short mechanic phrase out of video text: the run of text
// that follows the first keyword hint, e.g. "NEW Merge Pets Update!!" yields
// "Merge Pets Update!!". When no hint appears in either the title or the
// description the phrase is simply empty; a correlated video without an
// extractable phrase is still a valid spike.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles the cue vocabulary into a single case-insensitive
// pattern. Hints are matched literally, so configured hints may contain
// regexp metacharacters.
func NewExtractor(hints []string) *Extractor {
	seen := make(map[string]bool)
	cues := make([]string, 0, len(hints)+len(fixedCues))
	for _, hint := range append(append([]string{}, hints...), fixedCues...) {
		hint = strings.ToLower(strings.TrimSpace(hint))
		if hint == "" || seen[hint] {
			continue
		}
		seen[hint] = true
		cues = append(cues, regexp.QuoteMeta(hint))
	}
	pattern := `(?i)(?:` + strings.Join(cues, "|") + `)[:\-\s]*(.*)`
	return &Extractor{re: regexp.MustCompile(pattern)}
}

// Extract scans the title first, then the description, and returns the text
// trailing the first cue, trimmed and capped at MaxMechanicPhraseLen runes.
// Returns the empty string when neither field yields a phrase.
func (e *Extractor) Extract(title, description string) string {
	if phrase := e.extractFrom(title); phrase != "" {
		return phrase
	}
	return e.extractFrom(description)
}

func (e *Extractor) extractFrom(text string) string {
	if text == "" {
		return ""
	}
	match := e.re.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	// The capture stops at the first newline, which keeps description
	// extractions to the sentence that announced the feature.
	phrase := strings.TrimSpace(match[1])
	if utf8.RuneCountInString(phrase) <= models.MaxMechanicPhraseLen {
		return phrase
	}
	return string([]rune(phrase)[:models.MaxMechanicPhraseLen])
}
