package detector

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/earlyshift/earlyshift/internal/models"
)

var testHints = []string{"new", "update", "secret", "mechanic", "code", "feature", "quest", "event"}

func TestExtract_TitleCue(t *testing.T) {
	e := NewExtractor(testHints)

	phrase := e.Extract("NEW Merge Pets Update!!", "")
	if phrase != "Merge Pets Update!!" {
		t.Errorf("expected %q, got %q", "Merge Pets Update!!", phrase)
	}
	if !strings.Contains(phrase, "Merge Pets") {
		t.Errorf("expected the phrase to contain the mechanic, got %q", phrase)
	}
}

func TestExtract_SeparatorConsumed(t *testing.T) {
	e := NewExtractor(testHints)

	cases := map[string]string{
		"UPDATE: Fairy World is here": "Fairy World is here",
		"Secret- hidden chamber":      "hidden chamber",
		"new   triple   spacing":      "triple   spacing",
	}
	for title, want := range cases {
		if got := e.Extract(title, ""); got != want {
			t.Errorf("Extract(%q) = %q, want %q", title, got, want)
		}
	}
}

func TestExtract_FirstCuePositionWins(t *testing.T) {
	e := NewExtractor(testHints)

	// "added" sits before "SECRET" in the text, so its trailing phrase wins.
	phrase := e.Extract("", "They added a SECRET door in the basement")
	if phrase != "a SECRET door in the basement" {
		t.Errorf("expected the earliest cue to anchor the phrase, got %q", phrase)
	}
}

func TestExtract_DescriptionFallback(t *testing.T) {
	e := NewExtractor(testHints)

	phrase := e.Extract("So I played this game for 24 hours", "Today they added Dragon World to the map")
	if phrase != "Dragon World to the map" {
		t.Errorf("expected the description phrase, got %q", phrase)
	}
}

func TestExtract_NoCue(t *testing.T) {
	e := NewExtractor(testHints)

	if phrase := e.Extract("Just chatting and chilling", "no announcements here"); phrase != "" {
		t.Errorf("expected an empty phrase without cues, got %q", phrase)
	}
	if phrase := e.Extract("", ""); phrase != "" {
		t.Errorf("expected an empty phrase for empty input, got %q", phrase)
	}
}

func TestExtract_CaseInsensitive(t *testing.T) {
	e := NewExtractor(testHints)

	if phrase := e.Extract("secret CODE revealed", ""); phrase != "CODE revealed" {
		t.Errorf("expected case-insensitive cue matching, got %q", phrase)
	}
}

func TestExtract_SubstringCues(t *testing.T) {
	e := NewExtractor(testHints)

	// Cues match as substrings, so "renewed" triggers "new". Word-boundary
	// filtering would also reject titles like "NEW!!pets", which cost more
	// than the occasional false phrase.
	phrase := e.Extract("Renewed my base from scratch", "")
	if phrase != "ed my base from scratch" {
		t.Errorf("expected substring cue semantics, got %q", phrase)
	}
}

func TestExtract_StopsAtNewline(t *testing.T) {
	e := NewExtractor(testHints)

	phrase := e.Extract("", "patch notes\nNEW Dragon World zone\nalso minor bug fixes")
	if phrase != "Dragon World zone" {
		t.Errorf("expected the phrase to stop at the line break, got %q", phrase)
	}
}

func TestExtract_LengthCap(t *testing.T) {
	e := NewExtractor(testHints)

	long := "NEW " + strings.Repeat("mega ", 60)
	phrase := e.Extract(long, "")
	if utf8.RuneCountInString(phrase) != models.MaxMechanicPhraseLen {
		t.Errorf("expected the phrase capped at %d runes, got %d",
			models.MaxMechanicPhraseLen, utf8.RuneCountInString(phrase))
	}
}

func TestExtract_HintsWithMetacharacters(t *testing.T) {
	// Configured hints are matched literally even when they carry regexp
	// metacharacters.
	e := NewExtractor([]string{"v2.0"})

	if phrase := e.Extract("v2.0 Skyblock rework", ""); phrase != "Skyblock rework" {
		t.Errorf("expected literal hint matching, got %q", phrase)
	}
	if phrase := e.Extract("v2x0 should not match", ""); phrase != "" {
		t.Errorf("expected the dot to be literal, got %q", phrase)
	}
}

func TestExtract_FixedCues(t *testing.T) {
	// "introducing", "added", and "unlock" work even with a minimal hint set.
	e := NewExtractor([]string{"zzz"})

	if phrase := e.Extract("Introducing the Trading Plaza", ""); phrase != "the Trading Plaza" {
		t.Errorf("expected the built-in cue to fire, got %q", phrase)
	}
}
