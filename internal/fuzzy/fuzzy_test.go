package fuzzy

import (
	"testing"

	"github.com/BurtHarris/dupescan/internal/scanner"
)

func files(paths ...string) []*scanner.FileRecord {
	out := make([]*scanner.FileRecord, 0, len(paths))
	for _, p := range paths {
		out = append(out, &scanner.FileRecord{Path: p})
	}
	return out
}

// =============================================================================
// Matcher Construction
// =============================================================================

func TestNewMatcherThresholdBounds(t *testing.T) {
	for _, v := range []float64{0, 0.5, 0.8, 1} {
		if _, err := NewMatcher(v); err != nil {
			t.Errorf("NewMatcher(%v) failed: %v", v, err)
		}
	}
	for _, v := range []float64{-0.1, 1.1, 2} {
		if _, err := NewMatcher(v); err == nil {
			t.Errorf("NewMatcher(%v) should fail", v)
		}
	}
}

// =============================================================================
// Similarity
// =============================================================================

func TestSimilarity(t *testing.T) {
	m, _ := NewMatcher(DefaultThreshold)

	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "vacation", "vacation", 1.0, 1.0},
		{"empty pair", "", "", 1.0, 1.0},
		{"near match", "vacation_2023", "vacation_2024", 0.8, 0.99},
		{"unrelated", "budget", "holiday_video", 0.0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("Similarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
			if m.Similarity(tt.b, tt.a) != got {
				t.Errorf("similarity is not symmetric for %q/%q", tt.a, tt.b)
			}
		})
	}
}

// =============================================================================
// Name Normalization
// =============================================================================

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"strips extension", "/videos/holiday.mp4", "holiday"},
		{"keeps inner dots", "/docs/report.v2.pdf", "report.v2"},
		{"collapses whitespace", "/x/my   trip  video.mov", "my trip video"},
		{"no extension", "/x/README", "README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeName(tt.path); got != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.path, got, tt.expected)
			}
		})
	}
}

func TestNormalizeNameUnicode(t *testing.T) {
	// Same visible name, one precomposed and one with a combining accent.
	composed := "/a/café.mp4"
	decomposed := "/b/café.mp4"

	if NormalizeName(composed) != NormalizeName(decomposed) {
		t.Error("NFC normalization should make both spellings compare equal")
	}

	m, _ := NewMatcher(DefaultThreshold)
	if m.Similarity(NormalizeName(composed), NormalizeName(decomposed)) != 1.0 {
		t.Error("differently encoded identical names must score 1.0")
	}
}

// =============================================================================
// Grouping
// =============================================================================

func TestFindPotentialMatchesSameStemDifferentExt(t *testing.T) {
	m, _ := NewMatcher(DefaultThreshold)
	groups := m.FindPotentialMatches(files("/x/report.doc", "/x/report.pdf"))

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	g := groups[0]
	if len(g.Files) != 2 {
		t.Fatalf("group has %d members, want 2", len(g.Files))
	}
	for path, score := range g.Scores {
		if score != 1.0 {
			t.Errorf("score for %s = %v, want 1.0 (same stem)", path, score)
		}
	}
}

func TestFindPotentialMatchesUnrelatedNames(t *testing.T) {
	m, _ := NewMatcher(DefaultThreshold)
	groups := m.FindPotentialMatches(files("/x/budget.xlsx", "/x/holiday.mp4", "/x/notes.txt"))

	if len(groups) != 0 {
		t.Errorf("unrelated names should not group: %v", groups)
	}
}

func TestFindPotentialMatchesTransitiveChain(t *testing.T) {
	// a~b and b~c but a and c may fall below threshold on their own; the
	// chain still yields one connected group.
	m, _ := NewMatcher(DefaultThreshold)
	groups := m.FindPotentialMatches(files(
		"/x/vacation_video_1.mp4",
		"/x/vacation_video_12.mp4",
		"/x/vacation_video_123.mp4",
	))

	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1 connected component", len(groups))
	}
	if len(groups[0].Files) != 3 {
		t.Errorf("chain should merge into one group of 3, got %d", len(groups[0].Files))
	}
}

func TestFindPotentialMatchesThresholdExtremes(t *testing.T) {
	input := files("/x/alpha.txt", "/x/omega.txt", "/x/thing.txt")

	// Threshold 0 links everything into one group.
	loose, _ := NewMatcher(0)
	groups := loose.FindPotentialMatches(input)
	if len(groups) != 1 || len(groups[0].Files) != 3 {
		t.Errorf("threshold 0 should produce one all-inclusive group, got %v", groups)
	}

	// Threshold 1 links only identical normalized names.
	strict, _ := NewMatcher(1)
	groups = strict.FindPotentialMatches(files("/a/same.mp4", "/b/same.mkv", "/c/other.mp4"))
	if len(groups) != 1 || len(groups[0].Files) != 2 {
		t.Errorf("threshold 1 should group only exact stems, got %v", groups)
	}
}

func TestFindPotentialMatchesFewInputs(t *testing.T) {
	m, _ := NewMatcher(DefaultThreshold)
	if got := m.FindPotentialMatches(nil); got != nil {
		t.Errorf("nil input should yield nil, got %v", got)
	}
	if got := m.FindPotentialMatches(files("/x/only.txt")); got != nil {
		t.Errorf("single file should yield nil, got %v", got)
	}
}

func TestFindPotentialMatchesDeterministic(t *testing.T) {
	m, _ := NewMatcher(DefaultThreshold)
	input := files("/x/trip_01.mp4", "/x/trip_02.mp4", "/x/budget.xlsx", "/x/trip_03.mp4")

	first := m.FindPotentialMatches(input)
	second := m.FindPotentialMatches(input)

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("got %d and %d groups, want 1 each", len(first), len(second))
	}
	for i := range first[0].Files {
		if first[0].Files[i].Path != second[0].Files[i].Path {
			t.Fatal("member order differs between runs")
		}
	}
	if first[0].Files[0].Path != "/x/trip_01.mp4" {
		t.Errorf("group should start at the first-seen member, got %s", first[0].Files[0].Path)
	}
}
