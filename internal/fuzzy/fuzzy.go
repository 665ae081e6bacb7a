// Package fuzzy groups files whose names look alike. It is a low-confidence
// signal for manual review, applied only to files that duplicate detection
// already cleared: same-named files with different content are often renamed
// copies or re-downloads.
package fuzzy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/BurtHarris/dupescan/internal/scanner"
)

// DefaultThreshold is the similarity score at or above which two names are
// considered potential matches.
const DefaultThreshold = 0.8

// PotentialMatchGroup is a set of two or more files with similar base names.
type PotentialMatchGroup struct {
	// BaseName is the normalized name the group was seeded from.
	BaseName  string                `json:"base_name" yaml:"base_name"`
	Threshold float64               `json:"threshold" yaml:"threshold"`
	Files     []*scanner.FileRecord `json:"files" yaml:"files"`
	// Scores maps each member path to its similarity against BaseName.
	Scores map[string]float64 `json:"scores" yaml:"scores"`
}

// Matcher finds groups of similarly named files.
type Matcher struct {
	threshold float64
	params    *levenshtein.Params
}

// NewMatcher creates a Matcher. The threshold must be within [0, 1].
func NewMatcher(threshold float64) (*Matcher, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("fuzzy threshold must be between 0 and 1, got %v", threshold)
	}
	return &Matcher{
		threshold: threshold,
		params:    levenshtein.NewParams(),
	}, nil
}

// FindPotentialMatches compares every pair of files by normalized base name
// (extension stripped) and merges files linked at or above the threshold
// into groups. Only groups with at least two members are returned.
//
// This is O(n²) in the number of files; callers feed it the post-dedup
// unique set, which is typically a small fraction of the scan.
func (m *Matcher) FindPotentialMatches(files []*scanner.FileRecord) []*PotentialMatchGroup {
	if len(files) < 2 {
		return nil
	}

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = NormalizeName(f.Path)
	}

	// Union-find over file indices; every qualifying pair links its members.
	parent := make([]int, len(files))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		// Keep the smaller index as root so group order follows traversal.
		if ra > rb {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}

	for i := 0; i < len(files); i++ {
		for j := i + 1; j < len(files); j++ {
			if m.Similarity(names[i], names[j]) >= m.threshold {
				union(i, j)
			}
		}
	}

	members := make(map[int][]int)
	var roots []int
	for i := range files {
		r := find(i)
		if len(members[r]) == 0 {
			roots = append(roots, r)
		}
		members[r] = append(members[r], i)
	}

	var groups []*PotentialMatchGroup
	for _, r := range roots {
		idx := members[r]
		if len(idx) < 2 {
			continue
		}
		g := &PotentialMatchGroup{
			BaseName:  names[idx[0]],
			Threshold: m.threshold,
			Scores:    make(map[string]float64, len(idx)),
		}
		for _, i := range idx {
			g.Files = append(g.Files, files[i])
			g.Scores[files[i].Path] = m.Similarity(g.BaseName, names[i])
		}
		groups = append(groups, g)
	}
	return groups
}

// Similarity scores two normalized names on a 0–1 scale. Identical strings
// always score 1.0.
func (m *Matcher) Similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	return levenshtein.Similarity(a, b, m.params)
}

// NormalizeName extracts the comparison key for a path: the base name with
// the extension stripped, Unicode-normalized to NFC so that differently
// encoded spellings of the same name compare equal, with runs of whitespace
// collapsed.
func NormalizeName(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = norm.NFC.String(base)
	return strings.Join(strings.Fields(base), " ")
}
