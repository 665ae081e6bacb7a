// Package resolve decides which members of a duplicate group are safe to
// delete. Content equality alone is not enough to pick a victim: two
// byte-identical files can both be wanted (a series episode copied into two
// collections), while "report (1).pdf" next to "report.pdf" is almost
// always a stray browser re-download. The heuristics here encode that
// judgment; anything ambiguous is left for the interactive resolver.
package resolve

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/BurtHarris/dupescan/internal/detector"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

var (
	numberedRe = regexp.MustCompile(`^(.+) \((\d+)\)$`)

	autoGeneratedRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Rescued_video_`),
		regexp.MustCompile(`(?i)^video_\d+`),
		regexp.MustCompile(`(?i)^download_\d+`),
		regexp.MustCompile(`(?i)^temp_`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_`),
	}

	seriesRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpart\s*\d+\b`),
		regexp.MustCompile(`(?i)\bepisode\s*\d+\b`),
		regexp.MustCompile(`(?i)\bep\s*\d+\b`),
		regexp.MustCompile(`(?i)\bvol(?:ume)?\s*\d+\b`),
		regexp.MustCompile(`(^|\D)\d{1,3}$`),
		regexp.MustCompile(`[-_]\d{1,3}$`),
	}
)

// stem returns the base name without its extension
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsNumberedDuplicate reports whether a file name carries the browser
// re-download marker, like "invoice (1).pdf".
func IsNumberedDuplicate(path string) bool {
	return numberedRe.MatchString(stem(path))
}

// NumberedBase splits "invoice (2)" into ("invoice", 2).
func NumberedBase(path string) (base string, n int, ok bool) {
	m := numberedRe.FindStringSubmatch(stem(path))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}

// IsAutoGeneratedName reports whether a file name looks machine-generated
// (recovery tools, camera imports, download managers).
func IsAutoGeneratedName(path string) bool {
	s := stem(path)
	for _, re := range autoGeneratedRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsSeriesNumbered reports whether a file name looks like part of a
// numbered series ("part 1", "ep 03", trailing digits). Series members are
// never auto-selected for deletion even when their content matches.
func IsSeriesNumbered(path string) bool {
	s := strings.ToLower(stem(path))
	for _, re := range seriesRes {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// AutoSelect returns the members of a duplicate group that are safe to
// delete without human review, or nil when the group needs judgment.
//
// Safe means: the group contains a plain-named original plus numbered
// re-downloads (delete the numbered ones), or consists solely of numbered
// copies (keep the lowest number). Any series-looking member disqualifies
// the whole group.
func AutoSelect(g *detector.DuplicateGroup) []*scanner.FileRecord {
	for _, f := range g.Files {
		if IsSeriesNumbered(f.Path) && !IsNumberedDuplicate(f.Path) {
			return nil
		}
	}

	var numbered, plain []*scanner.FileRecord
	for _, f := range g.Files {
		if IsNumberedDuplicate(f.Path) {
			numbered = append(numbered, f)
		} else {
			plain = append(plain, f)
		}
	}

	if len(plain) > 0 && len(numbered) > 0 {
		// Numbered copies must actually derive from a plain member's name.
		var victims []*scanner.FileRecord
		for _, f := range numbered {
			base, _, _ := NumberedBase(f.Path)
			for _, p := range plain {
				if base == stem(p.Path) {
					victims = append(victims, f)
					break
				}
			}
		}
		return victims
	}

	if len(plain) == 0 && len(numbered) > 1 {
		sorted := append([]*scanner.FileRecord{}, numbered...)
		sort.Slice(sorted, func(i, j int) bool {
			_, ni, _ := NumberedBase(sorted[i].Path)
			_, nj, _ := NumberedBase(sorted[j].Path)
			if ni != nj {
				return ni < nj
			}
			return sorted[i].Path < sorted[j].Path
		})
		return sorted[1:]
	}

	return nil
}

// shellQuote single-quotes a path for POSIX sh
func shellQuote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// WriteDeletionScript renders a reviewable POSIX shell script that removes
// the given files. Nothing is deleted directly; the script is the product.
func WriteDeletionScript(w io.Writer, files []*scanner.FileRecord) error {
	var total int64
	for _, f := range files {
		total += f.Size
	}

	header := fmt.Sprintf(`#!/bin/sh
# Deletion script generated by dupescan on %s
# Files: %d, reclaimable: %s
# Review carefully before running. Every line below is destructive.
set -eu

`, time.Now().Format(time.RFC3339), len(files), humanize.IBytes(uint64(total)))

	if _, err := io.WriteString(w, header); err != nil {
		return fmt.Errorf("failed to write deletion script: %w", err)
	}

	for _, f := range files {
		line := fmt.Sprintf("rm -- %s  # %s\n", shellQuote(f.Path), humanize.IBytes(uint64(f.Size)))
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("failed to write deletion script: %w", err)
		}
	}

	footer := fmt.Sprintf("\necho 'Deleted %d files (%s reclaimed)'\n", len(files), humanize.IBytes(uint64(total)))
	if _, err := io.WriteString(w, footer); err != nil {
		return fmt.Errorf("failed to write deletion script: %w", err)
	}
	return nil
}
