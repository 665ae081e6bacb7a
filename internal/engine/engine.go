// Package engine wires the scan pipeline together: directory traversal,
// duplicate detection, and fuzzy name matching, assembled into a ScanResult.
package engine

import (
	"context"
	"time"

	"github.com/BurtHarris/dupescan/internal/cache"
	"github.com/BurtHarris/dupescan/internal/detector"
	"github.com/BurtHarris/dupescan/internal/fuzzy"
	"github.com/BurtHarris/dupescan/internal/hasher"
	"github.com/BurtHarris/dupescan/internal/progress"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

// Metadata describes one scan run.
type Metadata struct {
	Roots        []string             `json:"roots" yaml:"roots"`
	Recursive    bool                 `json:"recursive" yaml:"recursive"`
	StartTime    time.Time            `json:"start_time" yaml:"start_time"`
	EndTime      time.Time            `json:"end_time" yaml:"end_time"`
	Duration     time.Duration        `json:"duration_ns" yaml:"duration_ns"`
	FilesFound   int                  `json:"files_found" yaml:"files_found"`
	BytesScanned int64                `json:"bytes_scanned" yaml:"bytes_scanned"`
	Errors       []*scanner.ScanError `json:"-" yaml:"-"`
}

// ScanResult is the complete outcome of a scan. It is immutable once
// returned from Run and safe to hand to any number of exporters.
type ScanResult struct {
	Metadata         Metadata                     `json:"metadata" yaml:"metadata"`
	DuplicateGroups  []*detector.DuplicateGroup   `json:"duplicate_groups" yaml:"duplicate_groups"`
	PotentialMatches []*fuzzy.PotentialMatchGroup `json:"potential_matches" yaml:"potential_matches"`
	UniqueFiles      []*scanner.FileRecord        `json:"unique_files" yaml:"unique_files"`
}

// TotalWastedSpace sums reclaimable bytes across all duplicate groups.
func (r *ScanResult) TotalWastedSpace() int64 {
	var total int64
	for _, g := range r.DuplicateGroups {
		total += g.WastedSpace()
	}
	return total
}

// TotalDuplicateFiles returns the number of files in duplicate groups
func (r *ScanResult) TotalDuplicateFiles() int {
	var n int
	for _, g := range r.DuplicateGroups {
		n += len(g.Files)
	}
	return n
}

// Options configures an Engine.
type Options struct {
	Scan           scanner.Options
	FuzzyThreshold float64
	Workers        int // hashing workers; 0 means auto
	// Hasher overrides the content hasher; nil selects the default
	// streaming implementation.
	Hasher detector.Hasher
}

// Engine runs the full pipeline.
type Engine struct {
	opts     Options
	scanner  *scanner.Scanner
	detector *detector.Detector
	matcher  *fuzzy.Matcher
	reporter *progress.Reporter
}

// New creates an Engine using the given hash cache. Configuration errors
// (such as an out-of-range fuzzy threshold) surface here, before any
// scanning begins.
func New(opts Options, hc cache.HashCache) (*Engine, error) {
	matcher, err := fuzzy.NewMatcher(opts.FuzzyThreshold)
	if err != nil {
		return nil, err
	}

	h := opts.Hasher
	if h == nil {
		h = hasher.New()
	}
	det := detector.New(h, hc)
	if opts.Workers > 0 {
		det.SetWorkers(opts.Workers)
	}

	return &Engine{
		opts:     opts,
		scanner:  scanner.New(opts.Scan),
		detector: det,
		matcher:  matcher,
	}, nil
}

// SetProgressReporter sets an optional progress reporter, shared with the
// scanning and hashing stages.
func (e *Engine) SetProgressReporter(r *progress.Reporter) {
	e.reporter = r
	e.scanner.SetProgressReporter(r)
	e.detector.SetProgressReporter(r)
}

// Run executes scan → detect → fuzzy-match and assembles the result.
// Per-file errors accumulate in the result's metadata; Run itself fails
// only for unusable configuration, no scannable root, or cancellation.
func (e *Engine) Run(ctx context.Context, roots ...string) (*ScanResult, error) {
	meta := Metadata{
		Roots:     roots,
		Recursive: e.opts.Scan.Recursive,
		StartTime: time.Now(),
	}

	entries, err := e.scanner.Scan(ctx, roots...)
	if err != nil {
		return nil, err
	}

	var records []*scanner.FileRecord
	for entry := range entries {
		if entry.Err != nil {
			meta.Errors = append(meta.Errors, entry.Err)
			continue
		}
		records = append(records, entry.Record)
		meta.FilesFound++
		meta.BytesScanned += entry.Record.Size
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	groups, unique, hashErrs, err := e.detector.Detect(ctx, records)
	if err != nil {
		return nil, err
	}
	meta.Errors = append(meta.Errors, hashErrs...)

	e.publish(progress.Update{
		Phase:      progress.PhaseAnalyze,
		FilesFound: meta.FilesFound,
		StartTime:  meta.StartTime,
	})

	matches := e.matcher.FindPotentialMatches(unique)

	meta.EndTime = time.Now()
	meta.Duration = meta.EndTime.Sub(meta.StartTime)

	e.publish(progress.Update{
		Phase:      progress.PhaseComplete,
		FilesFound: meta.FilesFound,
		BytesFound: meta.BytesScanned,
		ErrorCount: len(meta.Errors),
		StartTime:  meta.StartTime,
	})

	return &ScanResult{
		Metadata:         meta,
		DuplicateGroups:  groups,
		PotentialMatches: matches,
		UniqueFiles:      unique,
	}, nil
}

func (e *Engine) publish(u progress.Update) {
	if e.reporter != nil {
		e.reporter.Publish(u)
	}
}
