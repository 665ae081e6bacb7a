// Package detector implements two-stage duplicate detection: files are
// bucketed by exact size, and content hashes are computed only within
// buckets that have at least two members. Most files have no size twin, so
// the expensive hashing step touches a small fraction of the scan.
package detector

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/BurtHarris/dupescan/internal/cache"
	"github.com/BurtHarris/dupescan/internal/progress"
	"github.com/BurtHarris/dupescan/internal/scanner"
)

// Hasher computes a content digest for one file.
type Hasher interface {
	HashFile(ctx context.Context, path string) (string, error)
}

// DuplicateGroup is a set of two or more files with identical content.
type DuplicateGroup struct {
	Hash  string                `json:"hash" yaml:"hash"`
	Files []*scanner.FileRecord `json:"files" yaml:"files"`
}

// TotalSize returns the combined size of all members
func (g *DuplicateGroup) TotalSize() int64 {
	var total int64
	for _, f := range g.Files {
		total += f.Size
	}
	return total
}

// WastedSpace returns the bytes reclaimable by keeping a single copy.
func (g *DuplicateGroup) WastedSpace() int64 {
	if len(g.Files) == 0 {
		return 0
	}
	return g.TotalSize() - g.Files[0].Size
}

// Detector groups files by content, consulting the hash cache before
// computing digests.
type Detector struct {
	hasher   Hasher
	cache    cache.HashCache
	workers  int
	reporter *progress.Reporter
}

// New creates a Detector. The hashing stage runs on a bounded worker pool
// sized to the machine, capped to keep disk seek thrash in check.
func New(h Hasher, c cache.HashCache) *Detector {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	return &Detector{hasher: h, cache: c, workers: workers}
}

// SetWorkers overrides the hashing pool size (minimum 1)
func (d *Detector) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	d.workers = n
}

// SetProgressReporter sets an optional progress reporter
func (d *Detector) SetProgressReporter(r *progress.Reporter) {
	d.reporter = r
}

// Detect partitions records into duplicate groups and unique files.
//
// Group members keep traversal order; groups are ordered by descending
// wasted space with the first member path as tie-break, so repeated runs
// over an unchanged tree produce identical output. A file whose hash cannot
// be computed is dropped from consideration and reported in errs; the rest
// of its size bucket is still grouped.
func (d *Detector) Detect(ctx context.Context, records []*scanner.FileRecord) (groups []*DuplicateGroup, unique []*scanner.FileRecord, errs []*scanner.ScanError, err error) {
	// Traversal order is the tie-break everywhere below.
	order := make(map[*scanner.FileRecord]int, len(records))
	for i, r := range records {
		order[r] = i
	}

	buckets := make(map[int64][]*scanner.FileRecord)
	for _, r := range records {
		buckets[r.Size] = append(buckets[r.Size], r)
	}

	// Stage 1: singleton size buckets are unique without any hashing.
	var candidates []*scanner.FileRecord
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			unique = append(unique, bucket[0])
			continue
		}
		candidates = append(candidates, bucket...)
	}

	// Stage 2: resolve digests for candidates, cache first.
	var misses []*scanner.FileRecord
	for _, r := range candidates {
		if digest, ok := d.cache.Lookup(r.Path, r.Size, r.ModTime); ok {
			r.Hash = digest
			continue
		}
		misses = append(misses, r)
	}

	failed, err := d.hashAll(ctx, misses, len(candidates))
	if err != nil {
		return nil, nil, nil, err
	}
	errs = append(errs, failed...)

	// Regroup by digest within each size bucket.
	for _, bucket := range buckets {
		if len(bucket) < 2 {
			continue
		}
		byHash := make(map[string][]*scanner.FileRecord)
		for _, r := range bucket {
			if r.Hash == "" {
				continue // hashing failed, already reported
			}
			byHash[r.Hash] = append(byHash[r.Hash], r)
		}
		for digest, members := range byHash {
			if len(members) < 2 {
				unique = append(unique, members...)
				continue
			}
			sort.Slice(members, func(i, j int) bool {
				return order[members[i]] < order[members[j]]
			})
			groups = append(groups, &DuplicateGroup{Hash: digest, Files: members})
		}
	}

	sort.Slice(unique, func(i, j int) bool {
		return order[unique[i]] < order[unique[j]]
	})
	sort.Slice(groups, func(i, j int) bool {
		wi, wj := groups[i].WastedSpace(), groups[j].WastedSpace()
		if wi != wj {
			return wi > wj
		}
		return groups[i].Files[0].Path < groups[j].Files[0].Path
	})

	return groups, unique, errs, nil
}

// hashAll computes digests for records on the worker pool and stores them
// in the cache. Returns per-file errors for unreadable files.
func (d *Detector) hashAll(ctx context.Context, records []*scanner.FileRecord, total int) ([]*scanner.ScanError, error) {
	if len(records) == 0 {
		return nil, nil
	}

	type result struct {
		record *scanner.FileRecord
		digest string
		err    error
	}

	jobs := make(chan *scanner.FileRecord)
	results := make(chan result, len(records))

	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for r := range jobs {
				digest, err := d.hasher.HashFile(ctx, r.Path)
				results <- result{record: r, digest: digest, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, r := range records {
			select {
			case jobs <- r:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	start := time.Now()
	done := 0
	var errs []*scanner.ScanError
	for res := range results {
		done++
		if res.err != nil {
			if ctx.Err() != nil {
				continue // drain; cancellation is reported below
			}
			se := scanner.CategorizeError(res.record.Path, res.err)
			if se.Kind == scanner.KindUnknown {
				se.Kind = scanner.KindHash
			}
			errs = append(errs, se)
		} else {
			res.record.Hash = res.digest
			// A failed store degrades the cache internally; the scan result
			// is unaffected.
			_ = d.cache.Store(res.record.Path, res.record.Size, res.record.ModTime, res.digest)
		}
		d.report(res.record.Path, done, total, start)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return errs, nil
}

func (d *Detector) report(current string, done, total int, start time.Time) {
	if d.reporter == nil {
		return
	}
	d.reporter.Publish(progress.Update{
		Phase:       progress.PhaseHash,
		CurrentPath: current,
		FilesHashed: done,
		HashTotal:   total,
		StartTime:   start,
	})
}
