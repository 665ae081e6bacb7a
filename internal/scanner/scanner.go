// Package scanner discovers candidate files for duplicate detection.
//
// A scan walks one or more root directories, applies include/exclude and
// size filters, and streams FileRecords to the consumer over a channel.
// Traversal is deterministic (lexicographic within each directory) so that
// downstream grouping is reproducible across runs. Per-file errors are
// streamed alongside records and never abort the walk.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/BurtHarris/dupescan/internal/progress"
)

// Scanner walks directory trees and yields files matching its Options.
type Scanner struct {
	opts     Options
	reporter *progress.Reporter
}

// New creates a new Scanner
func New(opts Options) *Scanner {
	return &Scanner{opts: opts}
}

// SetProgressReporter sets an optional progress reporter
func (s *Scanner) SetProgressReporter(r *progress.Reporter) {
	s.reporter = r
}

// Scan validates roots and starts the walk. It returns a channel of Entry
// values that is closed when the walk finishes or ctx is cancelled. The
// consumer may stop reading early after cancelling ctx; the producer never
// blocks on a send.
//
// A missing or unreadable root is fatal for that root only: it is reported
// as a directory-kind ScanError on the stream while remaining roots are
// still walked. Scan fails outright only when no root is scannable.
func (s *Scanner) Scan(ctx context.Context, roots ...string) (<-chan Entry, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("no root directories given")
	}

	var valid []string
	var rootErrs []*ScanError
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err == nil {
			var info os.FileInfo
			info, err = os.Stat(abs)
			if err == nil && !info.IsDir() {
				err = fmt.Errorf("not a directory")
			}
		}
		if err != nil {
			rootErrs = append(rootErrs, &ScanError{Path: root, Kind: KindDirectory, Err: err})
			continue
		}
		// Resolve the root itself so link targets compare against real paths.
		if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
			abs = resolved
		}
		valid = append(valid, abs)
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("no scannable root directory: %w", rootErrs[0])
	}

	out := make(chan Entry)
	go func() {
		defer close(out)

		w := &walker{
			scanner: s,
			ctx:     ctx,
			out:     out,
			roots:   valid,
			seen:    make(map[string]struct{}),
			start:   time.Now(),
		}

		for _, se := range rootErrs {
			if !w.emit(Entry{Err: se}) {
				return
			}
		}

		for _, root := range valid {
			if !w.walkRoot(root) {
				return
			}
		}
	}()

	return out, nil
}

// walker carries the per-scan state shared across roots.
type walker struct {
	scanner *Scanner
	ctx     context.Context
	out     chan<- Entry
	roots   []string
	seen    map[string]struct{}
	found   int
	bytes   int64
	errs    int
	start   time.Time
}

// emit sends one entry, honoring cancellation. Returns false once the scan
// should stop.
func (w *walker) emit(e Entry) bool {
	if e.Err != nil {
		w.errs++
	}
	select {
	case w.out <- e:
		return true
	case <-w.ctx.Done():
		return false
	}
}

func (w *walker) walkRoot(root string) bool {
	if !w.scanner.opts.Recursive {
		return w.walkFlat(root)
	}

	stopped := false
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-w.ctx.Done():
			stopped = true
			return filepath.SkipAll
		default:
		}

		if err != nil {
			// Permission denied or vanished mid-walk: record and continue
			// with siblings.
			if !w.emit(Entry{Err: CategorizeError(path, err)}) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		}

		if d.IsDir() {
			if path != root && w.scanner.excludedName(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !w.candidate(path, d) {
			stopped = true
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !stopped {
		w.emit(Entry{Err: CategorizeError(root, err)})
	}
	return !stopped
}

// walkFlat scans only the immediate entries of root.
func (w *walker) walkFlat(root string) bool {
	entries, err := os.ReadDir(root) // sorted by name
	if err != nil {
		return w.emit(Entry{Err: &ScanError{Path: root, Kind: KindDirectory, Err: err}})
	}

	for _, d := range entries {
		select {
		case <-w.ctx.Done():
			return false
		default:
		}
		if d.IsDir() {
			continue
		}
		if !w.candidate(filepath.Join(root, d.Name()), d) {
			return false
		}
	}
	return true
}

// candidate applies the filter chain to one directory entry and emits a
// FileRecord when it passes. Returns false only when the scan is cancelled.
func (w *walker) candidate(path string, d fs.DirEntry) bool {
	var info fs.FileInfo
	var err error

	key := path
	if d.Type()&fs.ModeSymlink != 0 {
		target, rerr := filepath.EvalSymlinks(path)
		if rerr != nil {
			// Broken link; record and move on.
			return w.emit(Entry{Err: CategorizeError(path, rerr)})
		}
		if w.insideRoots(target) {
			// Target is covered by the scan itself: counting the link too
			// would report the same content twice.
			slog.Debug("skipping symlink into scanned tree", "link", path, "target", target)
			return true
		}
		info, err = os.Stat(path) // follows the link
		if err == nil && info.IsDir() {
			return true
		}
		key = target
	} else {
		info, err = d.Info()
	}
	if err != nil {
		return w.emit(Entry{Err: CategorizeError(path, err)})
	}

	if err := unix.Access(path, unix.R_OK); err != nil {
		return w.emit(Entry{Err: &ScanError{Path: path, Kind: KindAccess, Err: err}})
	}

	if !w.scanner.matches(path) {
		return true
	}

	size := info.Size()
	if size < w.scanner.opts.MinSize {
		return true
	}
	if w.scanner.opts.MaxSize > 0 && size > w.scanner.opts.MaxSize {
		return true
	}

	// Overlapping roots or links already followed can surface the same
	// content twice; the first occurrence wins.
	if _, dup := w.seen[key]; dup {
		return true
	}
	w.seen[key] = struct{}{}

	record := &FileRecord{
		Path:      path,
		Size:      size,
		ModTime:   info.ModTime(),
		Extension: strings.ToLower(filepath.Ext(path)),
	}

	w.found++
	w.bytes += size
	w.report(path)

	return w.emit(Entry{Record: record})
}

// insideRoots reports whether path is covered by any scan root.
func (w *walker) insideRoots(path string) bool {
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *walker) report(current string) {
	if w.scanner.reporter == nil {
		return
	}
	w.scanner.reporter.Publish(progress.Update{
		Phase:       progress.PhaseDiscover,
		CurrentPath: current,
		FilesFound:  w.found,
		BytesFound:  w.bytes,
		ErrorCount:  w.errs,
		StartTime:   w.start,
	})
}

// matches applies include and exclude patterns to a path.
func (s *Scanner) matches(path string) bool {
	base := filepath.Base(path)

	if len(s.opts.IncludePatterns) > 0 {
		included := false
		for _, pattern := range s.opts.IncludePatterns {
			if ok, _ := filepath.Match(pattern, base); ok {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}

	for _, pattern := range s.opts.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
		// Directory-style excludes also match anywhere in the path.
		if strings.Contains(path, pattern) {
			return false
		}
	}

	return true
}

// excludedName reports whether a directory name matches an exclude pattern.
func (s *Scanner) excludedName(name string) bool {
	for _, pattern := range s.opts.ExcludePatterns {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
		if pattern == name {
			return true
		}
	}
	return false
}
