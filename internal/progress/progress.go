package progress

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// Phase represents the current phase of a scan
type Phase string

const (
	PhaseDiscover Phase = "discover"
	PhaseHash     Phase = "hash"
	PhaseAnalyze  Phase = "analyze"
	PhaseComplete Phase = "complete"
	PhaseError    Phase = "error"
)

// Update is a snapshot of scan progress sent to listeners.
type Update struct {
	Phase       Phase
	CurrentPath string // file currently being processed, if any
	FilesFound  int
	BytesFound  int64
	FilesHashed int
	HashTotal   int // number of files queued for hashing
	ErrorCount  int
	StartTime   time.Time
	Err         error
}

// Reporter provides thread-safe progress reporting. The pipeline publishes
// updates; consumers (progress bar, TUI) subscribe. Sends are non-blocking
// so a stalled or broken consumer can never stall the scan.
type Reporter struct {
	mu        sync.RWMutex
	last      *Update
	listeners []chan Update
}

// NewReporter creates a new progress reporter
func NewReporter() *Reporter {
	return &Reporter{
		listeners: make([]chan Update, 0),
	}
}

// Subscribe returns a channel that receives progress updates
func (r *Reporter) Subscribe() <-chan Update {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Update, 16)
	r.listeners = append(r.listeners, ch)
	return ch
}

// Unsubscribe closes and removes a listener channel
func (r *Reporter) Unsubscribe(ch <-chan Update) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, listener := range r.listeners {
		if listener == ch {
			close(listener)
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Close closes all listener channels, signalling end of updates.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, listener := range r.listeners {
		close(listener)
	}
	r.listeners = nil
}

// Publish records the update and notifies listeners without blocking.
func (r *Reporter) Publish(update Update) {
	r.mu.Lock()
	r.last = &update
	listeners := make([]chan Update, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	for _, listener := range listeners {
		select {
		case listener <- update:
		default:
			// Skip if channel is full
		}
	}
}

// Last returns the most recently published update
func (r *Reporter) Last() *Update {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// FormatUpdate returns a human-readable progress line
func FormatUpdate(u *Update) string {
	if u == nil {
		return "Initializing..."
	}

	elapsed := time.Since(u.StartTime).Round(time.Second)

	switch u.Phase {
	case PhaseDiscover:
		return fmt.Sprintf("Discovering... %d files (%s) [%s]",
			u.FilesFound, humanize.IBytes(uint64(u.BytesFound)), elapsed)
	case PhaseHash:
		return fmt.Sprintf("Hashing %d/%d: %s [%s]",
			u.FilesHashed, u.HashTotal, u.CurrentPath, elapsed)
	case PhaseAnalyze:
		return fmt.Sprintf("Analyzing %d files [%s]", u.FilesFound, elapsed)
	case PhaseComplete:
		return fmt.Sprintf("Scan complete: %d files (%s) in %s",
			u.FilesFound, humanize.IBytes(uint64(u.BytesFound)), elapsed)
	case PhaseError:
		return fmt.Sprintf("Scan error: %v", u.Err)
	default:
		return "Scanning..."
	}
}
