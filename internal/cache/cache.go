// Package cache persists computed file hashes across scans.
//
// An entry is keyed by path and valid only while the file's size and
// modification time are unchanged; any mismatch is a miss and the entry is
// overwritten on the next Store. The SQLite-backed implementation degrades
// to an in-memory cache if the store fails, so a broken cache can cost
// cross-run speed but never a scan.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// HashCache maps (path, size, mtime) to a previously computed digest.
type HashCache interface {
	// Lookup returns the cached digest for path, or ok=false if absent or
	// if size/mtime no longer match the stored entry.
	Lookup(path string, size int64, modTime time.Time) (digest string, ok bool)
	// Store upserts the entry for path.
	Store(path string, size int64, modTime time.Time, digest string) error
	Close() error
}

// Open returns the best available cache: SQLite-backed at path when enabled,
// otherwise (or on failure) an in-memory cache that lasts for the process.
func Open(path string, enabled bool) HashCache {
	if !enabled || path == "" {
		return NewMemory()
	}
	c, err := OpenSQLite(path)
	if err != nil {
		slog.Warn("hash cache unavailable, continuing without persistence", "path", path, "error", err)
		return NewMemory()
	}
	return c
}

type memoryEntry struct {
	size    int64
	mtimeNS int64
	digest  string
}

// MemoryCache is a non-persistent HashCache. It backs cache-disabled runs
// and the degraded mode of SQLiteCache. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemory creates an empty in-memory cache
func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry)}
}

// Lookup implements HashCache
func (c *MemoryCache) Lookup(path string, size int64, modTime time.Time) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok || e.size != size || e.mtimeNS != modTime.UnixNano() {
		return "", false
	}
	return e.digest, true
}

// Store implements HashCache
func (c *MemoryCache) Store(path string, size int64, modTime time.Time, digest string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = memoryEntry{size: size, mtimeNS: modTime.UnixNano(), digest: digest}
	return nil
}

// Len returns the number of cached entries
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close implements HashCache
func (c *MemoryCache) Close() error {
	return nil
}
