package cache

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS file_hashes (
	path     TEXT PRIMARY KEY,
	size     INTEGER NOT NULL,
	mtime_ns INTEGER NOT NULL,
	hash     TEXT NOT NULL
);
`

// SQLiteCache is a persistent HashCache backed by an embedded SQLite file.
// Writes are serialized through a mutex on top of SQLite's own transactional
// guarantees, so an upsert either commits fully or not at all. Any store
// failure after opening flips the cache into degraded mode: an in-memory
// fallback serves the rest of the process and a single warning is logged.
type SQLiteCache struct {
	db   *sql.DB
	path string

	writeMu  sync.Mutex
	fallback *MemoryCache

	mu       sync.Mutex
	degraded bool
}

// OpenSQLite opens (or creates) the cache database at path. A corrupt
// database file is discarded and recreated fresh rather than failing the
// scan; only an unusable location returns an error.
func OpenSQLite(path string) (*SQLiteCache, error) {
	db, err := openAndInit(path)
	if err != nil {
		// Corrupt or unreadable store: recreate it and keep going.
		slog.Warn("recreating corrupt hash cache", "path", path, "error", err)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove corrupt cache %s: %w", path, rmErr)
		}
		db, err = openAndInit(path)
		if err != nil {
			return nil, fmt.Errorf("open cache %s: %w", path, err)
		}
	}

	return &SQLiteCache{
		db:       db,
		path:     path,
		fallback: NewMemory(),
	}, nil
}

func openAndInit(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Single connection: the cache is tiny and this sidesteps table-lock
	// contention between concurrent lookups and the serialized writer.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Lookup implements HashCache
func (c *SQLiteCache) Lookup(path string, size int64, modTime time.Time) (string, bool) {
	if c.isDegraded() {
		return c.fallback.Lookup(path, size, modTime)
	}

	var digest string
	err := c.db.QueryRow(
		"SELECT hash FROM file_hashes WHERE path = ? AND size = ? AND mtime_ns = ?",
		path, size, modTime.UnixNano(),
	).Scan(&digest)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		c.degrade(err)
		return c.fallback.Lookup(path, size, modTime)
	}
	return digest, true
}

// Store implements HashCache
func (c *SQLiteCache) Store(path string, size int64, modTime time.Time, digest string) error {
	if c.isDegraded() {
		return c.fallback.Store(path, size, modTime, digest)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.db.Exec(
		`INSERT INTO file_hashes (path, size, mtime_ns, hash) VALUES (?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET size = excluded.size, mtime_ns = excluded.mtime_ns, hash = excluded.hash`,
		path, size, modTime.UnixNano(), digest,
	)
	if err != nil {
		c.degrade(err)
		return c.fallback.Store(path, size, modTime, digest)
	}
	return nil
}

// Stats returns the number of persisted entries and the database file size.
func (c *SQLiteCache) Stats() (entries int64, fileSize int64, err error) {
	if err := c.db.QueryRow("SELECT COUNT(*) FROM file_hashes").Scan(&entries); err != nil {
		return 0, 0, fmt.Errorf("count cache entries: %w", err)
	}
	info, err := os.Stat(c.path)
	if err != nil {
		return entries, 0, fmt.Errorf("stat cache file: %w", err)
	}
	return entries, info.Size(), nil
}

// Clear removes all persisted entries.
func (c *SQLiteCache) Clear() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.db.Exec("DELETE FROM file_hashes"); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Path returns the database file location
func (c *SQLiteCache) Path() string {
	return c.path
}

// Close implements HashCache
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

func (c *SQLiteCache) isDegraded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.degraded
}

// degrade switches to the in-memory fallback for the rest of the process.
// Logged once; per-file noise would drown real errors.
func (c *SQLiteCache) degrade(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		return
	}
	c.degraded = true
	slog.Warn("hash cache failed, falling back to in-memory cache", "path", c.path, "error", err)
}
