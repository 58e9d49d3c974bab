// Package cache provides the local persistent cache for the AppDocument.
//
// The cache is an embedded SQLite database holding a single keyed entry
// with the full document serialized as JSON text. It is read once at
// process start, read again during inbound-snapshot handling, and written
// on every debounce fire and on every successful or forced upload. It is
// a copy of the in-memory state, never a source of truth.
package cache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/classdeck/classdeck/internal/document"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// Cache wraps the SQLite connection backing the local document cache.
type Cache struct {
	conn *sql.DB
	path string
}

// Open creates or opens the cache database at the specified path.
//
// The database is opened in embedded mode with WAL for concurrent reads.
// The caller MUST call Close() when done.
//
// Example:
//
//	c, err := cache.Open(filepath.Join(dir, "cache.db"))
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func Open(path string) (*Cache, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping cache database: %w", err)
	}

	c := &Cache{conn: conn, path: path}

	if _, err := c.conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := c.conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := c.initSchema(); err != nil {
		_ = c.Close()
		return nil, err
	}

	return c, nil
}

// Path returns the location of the cache database file.
func (c *Cache) Path() string { return c.path }

// Close closes the cache connection after checkpointing the WAL.
func (c *Cache) Close() error {
	if c.conn == nil {
		return nil
	}
	if _, err := c.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint WAL: %v\n", err)
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	c.conn = nil
	return nil
}

// initSchema creates the documents table. Idempotent.
func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	if _, err := c.conn.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return nil
}

// Load reads the document stored under key. The second return value is
// false when no entry exists.
func (c *Cache) Load(key string) (*document.AppDocument, bool, error) {
	return c.LoadContext(context.Background(), key)
}

// LoadContext reads the document stored under key with context support.
func (c *Cache) LoadContext(ctx context.Context, key string) (*document.AppDocument, bool, error) {
	var value string
	err := c.conn.QueryRowContext(ctx,
		"SELECT value FROM documents WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load cached document: %w", err)
	}

	doc, err := document.Decode([]byte(value))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode cached document: %w", err)
	}
	return doc, true, nil
}

// Store writes the document under key, replacing any previous entry.
func (c *Cache) Store(key string, doc *document.AppDocument) error {
	return c.StoreContext(context.Background(), key, doc)
}

// StoreContext writes the document with context support.
func (c *Cache) StoreContext(ctx context.Context, key string, doc *document.AppDocument) error {
	value := document.Encode(doc)
	query := `
	INSERT INTO documents (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at
	`
	_, err := c.conn.ExecContext(ctx, query,
		key, string(value), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to store cached document: %w", err)
	}
	return nil
}

// Clear removes the entry under key. Returns nil if the entry doesn't
// exist (idempotent).
func (c *Cache) Clear(key string) error {
	return c.ClearContext(context.Background(), key)
}

// ClearContext removes the entry with context support.
func (c *Cache) ClearContext(ctx context.Context, key string) error {
	_, err := c.conn.ExecContext(ctx, "DELETE FROM documents WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to clear cached document: %w", err)
	}
	return nil
}

// UpdatedAt returns the write timestamp of the entry under key, or the
// zero time when no entry exists.
func (c *Cache) UpdatedAt(key string) (time.Time, error) {
	var raw string
	err := c.conn.QueryRow(
		"SELECT updated_at FROM documents WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read cache timestamp: %w", err)
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse cache timestamp: %w", err)
	}
	return t, nil
}
