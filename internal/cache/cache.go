// Package cache provides SQLite persistence for raw provider payloads.
package cache

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/lunchtray/internal/provider"
)

// Entry is one cached upstream payload. RawText is stored verbatim so a
// later session can re-parse it under a different reference date.
type Entry struct {
	Key      string
	Kind     provider.Kind
	RawText  string
	FetchDay string // ISO day the payload was fetched on
	StoredAt time.Time
}

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Key builds the cache key for one (provider, restaurant, variant)
// combination. Variant is the feed language, or a fixed tag for
// providers whose payload is language-invariant.
func Key(kind provider.Kind, code, variant string) string {
	return fmt.Sprintf("%s/%s/%s", kind, code, variant)
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// For in-memory databases, use shared cache mode so all connections
		// in the pool see the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the required table if it doesn't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS payloads (
		key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		raw_text TEXT NOT NULL,
		fetch_day TEXT NOT NULL,
		stored_at DATETIME NOT NULL
	);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Put stores or replaces the payload for entry.Key.
// Thread-safe: acquires write lock.
func (s *Store) Put(entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO payloads (key, kind, raw_text, fetch_day, stored_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			kind = excluded.kind,
			raw_text = excluded.raw_text,
			fetch_day = excluded.fetch_day,
			stored_at = excluded.stored_at
	`, entry.Key, string(entry.Kind), entry.RawText, entry.FetchDay, entry.StoredAt)
	return err
}

// Get retrieves the payload stored under key. The second return value
// is false when no entry exists.
// Thread-safe: acquires read lock.
func (s *Store) Get(key string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var e Entry
	var kind string
	err := s.db.QueryRow(`
		SELECT key, kind, raw_text, fetch_day, stored_at
		FROM payloads
		WHERE key = ?
	`, key).Scan(&e.Key, &kind, &e.RawText, &e.FetchDay, &e.StoredAt)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.Kind = provider.Kind(kind)
	return e, true, nil
}
