// Package cache is the durable moderation result cache. Results are keyed by
// request fingerprint and stored in an embedded SQLite database so that the
// cache survives process restarts. Upserts are idempotent: concurrent writers
// racing on the same fingerprint converge on the same row because scoring is
// deterministic.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modfox/moderation-pipeline/labels"

	_ "modernc.org/sqlite"
)

// ErrNotFound signals a cache miss. It is the only non-failure outcome of a
// lookup for an absent key.
var ErrNotFound = errors.New("cache: entry not found")

const schema = `
CREATE TABLE IF NOT EXISTS requests (
	request_hash TEXT PRIMARY KEY,
	score        REAL NOT NULL,
	flagged      INTEGER NOT NULL,
	labels_json  TEXT NOT NULL
)`

// Entry is one cached scoring result.
type Entry struct {
	Score   float64
	Flagged bool
	Labels  labels.Scores
}

// Store wraps the SQLite-backed cache table. Safe for concurrent use; writer
// serialization is delegated to SQLite's own locking.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cache: create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	// Single connection keeps SQLite writer contention out of the driver.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry for hash, or ErrNotFound when absent.
func (s *Store) Get(ctx context.Context, hash string) (*Entry, error) {
	var (
		score      float64
		flagged    int
		labelsJSON string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT score, flagged, labels_json FROM requests WHERE request_hash = ?`,
		hash,
	).Scan(&score, &flagged, &labelsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", hash, err)
	}

	var m map[string]float64
	if err := json.Unmarshal([]byte(labelsJSON), &m); err != nil {
		return nil, fmt.Errorf("cache: decode labels for %s: %w", hash, err)
	}

	return &Entry{
		Score:   score,
		Flagged: flagged != 0,
		Labels:  labels.FromMap(m),
	}, nil
}

// Put inserts or replaces the entry for hash. Applying the same (hash, entry)
// pair any number of times yields the same stored state.
func (s *Store) Put(ctx context.Context, hash string, e Entry) error {
	labelsJSON, err := json.Marshal(e.Labels.Map())
	if err != nil {
		return fmt.Errorf("cache: encode labels for %s: %w", hash, err)
	}

	flagged := 0
	if e.Flagged {
		flagged = 1
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO requests(request_hash, score, flagged, labels_json) VALUES(?,?,?,?)
		 ON CONFLICT(request_hash) DO UPDATE SET
			score = excluded.score,
			flagged = excluded.flagged,
			labels_json = excluded.labels_json`,
		hash, e.Score, flagged, string(labelsJSON),
	)
	if err != nil {
		return fmt.Errorf("cache: put %s: %w", hash, err)
	}
	return nil
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM requests`).Scan(&n); err != nil {
		return 0, fmt.Errorf("cache: count: %w", err)
	}
	return n, nil
}

// Prune deletes all but the keep most recently inserted entries. The cache
// has no TTL; batch runs call this to keep the table growth-bounded.
func (s *Store) Prune(ctx context.Context, keep int64) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM requests WHERE rowid NOT IN
			(SELECT rowid FROM requests ORDER BY rowid DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("cache: prune: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache: prune rows affected: %w", err)
	}
	return deleted, nil
}
