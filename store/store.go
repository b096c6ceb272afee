// Package store persists users, patterns, analyses and audit entries in a
// SQLite database. The schema is created on open; there is no migrations
// framework.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"socanalyzer/internal/retry"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// Store wraps the SQLite connection pool. Each request runs its own
// queries against the pool; there is no shared mutable state beyond it.
type Store struct {
	db *sql.DB
}

// Server-workload connection settings: WAL for concurrent readers during
// writes, a busy timeout so short lock contention resolves inside the
// driver, and enforced foreign keys. Carried in the DSN so every pooled
// connection gets them, not just the one a PRAGMA exec would land on.
const dsnParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	email TEXT,
	role TEXT NOT NULL DEFAULT 'user',
	api_key TEXT,
	photo TEXT,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS patterns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	summary TEXT,
	description TEXT,
	status TEXT NOT NULL DEFAULT 'À CHOISIR',
	feedback TEXT,
	tags TEXT,
	user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	payload TEXT NOT NULL,
	pattern_id INTEGER REFERENCES patterns(id) ON DELETE SET NULL,
	pattern_name TEXT,
	summary TEXT,
	facts TEXT,
	technical TEXT,
	result TEXT,
	justification TEXT,
	report TEXT,
	status TEXT NOT NULL DEFAULT 'À CHOISIR',
	tags TEXT,
	user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
	action TEXT NOT NULL,
	details TEXT,
	ip_address TEXT,
	user_agent TEXT,
	created_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_patterns_name ON patterns (name);
CREATE INDEX IF NOT EXISTS idx_analyses_pattern_id ON analyses (pattern_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at);
CREATE INDEX IF NOT EXISTS idx_logs_created_at ON logs (created_at);
`

// Open opens (creating if necessary) the analyzer database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the pool for tests.
func (s *Store) DB() *sql.DB {
	return s.db
}

// isBusy reports whether an error is SQLite lock contention worth a
// bounded retry.
func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

// withTx runs fn inside a transaction, retrying the whole transaction on
// lock contention. Rollback on any error; no partial commit is observable.
func (s *Store) withTx(ctx context.Context, operation string, fn func(tx *sql.Tx) error) error {
	return retry.Do(ctx, operation, isBusy, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

// now returns the canonical stored timestamp form.
func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTime reads a stored timestamp, returning the zero time for empty or
// malformed values.
func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
