// Package sqlitekv provides a namespaced key-value store backed by
// modernc.org/sqlite (pure Go, no CGO) with WAL mode.
package sqlitekv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000 // milliseconds

// Store owns the SQLite database and hands out namespaced views.
type Store struct {
	db *sql.DB
}

// KV is a namespaced view over a Store.
type KV struct {
	db *sql.DB
	ns string
}

// Open opens (creating if needed) the database at path. The database uses
// WAL mode, a 5 s busy timeout, and a single connection (SQLite serialises
// writes). The schema is migrated idempotently.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlitekv: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitekv: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitekv: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitekv: set busy_timeout: %w", err)
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// migrate creates the schema. All DDL uses IF NOT EXISTS, making it
// idempotent across restarts.
func migrate(db *sql.DB) error {
	const ddl = `CREATE TABLE IF NOT EXISTS kv (
		ns         TEXT NOT NULL,
		k          TEXT NOT NULL,
		v          BLOB NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now')),
		PRIMARY KEY (ns, k)
	)`
	if _, err := db.ExecContext(context.TODO(), ddl); err != nil {
		return fmt.Errorf("sqlitekv: migrate: %w", err)
	}
	return nil
}

// Namespace returns a KV view scoped to ns.
func (s *Store) Namespace(ns string) *KV {
	return &KV{db: s.db, ns: ns}
}

// Vacuum compacts the database file.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("sqlitekv: vacuum: %w", err)
	}
	return nil
}

// Checkpoint truncates the WAL after folding it into the main file.
func (s *Store) Checkpoint(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("sqlitekv: checkpoint: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key. The second result is false when
// the key is absent.
func (kv *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := kv.db.QueryRowContext(ctx,
		"SELECT v FROM kv WHERE ns = ? AND k = ?", kv.ns, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("sqlitekv: get %s/%s: %w", kv.ns, key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any previous value (last write wins).
func (kv *KV) Put(ctx context.Context, key string, value []byte) error {
	_, err := kv.db.ExecContext(ctx, `
		INSERT INTO kv (ns, k, v, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ','now'))
		ON CONFLICT (ns, k) DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		kv.ns, key, value,
	)
	if err != nil {
		return fmt.Errorf("sqlitekv: put %s/%s: %w", kv.ns, key, err)
	}
	return nil
}
