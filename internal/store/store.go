// Package store is the SQLite persistence layer: one downloads table plus
// its three child tables (connections, speed_history, retry_log) and the
// independent site_settings table, opened through modernc.org/sqlite so the binary stays
// cgo-free, and guarded by a single mutex the way the teacher's own
// database/sql call sites serialize access to a shared *sql.DB.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps a SQLite connection for crane's persistence layer.
type Store struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the database at path, creating parent
// directories as needed, then runs setup and migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite only tolerates one writer; a single pooled connection avoids
	// SQLITE_BUSY errors under modernc.org/sqlite's driver.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a private in-memory database, useful for tests.
func OpenInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open in-memory store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) setup() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := s.db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.Exec("CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);"); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}
	return s.runMigrations()
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error (including a panic from fn, which is re-thrown).
func (s *Store) withTx(fn func(tx *sql.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// exec runs a statement outside an explicit transaction (SQLite still
// wraps it in an implicit one), serialized behind the store's mutex.
func (s *Store) exec(query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Exec(query, args...)
}

func (s *Store) query(query string, args ...any) (*sql.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Query(query, args...)
}

func (s *Store) queryRow(query string, args ...any) *sql.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.QueryRow(query, args...)
}
