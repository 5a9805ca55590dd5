// Package store provides the durable local record store backed by SQLite.
// It holds the four collections of the offline-first core: EDLs,
// inspections, pending sync entries, and settings.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle with edlsync-specific operations.
// The single connection is the serialization point for all writes, so
// read-merge-write sequences inside one transaction cannot interleave.
type Store struct {
	db *sql.DB

	// now is stubbed in tests to pin timestamps.
	now func() int64
}

// Option tweaks store construction.
type Option func(*Store)

// WithClock replaces the timestamp source. Tests use it to pin record
// ages.
func WithClock(now func() int64) Option {
	return func(s *Store) { s.now = now }
}

// Open opens (creating if needed) the edlsync database under dataDir.
// The database runs in WAL mode with a single writer connection.
func Open(dataDir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "edlsync.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports one writer; funnel everything through one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := &Store{db: db, now: func() int64 { return time.Now().Unix() }}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// execTx executes fn within a transaction, rolling back on error.
func (s *Store) execTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit()
}
