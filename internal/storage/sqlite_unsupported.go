//go:build mips64 || mips64le || ppc64 || s390x

package storage

import (
	"errors"
	"log/slog"
	"time"
)

var errSQLiteUnavailable = errors.New("SQLite storage not available")

// SQLiteStore implements Store using SQLite with WAL mode.
// This is a stub implementation for unsupported platforms.
type SQLiteStore struct{}

// NewSQLiteStore creates a new SQLite store at the given path.
// On unsupported platforms, this returns an error.
func NewSQLiteStore(path string, maxRows int, logger *slog.Logger) (*SQLiteStore, error) {
	return nil, errors.New("SQLite storage is not supported on this platform, use memory storage instead")
}

// Insert records a render.
func (s *SQLiteStore) Insert(r *Render) error {
	return errSQLiteUnavailable
}

// GetByID retrieves a single render.
func (s *SQLiteStore) GetByID(id string) (*Render, error) {
	return nil, errSQLiteUnavailable
}

// List retrieves renders.
func (s *SQLiteStore) List(opts ListOptions) ([]Render, error) {
	return nil, errSQLiteUnavailable
}

// Overview computes statistics.
func (s *SQLiteStore) Overview(window time.Duration) (*Overview, error) {
	return nil, errSQLiteUnavailable
}

// Close is a no-op.
func (s *SQLiteStore) Close() error {
	return nil
}
