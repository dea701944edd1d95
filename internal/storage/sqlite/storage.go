// Package sqlite provides SQLite-backed persistence for cleanup jobs.
package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/stillwave/recut/pkg/logger"
	_ "modernc.org/sqlite"
)

// Storage owns the database connection shared by the job store
type Storage struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewStorage opens (or creates) the database at dbPath
func NewStorage(dbPath string, log *logger.Logger) (*Storage, error) {
	storageLogger := log.Named("sqlite")

	storageLogger.Info("Initializing SQLite storage",
		logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &Storage{
		db:     db,
		logger: storageLogger,
	}, nil
}

// GetDB returns the database connection
func (s *Storage) GetDB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
