// Package ledger records apply runs and their per-package outcomes in a
// SQLite database so past runs can be listed after their staging
// directories are gone.
package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// ErrNotInitialized is returned when the database has no schema.
var ErrNotInitialized = errors.New("run history is empty: run `skill-updater apply` first")

// Ledger provides SQLite operations for run history.
type Ledger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger at dbPath and ensures the schema.
// Use ":memory:" for in-memory databases.
func Open(dbPath string) (*Ledger, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	l, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := l.CreateSchema(); err != nil {
		l.Close()
		return nil, err
	}
	return l, nil
}

// OpenExisting opens the ledger without creating it or its schema.
func OpenExisting(dbPath string) (*Ledger, error) {
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotInitialized
		}
		return nil, fmt.Errorf("failed to stat ledger: %w", err)
	}
	return open(dbPath)
}

func open(dbPath string) (*Ledger, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// CreateSchema creates all tables and indexes.
func (l *Ledger) CreateSchema() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// wrapQueryErr maps a missing-table error to ErrNotInitialized.
func wrapQueryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return ErrNotInitialized
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
