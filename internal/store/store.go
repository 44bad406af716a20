// Package store provides persistent storage for claude-approve using SQLite.
// Every record is a singleton row in a small key-value style schema, mirroring
// the record keys used by the approval protocol: CURRENT, MODE, USER,
// API_TOKEN and NOTIFICATION. Short-lived rows carry an epoch-seconds expiry
// and are treated as absent by readers once past it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Singleton record keys.
const (
	keyCurrent      = "CURRENT"
	keyMode         = "MODE"
	keyUser         = "USER"
	keyAPIToken     = "API_TOKEN"
	keyNotification = "NOTIFICATION"
)

// Store provides persistent storage backed by a SQLite database.
// It is safe for concurrent use; the one concurrency-sensitive operation,
// Decide, is a single atomic conditional update.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates a Store with a SQLite database under the given data directory.
// It creates the directory if it does not exist and runs migrations.
func Open(dataPath string) (*Store, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataPath, "approve.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dataPath,
	}

	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate creates necessary tables
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS requests (
			pk TEXT PRIMARY KEY,
			request_id TEXT NOT NULL,
			tool_name TEXT NOT NULL,
			tool_detail TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			decided_at INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS modes (
			pk TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS credentials (
			pk TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			updated_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS targets (
			pk TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			pk TEXT PRIMARY KEY,
			notification_id TEXT NOT NULL,
			access_token TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Close closes the database connection and releases resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// SweepExpired deletes rows whose expiry has passed. The request row is never
// swept: an expired request is already invisible to readers, and Decide
// excludes it, so keeping the row preserves overwrite semantics.
func (s *Store) SweepExpired() (int64, error) {
	now := time.Now().Unix()
	var total int64

	for _, table := range []string{"credentials", "notifications"} {
		res, err := s.db.Exec(
			fmt.Sprintf("DELETE FROM %s WHERE expires_at > 0 AND expires_at <= ?", table), now)
		if err != nil {
			return total, fmt.Errorf("sweep %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}
