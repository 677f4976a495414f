// Package taskstore persists tasks, people and user settings in SQLite.
// All public methods are safe for concurrent use (SQLite serializes
// writes).
package taskstore

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when an id matches nothing.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique name is already taken.
	ErrDuplicate = errors.New("already exists")
)

// timeLayout has fixed-width fractional seconds so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the SQLite-backed task database.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *zap.Logger
}

// Open creates a store at the given database path. The schema is created
// automatically on first use. Use ":memory:" for a throwaway store.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// In-memory databases are per connection.
	db.SetMaxOpenConns(1)

	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{db: db, now: time.Now, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	logger.Debug("Task store ready", zap.String("path", path))
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		title        TEXT NOT NULL,
		type         TEXT NOT NULL DEFAULT 'action',
		context      TEXT NOT NULL DEFAULT '',
		due_date     TEXT NOT NULL DEFAULT '',
		person_id    TEXT NOT NULL DEFAULT '',
		status       TEXT NOT NULL DEFAULT 'open',
		created_at   TEXT NOT NULL,
		completed_at TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_person ON tasks(person_id);

	CREATE TABLE IF NOT EXISTS people (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		notes      TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_people_name ON people(name COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS settings (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}

func parseTime(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}
