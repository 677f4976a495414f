package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists contexts so they survive a restart. It has the same
// expiry semantics as MemoryStore.
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// NewSQLiteStore opens (and migrates) a context database at path.
func NewSQLiteStore(path string, ttl time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps read-modify-write sequences from
	// interleaving inside this process.
	db.SetMaxOpenConns(1)

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversation_contexts (
		user_id    TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		expires_at INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_conversation_contexts_expires
		ON conversation_contexts(expires_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) read(ctx context.Context, q querier, userID string) (*Context, error) {
	var payload string
	err := q.QueryRowContext(ctx,
		`SELECT payload FROM conversation_contexts WHERE user_id = ?`, userID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return New(userID, s.now(), s.ttl), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get context %s: %w", userID, err)
	}

	var c Context
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, fmt.Errorf("decode context %s: %w", userID, err)
	}
	if c.Expired(s.now()) {
		s.logger.Debug("Conversation context expired", zap.String("user_id", userID))
		return New(userID, s.now(), s.ttl), nil
	}
	return &c, nil
}

func (s *SQLiteStore) write(ctx context.Context, q querier, c *Context) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode context %s: %w", c.UserID, err)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO conversation_contexts (user_id, payload, expires_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET payload = excluded.payload, expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		c.UserID, string(payload), c.ExpiresAt.UnixNano(), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save context %s: %w", c.UserID, err)
	}
	return nil
}

func (s *SQLiteStore) mutate(ctx context.Context, userID string, fn func(*Context) error) (*Context, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	c, err := s.read(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	c.Touch(s.now(), s.ttl)
	if err := s.write(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return c, nil
}

// Get implements Store. A freshly created context is not written until
// the first update.
func (s *SQLiteStore) Get(ctx context.Context, userID string) (*Context, error) {
	return s.read(ctx, s.db, userID)
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, userID string, patch Patch) (*Context, error) {
	return s.mutate(ctx, userID, func(c *Context) error {
		patch.Apply(c)
		return nil
	})
}

// PushUndo implements Store.
func (s *SQLiteStore) PushUndo(ctx context.Context, userID string, action types.UndoAction) error {
	_, err := s.mutate(ctx, userID, func(c *Context) error {
		c.PushUndo(action)
		return nil
	})
	return err
}

// PopUndo implements Store.
func (s *SQLiteStore) PopUndo(ctx context.Context, userID string) (types.UndoAction, error) {
	var action types.UndoAction
	_, err := s.mutate(ctx, userID, func(c *Context) error {
		a, ok := c.PopUndo()
		if !ok {
			return ErrNoUndo
		}
		action = a
		return nil
	})
	return action, err
}

// StartFlow implements Store.
func (s *SQLiteStore) StartFlow(ctx context.Context, userID string, flow Flow, state map[string]any) error {
	_, err := s.mutate(ctx, userID, func(c *Context) error {
		c.StartFlow(flow, state)
		return nil
	})
	return err
}

// EndFlow implements Store.
func (s *SQLiteStore) EndFlow(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(c *Context) error {
		c.EndFlow()
		return nil
	})
	return err
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_contexts WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear context %s: %w", userID, err)
	}
	return nil
}

// Cleanup implements Store.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversation_contexts WHERE expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cleanup contexts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup contexts: %w", err)
	}
	return int(n), nil
}
