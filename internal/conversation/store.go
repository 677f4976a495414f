package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// ErrNoUndo is returned by PopUndo when there is nothing to undo.
var ErrNoUndo = errors.New("nothing to undo")

// Store owns the lifecycle of per-user contexts.
//
// Turns for the same user are not serialized: two concurrent turns each
// read a copy and the last Update wins.
type Store interface {
	// Get returns the user's context, creating it when absent or expired.
	Get(ctx context.Context, userID string) (*Context, error)
	// Update merges a patch into the user's context and resets its TTL.
	Update(ctx context.Context, userID string, patch Patch) (*Context, error)
	PushUndo(ctx context.Context, userID string, action types.UndoAction) error
	PopUndo(ctx context.Context, userID string) (types.UndoAction, error)
	StartFlow(ctx context.Context, userID string, flow Flow, state map[string]any) error
	EndFlow(ctx context.Context, userID string) error
	Clear(ctx context.Context, userID string) error
	// Cleanup drops expired contexts and reports how many were removed.
	Cleanup(ctx context.Context) (int, error)
	Close() error
}

// MemoryStore keeps contexts in process memory. Contexts do not survive
// a restart.
type MemoryStore struct {
	mu       sync.Mutex
	contexts map[string]*Context
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewMemoryStore creates an in-memory store. A non-positive ttl selects
// DefaultTTL.
func NewMemoryStore(ttl time.Duration, logger *zap.Logger) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryStore{
		contexts: make(map[string]*Context),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// load returns the live context for userID. Caller must hold mu.
func (s *MemoryStore) load(userID string) *Context {
	now := s.now()
	c, ok := s.contexts[userID]
	if ok && !c.Expired(now) {
		return c
	}
	if ok {
		s.logger.Debug("Conversation context expired", zap.String("user_id", userID))
	}
	c = New(userID, now, s.ttl)
	s.contexts[userID] = c
	return c
}

func (s *MemoryStore) mutate(userID string, fn func(*Context) error) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.load(userID)
	if err := fn(c); err != nil {
		return nil, err
	}
	c.Touch(s.now(), s.ttl)
	return c.Clone(), nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, userID string) (*Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(userID).Clone(), nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, userID string, patch Patch) (*Context, error) {
	return s.mutate(userID, func(c *Context) error {
		patch.Apply(c)
		return nil
	})
}

// PushUndo implements Store.
func (s *MemoryStore) PushUndo(_ context.Context, userID string, action types.UndoAction) error {
	_, err := s.mutate(userID, func(c *Context) error {
		c.PushUndo(action)
		return nil
	})
	return err
}

// PopUndo implements Store.
func (s *MemoryStore) PopUndo(_ context.Context, userID string) (types.UndoAction, error) {
	var action types.UndoAction
	_, err := s.mutate(userID, func(c *Context) error {
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
func (s *MemoryStore) StartFlow(_ context.Context, userID string, flow Flow, state map[string]any) error {
	_, err := s.mutate(userID, func(c *Context) error {
		c.StartFlow(flow, state)
		return nil
	})
	return err
}

// EndFlow implements Store.
func (s *MemoryStore) EndFlow(_ context.Context, userID string) error {
	_, err := s.mutate(userID, func(c *Context) error {
		c.EndFlow()
		return nil
	})
	return err
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.contexts, userID)
	return nil
}

// Cleanup implements Store.
func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, c := range s.contexts {
		if c.Expired(now) {
			delete(s.contexts, id)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of contexts held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.contexts)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// RunCleanup calls store.Cleanup every interval until ctx is done.
func RunCleanup(ctx context.Context, store Store, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.Cleanup(ctx)
			if err != nil {
				logger.Warn("Context cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("Removed expired contexts", zap.Int("count", n))
			}
		}
	}
}
