// Package tasktools implements the task assistant's tools on top of the
// task store and the optional semantic index.
package tasktools

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ashutoshrp06/taskmate/internal/conversation"
	"github.com/ashutoshrp06/taskmate/internal/search"
	"github.com/ashutoshrp06/taskmate/internal/taskstore"
	"github.com/ashutoshrp06/taskmate/internal/tools"
	"github.com/ashutoshrp06/taskmate/internal/types"
	"go.uber.org/zap"
)

// TaskIndex is the semantic index find_tasks prefers when configured.
type TaskIndex interface {
	Upsert(ctx context.Context, docs ...search.Document) error
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string, topK int, minScore float32) ([]search.Hit, error)
}

const (
	defaultListLimit = 20
	defaultFindLimit = 5
	minSearchScore   = 0.5
)

// Toolset builds the tools over one store.
type Toolset struct {
	store  *taskstore.Store
	index  TaskIndex
	logger *zap.Logger
	now    func() time.Time
}

// New returns a toolset. index may be nil.
func New(store *taskstore.Store, index TaskIndex, logger *zap.Logger) *Toolset {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolset{store: store, index: index, logger: logger, now: time.Now}
}

// Tools returns every tool in a stable order.
func (ts *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		ts.createTask(),
		ts.listTasks(),
		ts.findTasks(),
		ts.updateTask(),
		ts.completeTask(),
		ts.deleteTask(),
		ts.addPerson(),
		ts.findPerson(),
		ts.removePerson(),
		ts.setSetting(),
		ts.getSettings(),
		ts.startReview(),
		ts.endReview(),
		ts.undo(),
	}
}

// Register adds every tool to r.
func (ts *Toolset) Register(r *tools.Registry) error {
	for _, t := range ts.Tools() {
		if err := r.Register(t); err != nil {
			return err
		}
	}
	return nil
}

// Reindex loads every task into the semantic index.
func (ts *Toolset) Reindex(ctx context.Context) (int, error) {
	if ts.index == nil {
		return 0, nil
	}
	tasks, err := ts.store.ListTasks(ctx, taskstore.Filter{})
	if err != nil {
		return 0, err
	}
	docs := make([]search.Document, len(tasks))
	for i := range tasks {
		docs[i] = document(&tasks[i])
	}
	if err := ts.index.Upsert(ctx, docs...); err != nil {
		return 0, err
	}
	return len(docs), nil
}

// ─── index maintenance ────────────────────────────────────────────────────────

// The index is best effort: the store is the source of truth and find_tasks
// falls back to SQL search, so index failures are logged, not returned.

func (ts *Toolset) indexTask(ctx context.Context, t *taskstore.Task) {
	if ts.index == nil {
		return
	}
	if err := ts.index.Upsert(ctx, document(t)); err != nil {
		ts.logger.Warn("Failed to index task", zap.String("task_id", t.ID), zap.Error(err))
	}
}

func (ts *Toolset) unindexTask(ctx context.Context, id string) {
	if ts.index == nil {
		return
	}
	if err := ts.index.Delete(ctx, id); err != nil {
		ts.logger.Warn("Failed to remove task from index", zap.String("task_id", id), zap.Error(err))
	}
}

func document(t *taskstore.Task) search.Document {
	var extra []string
	if t.Context != "" {
		extra = append(extra, "context: "+t.Context)
	}
	if t.PersonName != "" {
		extra = append(extra, "person: "+t.PersonName)
	}
	return search.Document{
		ID:     t.ID,
		Title:  t.Title,
		Text:   strings.Join(extra, "\n"),
		Status: string(t.Status),
	}
}

// ─── references ───────────────────────────────────────────────────────────────

func taskRef(t *taskstore.Task) types.TaskReference {
	return types.TaskReference{ID: t.ID, Title: t.Title, Status: string(t.Status)}
}

func taskRefs(tasks []taskstore.Task) []types.TaskReference {
	refs := make([]types.TaskReference, len(tasks))
	for i := range tasks {
		refs[i] = taskRef(&tasks[i])
	}
	return refs
}

func personRef(p *taskstore.Person) types.PersonReference {
	return types.PersonReference{ID: p.ID, Name: p.Name}
}

// resolveTaskID accepts a task id or a 1-based position in the list the
// user was last shown ("complete 2").
func (ts *Toolset) resolveTaskID(ctx context.Context, raw string, conv *conversation.Context) (*taskstore.Task, error) {
	raw = strings.TrimSpace(raw)
	task, err := ts.store.GetTask(ctx, raw)
	if err == nil {
		return task, nil
	}
	if !errors.Is(err, taskstore.ErrNotFound) {
		return nil, err
	}

	if n, convErr := strconv.Atoi(strings.TrimPrefix(raw, "#")); convErr == nil && conv != nil {
		if ref, ok := conv.TaskAt(n); ok {
			return ts.store.GetTask(ctx, ref.ID)
		}
	}
	return nil, fmt.Errorf("task %s not found", raw)
}

// resolvePerson finds a person by exact name, or the only partial match.
func (ts *Toolset) resolvePerson(ctx context.Context, name string) (*taskstore.Person, error) {
	people, err := ts.store.FindPerson(ctx, name)
	if err != nil {
		return nil, err
	}
	for i := range people {
		if strings.EqualFold(people[i].Name, name) {
			return &people[i], nil
		}
	}
	if len(people) == 1 {
		return &people[0], nil
	}
	return nil, nil
}

// ─── parameter helpers ────────────────────────────────────────────────────────

func stringParam(params map[string]any, key string) string {
	switch v := params[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func failure(err error) types.ToolResult {
	return types.Fail(err.Error())
}
