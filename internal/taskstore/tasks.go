package taskstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskType classifies a task the way a GTD list does.
type TaskType string

const (
	TypeAction  TaskType = "action"
	TypeProject TaskType = "project"
	TypeWaiting TaskType = "waiting"
	TypeSomeday TaskType = "someday"
)

// TaskTypes lists the valid task types.
var TaskTypes = []string{string(TypeAction), string(TypeProject), string(TypeWaiting), string(TypeSomeday)}

// Status is a task's completion state.
type Status string

const (
	StatusOpen Status = "open"
	StatusDone Status = "done"
)

// DateLayout is the due date format.
const DateLayout = "2006-01-02"

// Task is one stored task.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Type        TaskType  `json:"type"`
	Context     string    `json:"context,omitempty"`
	DueDate     string    `json:"dueDate,omitempty"`
	PersonID    string    `json:"personId,omitempty"`
	PersonName  string    `json:"person,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitzero"`
}

// NewTask holds the fields for CreateTask.
type NewTask struct {
	Title    string
	Type     TaskType
	Context  string
	DueDate  string
	PersonID string
}

// Filter narrows ListTasks. Zero fields match everything.
type Filter struct {
	Status   Status
	Type     TaskType
	Context  string
	PersonID string
	// DueBefore keeps tasks due on or before this date (YYYY-MM-DD).
	DueBefore string
	Limit     int
}

// Snapshot captures a task for undo.
func (t *Task) Snapshot() map[string]any {
	data, _ := json.Marshal(t)
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

// TaskFromSnapshot rebuilds a task captured by Snapshot. The snapshot may
// have been through a JSON round trip.
func TaskFromSnapshot(m map[string]any) (*Task, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if t.ID == "" || t.Title == "" {
		return nil, errors.New("snapshot is missing id or title")
	}
	return &t, nil
}

// ValidType reports whether t is a known task type.
func ValidType(t string) bool {
	for _, v := range TaskTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ValidDate reports whether d is a YYYY-MM-DD date.
func ValidDate(d string) bool {
	_, err := time.Parse(DateLayout, d)
	return err == nil
}

const taskColumns = `t.id, t.title, t.type, t.context, t.due_date, t.person_id,
	COALESCE(p.name, ''), t.status, t.created_at, t.completed_at`

const taskFrom = `FROM tasks t LEFT JOIN people p ON p.id = t.person_id`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*Task, error) {
	var (
		t                      Task
		typ, status            string
		createdAt, completedAt string
	)
	if err := row.Scan(&t.ID, &t.Title, &typ, &t.Context, &t.DueDate, &t.PersonID,
		&t.PersonName, &status, &createdAt, &completedAt); err != nil {
		return nil, err
	}
	t.Type = TaskType(typ)
	t.Status = Status(status)
	t.CreatedAt = parseTime(createdAt)
	t.CompletedAt = parseTime(completedAt)
	return &t, nil
}

// CreateTask inserts a new open task.
func (s *Store) CreateTask(ctx context.Context, in NewTask) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, errors.New("task title is required")
	}
	if in.Type == "" {
		in.Type = TypeAction
	}
	if !ValidType(string(in.Type)) {
		return nil, fmt.Errorf("unknown task type %q", in.Type)
	}
	if in.DueDate != "" && !ValidDate(in.DueDate) {
		return nil, fmt.Errorf("due date %q is not YYYY-MM-DD", in.DueDate)
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, type, context, due_date, person_id, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, title, string(in.Type), in.Context, in.DueDate, in.PersonID, string(StatusOpen), s.timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.GetTask(ctx, id)
}

// GetTask returns the task with id or ErrNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` `+taskFrom+` WHERE t.id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// ListTasks returns tasks matching f, open tasks first, then by due date
// and creation time.
func (s *Store) ListTasks(ctx context.Context, f Filter) ([]Task, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "t.status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(f.Type))
	}
	if f.Context != "" {
		where = append(where, "t.context = ? COLLATE NOCASE")
		args = append(args, f.Context)
	}
	if f.PersonID != "" {
		where = append(where, "t.person_id = ?")
		args = append(args, f.PersonID)
	}
	if f.DueBefore != "" {
		where = append(where, "t.due_date != '' AND t.due_date <= ?")
		args = append(args, f.DueBefore)
	}

	query := `SELECT ` + taskColumns + ` ` + taskFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY t.status = 'done', t.due_date = '', t.due_date, t.created_at`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	return s.queryTasks(ctx, query, args...)
}

// SearchTasks matches query against task titles, contexts and the names of
// linked people, case-insensitively. Open tasks come first.
func (s *Store) SearchTasks(ctx context.Context, query string, limit int) ([]Task, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	pattern := "%" + escapeLike(query) + "%"

	return s.queryTasks(ctx,
		`SELECT `+taskColumns+` `+taskFrom+`
		 WHERE t.title LIKE ? ESCAPE '\'
		    OR t.context LIKE ? ESCAPE '\'
		    OR p.name LIKE ? ESCAPE '\'
		 ORDER BY t.status = 'done', t.created_at DESC
		 LIMIT ?`,
		pattern, pattern, pattern, limit)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// updatable maps the field names tools use to task columns.
var updatable = map[string]string{
	"title":    "title",
	"type":     "type",
	"context":  "context",
	"dueDate":  "due_date",
	"personId": "person_id",
}

// UpdatableFields lists the field names UpdateTask accepts.
func UpdatableFields() []string {
	return []string{"title", "type", "context", "dueDate", "personId"}
}

// UpdateTask sets the given fields and returns their previous values, which
// is exactly what a later UpdateTask needs to revert the change.
func (s *Store) UpdateTask(ctx context.Context, id string, fields map[string]any) (map[string]any, error) {
	if len(fields) == 0 {
		return nil, errors.New("no fields to update")
	}

	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for name, raw := range fields {
		col, ok := updatable[name]
		if !ok {
			return nil, fmt.Errorf("field %q cannot be updated", name)
		}
		v, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string", name)
		}
		switch name {
		case "title":
			v = strings.TrimSpace(v)
			if v == "" {
				return nil, errors.New("task title cannot be empty")
			}
		case "type":
			if !ValidType(v) {
				return nil, fmt.Errorf("unknown task type %q", v)
			}
		case "dueDate":
			if v != "" && !ValidDate(v) {
				return nil, fmt.Errorf("due date %q is not YYYY-MM-DD", v)
			}
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	current, err := scanTask(tx.QueryRowContext(ctx,
		`SELECT `+taskColumns+` `+taskFrom+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}

	previous := make(map[string]any, len(fields))
	for name := range fields {
		previous[name] = current.field(name)
	}

	args = append(args, id)
	if _, err := tx.ExecContext(ctx,
		`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("update task %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return previous, nil
}

func (t *Task) field(name string) string {
	switch name {
	case "title":
		return t.Title
	case "type":
		return string(t.Type)
	case "context":
		return t.Context
	case "dueDate":
		return t.DueDate
	case "personId":
		return t.PersonID
	}
	return ""
}

// CompleteTask marks a task done. changed is false when it already was.
func (s *Store) CompleteTask(ctx context.Context, id string) (task *Task, changed bool, err error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ? AND status != ?`,
		string(StatusDone), s.timestamp(), id, string(StatusDone))
	if err != nil {
		return nil, false, fmt.Errorf("complete task %s: %w", id, err)
	}
	n, _ := res.RowsAffected()

	task, err = s.GetTask(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return task, n > 0, nil
}

// UncompleteTask reopens a completed task.
func (s *Store) UncompleteTask(ctx context.Context, id string) (*Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ?, completed_at = '' WHERE id = ?`,
		string(StatusOpen), id)
	if err != nil {
		return nil, fmt.Errorf("uncomplete task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task and returns it as it was.
func (s *Store) DeleteTask(ctx context.Context, id string) (*Task, error) {
	task, err := s.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("delete task %s: %w", id, err)
	}
	return task, nil
}

// RestoreTask re-inserts a deleted task with its original id and
// timestamps. An existing row with the same id is overwritten.
func (s *Store) RestoreTask(ctx context.Context, t *Task) error {
	if t.Type == "" {
		t.Type = TypeAction
	}
	if t.Status == "" {
		t.Status = StatusOpen
	}
	created := t.CreatedAt
	if created.IsZero() {
		created = s.now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, type, context, due_date, person_id, status, created_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title, type = excluded.type, context = excluded.context,
		   due_date = excluded.due_date, person_id = excluded.person_id,
		   status = excluded.status, created_at = excluded.created_at,
		   completed_at = excluded.completed_at`,
		t.ID, t.Title, string(t.Type), t.Context, t.DueDate, t.PersonID, string(t.Status),
		formatTime(created), formatTime(t.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("restore task %s: %w", t.ID, err)
	}
	return nil
}
