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

// Person is someone tasks can be linked to ("waiting on Sam").
type Person struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Snapshot captures a person for undo.
func (p *Person) Snapshot() map[string]any {
	data, _ := json.Marshal(p)
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	return m
}

// PersonFromSnapshot rebuilds a person captured by Snapshot.
func PersonFromSnapshot(m map[string]any) (*Person, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	var p Person
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if p.ID == "" || p.Name == "" {
		return nil, errors.New("snapshot is missing id or name")
	}
	return &p, nil
}

func scanPerson(row scanner) (*Person, error) {
	var (
		p         Person
		createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Notes, &createdAt); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

// AddPerson stores a new person. Names are unique, ignoring case.
func (s *Store) AddPerson(ctx context.Context, name, notes string) (*Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("person name is required")
	}

	var existing string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM people WHERE name = ? COLLATE NOCASE`, name).Scan(&existing)
	if err == nil {
		return nil, fmt.Errorf("person %q: %w", name, ErrDuplicate)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check person %q: %w", name, err)
	}

	p := &Person{ID: uuid.NewString(), Name: name, Notes: notes, CreatedAt: s.now().UTC()}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO people (id, name, notes, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, p.Notes, formatTime(p.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("add person: %w", err)
	}
	return p, nil
}

// GetPerson returns the person with id or ErrNotFound.
func (s *Store) GetPerson(ctx context.Context, id string) (*Person, error) {
	p, err := scanPerson(s.db.QueryRowContext(ctx,
		`SELECT id, name, notes, created_at FROM people WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("person %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get person %s: %w", id, err)
	}
	return p, nil
}

// FindPerson returns people whose name contains name, exact matches first.
func (s *Store) FindPerson(ctx context.Context, name string) ([]Person, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, notes, created_at FROM people
		 WHERE name LIKE ? ESCAPE '\'
		 ORDER BY lower(name) != lower(?), name`,
		"%"+escapeLike(name)+"%", name)
	if err != nil {
		return nil, fmt.Errorf("find person %q: %w", name, err)
	}
	defer rows.Close()

	var out []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// RemovePerson deletes a person and returns them as they were. Linked
// tasks keep their person id so RestorePerson relinks them.
func (s *Store) RemovePerson(ctx context.Context, id string) (*Person, error) {
	p, err := s.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM people WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("remove person %s: %w", id, err)
	}
	return p, nil
}

// RestorePerson re-inserts a removed person with their original id.
func (s *Store) RestorePerson(ctx context.Context, p *Person) error {
	created := p.CreatedAt
	if created.IsZero() {
		created = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO people (id, name, notes, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, notes = excluded.notes, created_at = excluded.created_at`,
		p.ID, p.Name, p.Notes, formatTime(created))
	if err != nil {
		return fmt.Errorf("restore person %s: %w", p.ID, err)
	}
	return nil
}
