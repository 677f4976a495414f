package taskstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// GetSetting returns the value for key. ok is false if it is unset.
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, true, nil
}

// SetSetting upserts key and returns the value it replaced, if any.
func (s *Store) SetSetting(ctx context.Context, key, value string) (previous string, existed bool, err error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, errors.New("setting key is required")
	}

	previous, existed, err = s.GetSetting(ctx, key)
	if err != nil {
		return "", false, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE
		 SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.timestamp())
	if err != nil {
		return "", false, fmt.Errorf("set setting %s: %w", key, err)
	}
	return previous, existed, nil
}

// DeleteSetting removes key. No error is returned if it does not exist.
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// Settings returns every stored setting. The map is non-nil.
func (s *Store) Settings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}
