package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/launchpop/internal/counter"
)

// LocalScope holds counters that persist across sessions.
const LocalScope = "local"

const sessionScopePrefix = "session:"

// SessionScope returns the scope name for a browsing session.
func SessionScope(id string) string {
	return sessionScopePrefix + id
}

// IsSessionScope reports whether scope names a session scope.
func IsSessionScope(scope string) bool {
	return strings.HasPrefix(scope, sessionScopePrefix)
}

// Counter is one stored key/value row.
type Counter struct {
	Scope     string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Get returns the value stored for key in scope. The boolean is false when
// no row exists.
func (s *Store) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE scope = ? AND key = ?`,
		scope, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get counter %s/%s: %w", scope, key, err)
	}
	return value, true, nil
}

// Set upserts value for key in scope, stamping the row with now.
func (s *Store) Set(ctx context.Context, scope, key, value string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO counters (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, scope, key, value, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("set counter %s/%s: %w", scope, key, err)
	}
	return nil
}

// Increment adds one to the integer stored at key and returns the new value.
// A missing value or one without leading digits counts as zero.
func (s *Store) Increment(ctx context.Context, scope, key string, now time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin increment: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT value FROM counters WHERE scope = ? AND key = ?`,
		scope, key,
	).Scan(&raw)
	found := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("read counter %s/%s: %w", scope, key, err)
	}
	n := counter.ParseInt(raw, found, 0) + 1

	_, err = tx.ExecContext(ctx, `
		INSERT INTO counters (scope, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(scope, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, scope, key, strconv.FormatInt(n, 10), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("write counter %s/%s: %w", scope, key, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit increment: %w", err)
	}
	return n, nil
}

// Delete removes key from scope. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, scope, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM counters WHERE scope = ? AND key = ?`, scope, key)
	if err != nil {
		return fmt.Errorf("delete counter %s/%s: %w", scope, key, err)
	}
	return nil
}

// List returns counters ordered by scope then key. An empty scope lists
// every scope.
func (s *Store) List(ctx context.Context, scope string) ([]Counter, error) {
	query := `SELECT scope, key, value, updated_at FROM counters`
	var args []any
	if scope != "" {
		query += ` WHERE scope = ?`
		args = append(args, scope)
	}
	query += ` ORDER BY scope ASC, key COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()

	var out []Counter
	for rows.Next() {
		var c Counter
		var updated int64
		if err := rows.Scan(&c.Scope, &c.Key, &c.Value, &updated); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		c.UpdatedAt = time.UnixMilli(updated)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Reset deletes counters. An empty scope clears every scope; a non-empty
// keyPrefix limits deletion to keys starting with it. Returns rows removed.
func (s *Store) Reset(ctx context.Context, scope, keyPrefix string) (int64, error) {
	query := `DELETE FROM counters WHERE 1 = 1`
	var args []any
	if scope != "" {
		query += ` AND scope = ?`
		args = append(args, scope)
	}
	if keyPrefix != "" {
		query += ` AND substr(key, 1, ?) = ?`
		args = append(args, len(keyPrefix), keyPrefix)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset counters: %w", err)
	}
	return n, nil
}
