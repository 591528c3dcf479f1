package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces session identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 session ids.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session is a row of the sessions table.
type Session struct {
	ID        string
	StartedAt time.Time
}

// StartSession records a new session and returns it. A nil gen uses UUIDv7.
func (s *Store) StartSession(ctx context.Context, gen IDGenerator, now time.Time) (Session, error) {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	sess := Session{ID: gen.Generate(), StartedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		sess.ID, now.UnixMilli(),
	)
	if err != nil {
		return Session{}, fmt.Errorf("start session: %w", err)
	}
	return sess, nil
}

// Sessions returns all known sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at FROM sessions ORDER BY started_at ASC, id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var started int64
		if err := rows.Scan(&sess.ID, &started); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.StartedAt = time.UnixMilli(started)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// PruneSessions removes sessions started before cutoff together with their
// counters. Returns the number of sessions removed.
func (s *Store) PruneSessions(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin prune: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM counters WHERE scope IN (
			SELECT ? || id FROM sessions WHERE started_at < ?
		)
	`, sessionScopePrefix, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune session counters: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`DELETE FROM sessions WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return n, nil
}
