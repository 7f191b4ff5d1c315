package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voralek/sessguard/internal/core/domain"
)

const sessionColumns = "unsigned_id, user_id, user_agent, ip_address, created_at, last_used, expires_at"

// SessionStore is the PostgreSQL session repository.
type SessionStore struct {
	pool *pgxpool.Pool
}

// NewSessionStore creates a session store on the given pool.
func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Create persists a new session row.
func (s *SessionStore) Create(ctx context.Context, rec *domain.SessionRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.UnsignedID, rec.UserID, rec.UserAgent, rec.IPAddress,
		rec.CreatedAt, rec.LastUsed, rec.ExpiresAt)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	return nil
}

// Find retrieves a session row by its unsigned id.
func (s *SessionStore) Find(ctx context.Context, unsignedID string) (*domain.SessionRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE unsigned_id = $1`, unsignedID)

	rec, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return rec, nil
}

// List retrieves all session rows for a user, newest first.
func (s *SessionStore) List(ctx context.Context, userID string) ([]*domain.SessionRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	defer rows.Close()

	var records []*domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, domain.ErrStorageError.WithCause(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrStorageError.WithCause(err)
	}
	return records, nil
}

// Delete removes a session row by its unsigned id.
func (s *SessionStore) Delete(ctx context.Context, unsignedID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE unsigned_id = $1`, unsignedID)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// DeleteAllExcept removes every session of a user except keepID.
func (s *SessionStore) DeleteAllExcept(ctx context.Context, userID, keepID string) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND unsigned_id <> $2`, userID, keepID)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteSelected removes the given session ids belonging to a user.
func (s *SessionStore) DeleteSelected(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND unsigned_id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return int(tag.RowsAffected()), nil
}

// DeleteExpired removes the user's sessions past the refresh window.
func (s *SessionStore) DeleteExpired(ctx context.Context, userID string, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE user_id = $1 AND expires_at <= $2`,
		userID, now.Add(-domain.MaxRefreshDuration))
	if err != nil {
		return 0, domain.ErrStorageError.WithCause(err)
	}
	return int(tag.RowsAffected()), nil
}

// Touch updates the last_used timestamp of a session row.
func (s *SessionStore) Touch(ctx context.Context, unsignedID string, lastUsed time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE sessions SET last_used = $2 WHERE unsigned_id = $1`, unsignedID, lastUsed)
	if err != nil {
		return domain.ErrStorageError.WithCause(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row) (*domain.SessionRecord, error) {
	var rec domain.SessionRecord
	err := row.Scan(&rec.UnsignedID, &rec.UserID, &rec.UserAgent, &rec.IPAddress,
		&rec.CreatedAt, &rec.LastUsed, &rec.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
