package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/db"
)

// PostgresSessionStore keeps each user's single refresh token in users.refresh_token.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save replaces the stored refresh token, invalidating any previous one.
func (s *PostgresSessionStore) Save(ctx context.Context, userID, refreshToken string) error {
	return s.exec(ctx, "save session", `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, refreshToken)
}

// Rotate swaps presented for next only if presented is the stored token.
func (s *PostgresSessionStore) Rotate(ctx context.Context, userID, presented, next string) error {
	return s.exec(ctx, "rotate session", `
        UPDATE users SET refresh_token = $3
        WHERE id = $1 AND refresh_token = $2
    `, userID, presented, next)
}

// Clear empties the refresh token slot.
func (s *PostgresSessionStore) Clear(ctx context.Context, userID string) error {
	return s.exec(ctx, "clear session", `UPDATE users SET refresh_token = NULL WHERE id = $1`, userID)
}

func (s *PostgresSessionStore) exec(ctx context.Context, op, stmt string, args ...any) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, stmt, args...)
	if err != nil {
		mapped := mapPgError(err, op)
		if errors.Is(mapped, ErrNotFound) {
			return auth.ErrSessionNotFound
		}
		return mapped
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
