package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/acp-gateway/internal/model"
)

// SessionRepo persists issued session hashes (single 'token_hash' column).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Record inserts a session row.  Re-recording the same hash is a no-op.
func (r *SessionRepo) Record(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT IGNORE INTO sessions (token_hash, user_id, expires_at, created_at) VALUES (?,?,?,?)",
		s.TokenHash, s.UserID, s.ExpiresAt, s.CreatedAt)
	return err
}

// FindByTokenHash returns the session recorded for tokenHash.
func (r *SessionRepo) FindByTokenHash(ctx context.Context, tokenHash string) (model.Session, error) {
	var s model.Session
	err := r.DB.QueryRowContext(ctx,
		"SELECT token_hash, user_id, expires_at, created_at FROM sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&s.TokenHash, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	return s, err
}
