package session

import (
	"context"
	"database/sql"
	"time"
)

const DefaultTTL = time.Hour

type MySQLSessionRepo struct {
	DB  *sql.DB
	TTL time.Duration
	Now func() time.Time
}

func NewMySQLSessionRepo(db *sql.DB) *MySQLSessionRepo {
	return &MySQLSessionRepo{DB: db, TTL: DefaultTTL, Now: time.Now}
}

func (r *MySQLSessionRepo) now() time.Time {
	return r.Now().UTC()
}

func (r *MySQLSessionRepo) Create(ctx context.Context, userID string, sessionID string) (string, error) {
	now := r.now()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, userID, now, now.Add(r.TTL))

	return sessionID, err
}

func (r *MySQLSessionRepo) IsValid(ctx context.Context, sessionID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sessions
			WHERE id = ? AND expires_at > ?
		)
	`, sessionID, r.now()).Scan(&exists)
	return exists, err
}

func (r *MySQLSessionRepo) Invalidate(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM sessions WHERE id = ?
	`, sessionID)
	return err
}

func (r *MySQLSessionRepo) InvalidateUser(ctx context.Context, userID string) error {
	_, err := r.DB.ExecContext(ctx, `
		DELETE FROM sessions WHERE user_id = ?
	`, userID)
	return err
}
