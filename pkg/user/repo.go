package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type MySQLRepo struct {
	DB *sql.DB
}

func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{DB: db}
}

func (r *MySQLRepo) Create(ctx context.Context, user *User) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password, email_confirmed, created_at) VALUES (?, ?, ?, ?, ?)",
		user.ID, strings.ToLower(user.Email), user.Password, user.EmailConfirmed, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	return nil
}

func (r *MySQLRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "SELECT id, email, password, email_confirmed FROM users WHERE email = ?", strings.ToLower(email))
}

func (r *MySQLRepo) FindByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, "SELECT id, email, password, email_confirmed FROM users WHERE id = ?", id)
}

func (r *MySQLRepo) findOne(ctx context.Context, query string, arg any) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Password, &u.EmailConfirmed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *MySQLRepo) Update(ctx context.Context, id string, ch Changes) error {
	var (
		sets []string
		args []any
	)
	if ch.PasswordHash != nil {
		sets = append(sets, "password = ?")
		args = append(args, *ch.PasswordHash)
	}
	if ch.EmailConfirmed != nil {
		sets = append(sets, "email_confirmed = ?")
		args = append(args, *ch.EmailConfirmed)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	_, err := r.DB.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *MySQLRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	return err
}
