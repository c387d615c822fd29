package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"autoportal/pkg/role"
)

type MySQLRepo struct {
	DB *sql.DB
}

func NewMySQLRepo(db *sql.DB) *MySQLRepo {
	return &MySQLRepo{DB: db}
}

const profileColumns = "id, username, first_name, last_name, phone, notes, role, created_at, updated_at"

func (r *MySQLRepo) Create(ctx context.Context, p *Profile) error {
	if _, err := r.FindByUsername(ctx, p.Username); err == nil {
		return ErrExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Username, p.FirstName, p.LastName, p.Phone, p.Notes, roleValue(p.Role), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *MySQLRepo) FindByID(ctx context.Context, id string) (*Profile, error) {
	return r.findOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id)
}

func (r *MySQLRepo) FindByUsername(ctx context.Context, username string) (*Profile, error) {
	return r.findOne(ctx, "SELECT "+profileColumns+" FROM profiles WHERE username = ?", username)
}

// List returns profiles with role r, or every profile when r is role.None.
func (r *MySQLRepo) List(ctx context.Context, rl role.Role) ([]*Profile, error) {
	query := "SELECT " + profileColumns + " FROM profiles"
	var args []any
	if rl.Valid() {
		query += " WHERE role = ?"
		args = append(args, rl.String())
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var out []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *MySQLRepo) Count(ctx context.Context, rl role.Role) (int, error) {
	query := "SELECT COUNT(*) FROM profiles"
	var args []any
	if rl.Valid() {
		query += " WHERE role = ?"
		args = append(args, rl.String())
	}

	var n int
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count profiles: %w", err)
	}
	return n, nil
}

func (r *MySQLRepo) UpdateRole(ctx context.Context, id string, rl role.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE profiles SET role = ? WHERE id = ?", roleValue(rl), id)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// UpdateDetails overwrites the owner-editable fields and stamps updated_at.
func (r *MySQLRepo) UpdateDetails(ctx context.Context, id string, d DetailsForm) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE profiles SET first_name = ?, last_name = ?, phone = ?, notes = ?, updated_at = ? WHERE id = ?",
		d.FirstName, d.LastName, d.Phone, d.Notes, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RoleForUser reads the role column only. A missing row is role.None with no error.
func (r *MySQLRepo) RoleForUser(ctx context.Context, id string) (role.Role, error) {
	var raw sql.NullString
	err := r.DB.QueryRowContext(ctx, "SELECT role FROM profiles WHERE id = ?", id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return role.None, nil
	}
	if err != nil {
		return role.None, fmt.Errorf("fetch role: %w", err)
	}
	return role.Parse(raw.String), nil
}

func (r *MySQLRepo) findOne(ctx context.Context, query string, arg any) (*Profile, error) {
	p, err := scanProfile(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProfile(row scanner) (*Profile, error) {
	var (
		p                             Profile
		first, last, phone, notes, rl sql.NullString
		updated                       sql.NullTime
	)
	if err := row.Scan(&p.ID, &p.Username, &first, &last, &phone, &notes, &rl, &p.CreatedAt, &updated); err != nil {
		return nil, err
	}
	p.FirstName = first.String
	p.LastName = last.String
	p.Phone = phone.String
	p.Notes = notes.String
	if updated.Valid {
		t := updated.Time
		p.UpdatedAt = &t
	}
	p.Role = role.Parse(rl.String)
	return &p, nil
}

func roleValue(r role.Role) any {
	if !r.Valid() {
		return nil
	}
	return r.String()
}
