package db

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmailTaken is returned when registering an address that already exists.
var ErrEmailTaken = errors.New("email already registered")

type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    int64
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
}

func (s *Store) CreateUser(ctx context.Context, arg CreateUserParams) (*User, error) {
	u := &User{
		ID:           newID(),
		Name:         arg.Name,
		Email:        strings.ToLower(strings.TrimSpace(arg.Email)),
		PasswordHash: arg.PasswordHash,
		IsAdmin:      arg.IsAdmin,
		CreatedAt:    s.stamp(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, is_admin, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.IsAdmin, u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "inserting user")
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(ctx, `SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(ctx, `SELECT id, name, email, password_hash, is_admin, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) scanUser(ctx context.Context, query string, arg string) (*User, error) {
	u := &User{}
	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if err != nil {
		return nil, notFound(err, "user")
	}
	return u, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}
