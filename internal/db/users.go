package db

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is an API account. Every user belongs to one team.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Team         string    `json:"team"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
}

// GetUserByEmail looks a user up by e-mail, ignoring case.
func GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return getUser(ctx, `WHERE lower(email) = lower($1)`, strings.TrimSpace(email))
}

// GetUser looks a user up by id.
func GetUser(ctx context.Context, id string) (*User, error) {
	return getUser(ctx, `WHERE id = $1::uuid`, id)
}

func getUser(ctx context.Context, where string, arg any) (*User, error) {
	if Pool == nil {
		return nil, ErrNoDatabase
	}
	var u User
	err := Pool.QueryRow(ctx, `SELECT id, email, name, team, role, password_hash FROM users `+where, arg).
		Scan(&u.ID, &u.Email, &u.Name, &u.Team, &u.Role, &u.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUser creates a user or resets its name, team, role and password.
func UpsertUser(ctx context.Context, u *User) error {
	if Pool == nil {
		return ErrNoDatabase
	}
	return Pool.QueryRow(ctx, `
		INSERT INTO users (email, name, team, role, password_hash)
		VALUES (lower($1), $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name, team = EXCLUDED.team,
			role = EXCLUDED.role, password_hash = EXCLUDED.password_hash
		RETURNING id
	`, u.Email, u.Name, u.Team, u.Role, u.PasswordHash).Scan(&u.ID)
}

// TouchLogin records a successful login.
func TouchLogin(ctx context.Context, id uuid.UUID) error {
	if Pool == nil {
		return ErrNoDatabase
	}
	_, err := Pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
	return err
}
