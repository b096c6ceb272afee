package store

import (
	"context"
	"database/sql"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"socanalyzer/core"
)

const userColumns = `id, username, password_hash, COALESCE(email, ''), role,
	COALESCE(api_key, ''), COALESCE(photo, ''), created_at`

// CreateUser inserts a new analyst account with a bcrypt password hash.
func (s *Store) CreateUser(ctx context.Context, username, password, email, role string) (core.User, error) {
	if role == "" {
		role = "user"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	ts := now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, email, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		username, string(hash), email, role, ts)
	if err != nil {
		return core.User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("failed to read user id: %w", err)
	}

	return core.User{
		ID:           id,
		Username:     username,
		PasswordHash: string(hash),
		Email:        email,
		Role:         role,
		CreatedAt:    parseTime(ts),
	}, nil
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

// GetUserByUsername fetches a user by its unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (core.User, error) {
	return s.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

func (s *Store) getUser(ctx context.Context, query string, arg interface{}) (core.User, error) {
	var u core.User
	var createdAt string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&u.ID, &u.Username,
		&u.PasswordHash, &u.Email, &u.Role, &u.APIKey, &u.Photo, &createdAt)
	if err == sql.ErrNoRows {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to query user: %w", err)
	}
	u.CreatedAt = parseTime(createdAt)
	return u, nil
}

// UpdateProfile overwrites the profile fields of a user. The personal API
// key, when set, overrides the default oracle credential for that user's
// analysis requests.
func (s *Store) UpdateProfile(ctx context.Context, id int64, email, apiKey, photo string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, api_key = ?, photo = ? WHERE id = ?`,
		email, apiKey, photo, id)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns all accounts, oldest first.
func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email,
			&u.Role, &u.APIKey, &u.Photo, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.CreatedAt = parseTime(createdAt)
		users = append(users, u)
	}
	return users, rows.Err()
}
