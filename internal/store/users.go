// ABOUTME: User entity store methods backing the data.models.User operations
// ABOUTME: Roles are persisted as a JSON array; emails are unique

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateUser inserts a new user. ID and timestamps must be set by the caller.
// A duplicate email surfaces as the wrapped driver constraint error.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	rolesJSON, err := json.Marshal(nonNilRoles(u.Roles))
	if err != nil {
		return fmt.Errorf("marshaling roles: %w", err)
	}

	query := `
		INSERT INTO users (id, email, name, password_hash, roles_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		u.ID,
		strings.ToLower(u.Email),
		u.Name,
		u.PasswordHash,
		string(rolesJSON),
		u.CreatedAt.UTC().Format(timeFormat),
		u.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Debug("created user", "id", u.ID)
	return nil
}

// GetUser retrieves a user by ID.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, roles_json, created_at, updated_at
		FROM users WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByEmail retrieves a user by email (case-insensitive).
// Returns ErrNotFound if no user has that email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT id, email, name, password_hash, roles_json, created_at, updated_at
		FROM users WHERE email = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, strings.ToLower(email)))
}

// ListUsers returns users ordered by creation time, oldest first.
func (s *SQLiteStore) ListUsers(ctx context.Context, limit int) ([]*User, error) {
	query := `
		SELECT id, email, name, password_hash, roles_json, created_at, updated_at
		FROM users ORDER BY created_at ASC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil fields of update and returns the updated user.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, update UserUpdate) (*User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}
	if update.Roles != nil {
		u.Roles = update.Roles
	}
	u.UpdatedAt = time.Now().UTC()

	rolesJSON, err := json.Marshal(nonNilRoles(u.Roles))
	if err != nil {
		return nil, fmt.Errorf("marshaling roles: %w", err)
	}

	query := `
		UPDATE users SET name = ?, password_hash = ?, roles_json = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := s.db.ExecContext(ctx, query,
		u.Name,
		u.PasswordHash,
		string(rolesJSON),
		u.UpdatedAt.Format(timeFormat),
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	s.logger.Debug("updated user", "id", id)
	return u, nil
}

// DeleteUser removes a user and, through the foreign key, their notifications.
// Returns ErrNotFound if the user doesn't exist.
func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted user", "id", id)
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanUser(row rowScanner) (*User, error) {
	var u User
	var rolesJSON, createdAtStr, updatedAtStr string

	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &rolesJSON, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	if err := json.Unmarshal([]byte(rolesJSON), &u.Roles); err != nil {
		return nil, fmt.Errorf("parsing roles: %w", err)
	}
	if u.CreatedAt, err = parseTime("created_at", createdAtStr); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime("updated_at", updatedAtStr); err != nil {
		return nil, err
	}
	return &u, nil
}

func nonNilRoles(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
