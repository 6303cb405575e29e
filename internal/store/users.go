// ABOUTME: Local user records provisioned from trusted external logins
// ABOUTME: EnsureUser implements the create-on-first-sight policy

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateUser inserts a new user. ID and CreatedAt are generated when empty.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (id, username, role, created_at)
		VALUES (?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Role,
		user.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Info("created user", "id", user.ID, "username", user.Username, "role", user.Role)
	return nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, role, created_at, last_login
		FROM users
		WHERE username = ?
	`

	u, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// TouchUser records the time of the user's latest trusted login.
func (s *SQLiteStore) TouchUser(ctx context.Context, username string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`,
		at.UTC().Format(time.RFC3339), username,
	)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users ordered by username.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, role, created_at, last_login
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// EnsureUser makes sure username has a local record.
func (s *SQLiteStore) EnsureUser(ctx context.Context, username string, autoCreate bool, role string) error {
	now := time.Now().UTC()

	_, err := s.GetUserByUsername(ctx, username)
	if err == nil {
		return s.TouchUser(ctx, username, now)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}
	if !autoCreate {
		return fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}

	user := &User{Username: username, Role: role, CreatedAt: now}
	err = s.CreateUser(ctx, user)
	if errors.Is(err, ErrUsernameExists) {
		// created concurrently by another request
		return s.TouchUser(ctx, username, now)
	}
	if err != nil {
		return err
	}

	if err := s.TouchUser(ctx, username, now); err != nil {
		return err
	}

	// the user exists now; a lost audit entry must not fail the login
	err = s.AppendAuditLog(ctx, &AuditEntry{
		Actor:      AuditActorSystem,
		Action:     AuditCreateUser,
		TargetType: "user",
		TargetID:   user.ID,
		Detail:     map[string]any{"username": username, "role": role},
	})
	if err != nil {
		s.logger.Warn("recording user creation", "username", username, "error", err)
	}
	return nil
}

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var createdAt string
	var lastLogin sql.NullString

	if err := scanner.Scan(&u.ID, &u.Username, &u.Role, &createdAt, &lastLogin); err != nil {
		return nil, err
	}

	var err error
	u.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if lastLogin.Valid {
		t, err := time.Parse(time.RFC3339, lastLogin.String)
		if err != nil {
			return nil, fmt.Errorf("parsing last_login: %w", err)
		}
		u.LastLogin = &t
	}
	return &u, nil
}
