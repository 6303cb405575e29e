// ABOUTME: Session key/value persistence with expiry
// ABOUTME: Backs the sqlite session backend used to remember the authenticating cookie

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SetSessionValue upserts key for sessionID. Every value of the session gets
// the new expiry so a session expires as a whole.
func (s *SQLiteStore) SetSessionValue(ctx context.Context, sessionID, key, value string, expiresAt time.Time) error {
	exp := expiresAt.UTC().Format(time.RFC3339)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_values (session_id, key, value, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, sessionID, key, value, exp)
	if err != nil {
		return fmt.Errorf("upserting session value: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE session_values SET expires_at = ? WHERE session_id = ?`, exp, sessionID,
	); err != nil {
		return fmt.Errorf("extending session: %w", err)
	}

	return tx.Commit()
}

// GetSessionValue returns the value of key for sessionID if it has not expired.
func (s *SQLiteStore) GetSessionValue(ctx context.Context, sessionID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM session_values
		WHERE session_id = ? AND key = ? AND expires_at > ?
	`, sessionID, key, time.Now().UTC().Format(time.RFC3339)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSessionValueNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying session value: %w", err)
	}
	return value, nil
}

// DeleteSession removes all values of sessionID.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_values WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes expired values and returns how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM session_values WHERE expires_at <= ?`,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Debug("purged expired session values", "count", n)
	}
	return n, nil
}
