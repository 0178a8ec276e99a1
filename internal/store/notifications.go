// ABOUTME: Notification store methods
// ABOUTME: Notifications belong to a user and are removed with them

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateNotification stores a notification for an existing user.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (id, user_id, kind, message, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Kind,
		n.Message,
		n.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error) {
	query := `
		SELECT id, user_id, kind, message, created_at
		FROM notifications WHERE user_id = ?
		ORDER BY created_at DESC LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		if n.CreatedAt, err = parseTime("created_at", createdAt); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating notifications: %w", err)
	}
	return out, nil
}
