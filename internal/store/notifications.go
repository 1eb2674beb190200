package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Notification is a notifications row.
type Notification struct {
	ID        string
	UserID    string
	Type      string
	Subject   string
	Body      string
	Status    string
	CreatedAt time.Time
}

// Contact returns the email and phone stored for userID, or ErrNotFound.
func (s *Store) Contact(ctx context.Context, userID string) (email, phone string, err error) {
	var e, p sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT email, phone FROM users WHERE id = $1`, userID).Scan(&e, &p)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("query contact: %w", err)
	}
	return e.String, p.String, nil
}

func (s *Store) InsertNotification(ctx context.Context, n Notification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, type, subject, body, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Subject, n.Body, n.Status, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *Store) UpdateNotificationStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return nil
}
