package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mangastream-workers/internal/access"
	"mangastream-workers/internal/common/database"
)

// Activation is the outcome of ActivateSubscription.
type Activation struct {
	PreviousTier string
	Tier         string
	ExpiresAt    time.Time
	Extended     bool
}

// ActivateSubscription grants tier to viewerID for the given duration. Renewing the same
// tier while it is still running extends from the current expiry; anything else starts at now.
func (s *Store) ActivateSubscription(ctx context.Context, viewerID string, tier access.Tier, duration time.Duration, now time.Time) (*Activation, error) {
	result := &Activation{Tier: string(tier)}
	now = now.UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			current   sql.NullString
			expiresAt sql.NullString
			isValid   bool
		)
		err := tx.QueryRowContext(ctx,
			`SELECT tier, expires_at, is_valid FROM user_subscriptions WHERE user_id = $1 FOR UPDATE`,
			viewerID,
		).Scan(&current, &expiresAt, &isValid)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lock subscription: %w", err)
		}
		result.PreviousTier = current.String

		start := now
		if isValid && current.String == string(tier) {
			if prev := access.ParseExpiry(expiresAt.String); prev != nil && prev.After(now) {
				start = *prev
				result.Extended = true
			}
		}
		result.ExpiresAt = start.Add(duration)

		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_subscriptions (user_id, tier, expires_at, is_valid)
			 VALUES ($1, $2, $3, TRUE)
			 ON CONFLICT (user_id) DO UPDATE SET tier = EXCLUDED.tier, expires_at = EXCLUDED.expires_at, is_valid = TRUE`,
			viewerID, string(tier), result.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.InvalidateSubscription(ctx, viewerID)
	return result, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return database.NewPostgresFromDB(s.db).WithTx(ctx, fn)
}
