// internal/store/ledger.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PaymentLedger appends payments and keeps manga.current_donations in step with completed ones.
type PaymentLedger struct {
	store *Store
	now   func() time.Time
}

func NewPaymentLedger(s *Store) *PaymentLedger {
	return &PaymentLedger{store: s, now: time.Now}
}

// Record stores p once. Only the first delivery of a completed payment increments the title's
// donation total; re-deliveries of the same payment id report Duplicate and change nothing.
// The insert and the increment share one transaction.
func (l *PaymentLedger) Record(ctx context.Context, p Payment) (*LedgerResult, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = l.now().UTC()
	}

	result := &LedgerResult{}

	err := l.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO payments (id, user_id, manga_id, amount, currency, status, provider, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO NOTHING`,
			p.ID, nullString(p.ViewerID), p.ContentID, p.Amount, p.Currency, string(p.Status), nullString(p.Provider), p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		inserted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		result.Duplicate = inserted == 0

		if !result.Duplicate && p.Status == PaymentCompleted {
			err = tx.QueryRowContext(ctx,
				`UPDATE manga SET current_donations = current_donations + $1 WHERE id = $2 RETURNING current_donations, donation_goal`,
				p.Amount, p.ContentID,
			).Scan(&result.CurrentDonations, &result.DonationGoal)
			result.Applied = true
		} else {
			err = tx.QueryRowContext(ctx,
				`SELECT current_donations, donation_goal FROM manga WHERE id = $1`,
				p.ContentID,
			).Scan(&result.CurrentDonations, &result.DonationGoal)
		}
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update donation total: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Applied {
		l.store.InvalidateContent(ctx, p.ContentID)
	}
	return result, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
