package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangastream-workers/internal/access"
)

const (
	lockSubscription   = `SELECT tier, expires_at, is_valid FROM user_subscriptions WHERE user_id = \$1 FOR UPDATE`
	upsertSubscription = `INSERT INTO user_subscriptions`
)

var activationNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func lockedSubscription(tier, expiresAt string, valid bool) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"tier", "expires_at", "is_valid"}).AddRow(tier, expiresAt, valid)
}

func TestStore_ActivateSubscription(t *testing.T) {
	month := 30 * 24 * time.Hour

	tests := []struct {
		name         string
		existing     *sqlmock.Rows
		tier         access.Tier
		wantExpiry   time.Time
		wantExtended bool
		wantPrevious string
	}{
		{
			name:       "first subscription starts now",
			tier:       access.TierPremium,
			wantExpiry: activationNow.Add(month),
		},
		{
			name:         "same tier still running extends from expiry",
			existing:     lockedSubscription("premium", "2025-06-10T12:00:00Z", true),
			tier:         access.TierPremium,
			wantExpiry:   time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC).Add(month),
			wantExtended: true,
			wantPrevious: "premium",
		},
		{
			name:         "same tier already expired starts now",
			existing:     lockedSubscription("premium", "2025-05-01T00:00:00Z", true),
			tier:         access.TierPremium,
			wantExpiry:   activationNow.Add(month),
			wantPrevious: "premium",
		},
		{
			name:         "tier change starts now",
			existing:     lockedSubscription("basic", "2025-06-20T00:00:00Z", true),
			tier:         access.TierVIP,
			wantExpiry:   activationNow.Add(month),
			wantPrevious: "basic",
		},
		{
			name:         "revoked subscription starts now",
			existing:     lockedSubscription("premium", "2025-06-20T00:00:00Z", false),
			tier:         access.TierPremium,
			wantExpiry:   activationNow.Add(month),
			wantPrevious: "premium",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			rdb, redisMock := redismock.NewClientMock()

			mock.ExpectBegin()
			lock := mock.ExpectQuery(lockSubscription).WithArgs("viewer-1")
			if tt.existing != nil {
				lock.WillReturnRows(tt.existing)
			} else {
				lock.WillReturnError(sql.ErrNoRows)
			}
			mock.ExpectExec(upsertSubscription).
				WithArgs("viewer-1", string(tt.tier), tt.wantExpiry).
				WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectCommit()
			redisMock.ExpectDel("sub:viewer-1").SetVal(1)

			got, err := createTestStore(t, db, rdb).ActivateSubscription(
				context.Background(), "viewer-1", tt.tier, month, activationNow)
			require.NoError(t, err)

			assert.Equal(t, tt.wantExpiry, got.ExpiresAt)
			assert.Equal(t, tt.wantExtended, got.Extended)
			assert.Equal(t, tt.wantPrevious, got.PreviousTier)
			assert.Equal(t, string(tt.tier), got.Tier)

			assert.NoError(t, mock.ExpectationsWereMet())
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestStore_ActivateSubscription_UpsertFailureRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(lockSubscription).WithArgs("viewer-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(upsertSubscription).WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err = createTestStore(t, db, nil).ActivateSubscription(
		context.Background(), "viewer-1", access.TierBasic, 24*time.Hour, activationNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert subscription")
	assert.NoError(t, mock.ExpectationsWereMet())
}
