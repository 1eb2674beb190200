package activatesubscription

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

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/store"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	lockSubscription   = `SELECT tier, expires_at, is_valid FROM user_subscriptions WHERE user_id = \$1 FOR UPDATE`
	upsertSubscription = `INSERT INTO user_subscriptions`
)

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	log := logger.NewTestLogger(t)
	h := NewHandler(LoadConfig(), store.New(db, nil, time.Minute, log), log)
	h.now = func() time.Time { return fixedNow }
	return h
}

func TestHandler_Execute_NewSubscription(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	expires := fixedNow.Add(30 * 24 * time.Hour)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSubscription).WithArgs("viewer-1").WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(upsertSubscription).WithArgs("viewer-1", "premium", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	output, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		ViewerID: "viewer-1", Tier: "premium", DurationDays: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, Output{
		ViewerID:  "viewer-1",
		Tier:      "premium",
		ExpiresAt: "2025-07-01T12:00:00Z",
	}, *output)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_RenewalExtendsAndInvalidatesCache(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, redisMock := redismock.NewClientMock()

	log := logger.NewTestLogger(t)
	h := NewHandler(LoadConfig(), store.New(db, rdb, time.Minute, log), log)
	h.now = func() time.Time { return fixedNow }

	current := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(lockSubscription).WithArgs("viewer-1").
		WillReturnRows(sqlmock.NewRows([]string{"tier", "expires_at", "is_valid"}).
			AddRow("vip", current.Format(time.RFC3339), true))
	mock.ExpectExec(upsertSubscription).WithArgs("viewer-1", "vip", current.Add(7*24*time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	redisMock.ExpectDel("sub:viewer-1").SetVal(1)

	output, err := h.Execute(context.Background(), &Input{ViewerID: "viewer-1", Tier: "vip", DurationDays: 7})
	require.NoError(t, err)

	assert.True(t, output.Extended)
	assert.Equal(t, "vip", output.PreviousTier)
	assert.Equal(t, "2025-06-22T00:00:00Z", output.ExpiresAt)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"missing viewer", Input{Tier: "basic", DurationDays: 30}},
		{"free tier", Input{ViewerID: "v", Tier: "free", DurationDays: 30}},
		{"unknown tier", Input{ViewerID: "v", Tier: "platinum", DurationDays: 30}},
		{"zero days", Input{ViewerID: "v", Tier: "basic", DurationDays: 0}},
		{"too many days", Input{ViewerID: "v", Tier: "basic", DurationDays: 367}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createTestHandler(t, nil).Execute(context.Background(), &tt.input)
			require.Error(t, err)
			stdErr := apperrors.Normalize(err)
			assert.Equal(t, apperrors.ErrCodeSubscriptionInvalid, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_UnknownTierListsPaidTiers(t *testing.T) {
	_, err := createTestHandler(t, nil).Execute(context.Background(), &Input{
		ViewerID: "v", Tier: "Premium", DurationDays: 30,
	})
	require.Error(t, err)
	assert.Contains(t, apperrors.Normalize(err).Details, "want one of basic, premium, vip")
}

func TestHandler_Execute_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err = createTestHandler(t, db).Execute(context.Background(), &Input{
		ViewerID: "viewer-1", Tier: "basic", DurationDays: 366,
	})
	require.Error(t, err)
	stdErr := apperrors.Normalize(err)
	assert.Equal(t, apperrors.ErrCodeSubscriptionActivationFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, "viewer-1", stdErr.Metadata["viewerId"])
}
