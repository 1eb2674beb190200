package recordpayment

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/store"
)

const (
	insertPayment   = `INSERT INTO payments`
	incrementManga  = `UPDATE manga SET current_donations = current_donations \+ \$1 WHERE id = \$2 RETURNING current_donations, donation_goal`
	selectDonations = `SELECT current_donations, donation_goal FROM manga WHERE id = \$1`
)

// ==========================
// Test Helper Functions
// ==========================

func createTestHandler(t *testing.T, db *sql.DB) *Handler {
	log := logger.NewTestLogger(t)
	h := NewHandler(&Config{Timeout: 5 * time.Second, DefaultCurrency: "USD"},
		store.NewPaymentLedger(store.New(db, nil, time.Minute, log)), log)
	h.newID = func() string { return "generated-id" }
	return h
}

func donationRows(current, goal int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"current_donations", "donation_goal"}).AddRow(current, goal)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_CompletedPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertPayment).
		WithArgs("pay-1", "viewer-1", "manga-1", int64(2500), "EUR", "completed", "stripe", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(incrementManga).WithArgs(int64(2500), "manga-1").WillReturnRows(donationRows(7500, 10000))
	mock.ExpectCommit()

	before := testutil.ToFloat64(metrics.DonationAmount.WithLabelValues("EUR"))

	output, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		PaymentID: "pay-1",
		ViewerID:  "viewer-1",
		ContentID: "manga-1",
		Amount:    2500,
		Currency:  "eur",
		Status:    "completed",
		Provider:  "stripe",
	})
	require.NoError(t, err)

	assert.Equal(t, Output{
		PaymentID:        "pay-1",
		Recorded:         true,
		CurrentDonations: 7500,
		DonationGoal:     10000,
		ProgressPercent:  75,
	}, *output)
	assert.Equal(t, before+2500, testutil.ToFloat64(metrics.DonationAmount.WithLabelValues("EUR")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_GoalJustReached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertPayment).
		WithArgs("generated-id", nil, "manga-1", int64(3000), "USD", "completed", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(incrementManga).WithArgs(int64(3000), "manga-1").WillReturnRows(donationRows(10500, 10000))
	mock.ExpectCommit()

	output, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		ContentID: "manga-1",
		Amount:    3000,
		Status:    "Completed",
	})
	require.NoError(t, err)

	assert.Equal(t, "generated-id", output.PaymentID)
	assert.True(t, output.GoalReached)
	assert.True(t, output.GoalJustReached)
	assert.Equal(t, float64(100), output.ProgressPercent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Redelivery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertPayment).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(selectDonations).WithArgs("manga-1").WillReturnRows(donationRows(10500, 10000))
	mock.ExpectCommit()

	output, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		PaymentID: "pay-1",
		ContentID: "manga-1",
		Amount:    3000,
		Status:    "completed",
	})
	require.NoError(t, err)

	assert.False(t, output.Recorded)
	assert.True(t, output.Duplicate)
	assert.True(t, output.GoalReached)
	assert.False(t, output.GoalJustReached)
	assert.Equal(t, int64(10500), output.CurrentDonations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_CancelledPayment(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(insertPayment).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(selectDonations).WithArgs("manga-1").WillReturnRows(donationRows(1000, 0))
	mock.ExpectCommit()

	output, err := createTestHandler(t, db).Execute(context.Background(), &Input{
		PaymentID: "pay-2",
		ContentID: "manga-1",
		Amount:    500,
		Status:    "cancelled",
	})
	require.NoError(t, err)

	assert.True(t, output.Recorded)
	assert.False(t, output.GoalReached)
	assert.Zero(t, output.ProgressPercent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input Input
	}{
		{"missing content", Input{Amount: 100, Status: "completed"}},
		{"zero amount", Input{ContentID: "manga-1", Amount: 0, Status: "completed"}},
		{"negative amount", Input{ContentID: "manga-1", Amount: -5, Status: "completed"}},
		{"unknown status", Input{ContentID: "manga-1", Amount: 100, Status: "pending"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := createTestHandler(t, nil).Execute(context.Background(), &tt.input)
			require.Error(t, err)
			stdErr := apperrors.Normalize(err)
			assert.Equal(t, apperrors.ErrCodePaymentInvalid, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}
}

func TestHandler_Execute_StoreErrors(t *testing.T) {
	t.Run("unknown content", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(insertPayment).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(incrementManga).WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err = createTestHandler(t, db).Execute(context.Background(), &Input{
			PaymentID: "pay-1", ContentID: "ghost", Amount: 100, Status: "completed",
		})
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeContentNotFound, apperrors.Normalize(err).Code)
	})

	t.Run("ledger failure", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin().WillReturnError(errors.New("connection refused"))

		_, err = createTestHandler(t, db).Execute(context.Background(), &Input{
			PaymentID: "pay-1", ContentID: "manga-1", Amount: 100, Status: "completed",
		})
		require.Error(t, err)
		stdErr := apperrors.Normalize(err)
		assert.Equal(t, apperrors.ErrCodePaymentRecordFailed, stdErr.Code)
		assert.True(t, stdErr.Retryable)
		assert.Equal(t, "pay-1", stdErr.Metadata["paymentId"])
	})
}
