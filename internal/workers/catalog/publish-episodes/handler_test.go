package publishepisodes

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mangastream-workers/internal/common/errors"
	"mangastream-workers/internal/common/logger"
	"mangastream-workers/internal/common/metrics"
	"mangastream-workers/internal/store"
)

const (
	lockManga       = `SELECT available_episodes, total_episodes FROM manga WHERE id = \$1 FOR UPDATE`
	updateAvailable = `UPDATE manga SET available_episodes = \$1 WHERE id = \$2`
)

func createTestHandler(t *testing.T, db *sql.DB, rdb *redis.Client) *Handler {
	log := logger.NewTestLogger(t)
	return NewHandler(&Config{Timeout: 5 * time.Second}, store.New(db, rdb, time.Minute, log), log)
}

func episodeRows(available, total int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"available_episodes", "total_episodes"}).AddRow(available, total)
}

func TestHandler_Execute_Publishes(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	rdb, redisMock := redismock.NewClientMock()

	mock.ExpectBegin()
	mock.ExpectQuery(lockManga).WithArgs("manga-1").WillReturnRows(episodeRows(2, 10))
	mock.ExpectExec(updateAvailable).WithArgs(5, "manga-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	redisMock.ExpectDel("manga:manga-1").SetVal(1)

	before := testutil.ToFloat64(metrics.EpisodesPublished)

	output, err := createTestHandler(t, db, rdb).Execute(context.Background(), &Input{
		ContentID: "manga-1", AvailableEpisodes: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, Output{
		ContentID:         "manga-1",
		PreviousAvailable: 2,
		AvailableEpisodes: 5,
		TotalEpisodes:     10,
		Changed:           true,
		NewlyUnlocked:     []int{3, 4, 5},
	}, *output)
	assert.Equal(t, before+3, testutil.ToFloat64(metrics.EpisodesPublished))

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestHandler_Execute_LowerCountIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(lockManga).WithArgs("manga-1").WillReturnRows(episodeRows(7, 10))
	mock.ExpectCommit()

	output, err := createTestHandler(t, db, nil).Execute(context.Background(), &Input{
		ContentID: "manga-1", AvailableEpisodes: 4,
	})
	require.NoError(t, err)

	assert.False(t, output.Changed)
	assert.Equal(t, 7, output.PreviousAvailable)
	assert.Equal(t, 7, output.AvailableEpisodes)
	assert.Equal(t, []int{}, output.NewlyUnlocked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		setup     func(sqlmock.Sqlmock)
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{
			name:     "missing content id",
			input:    Input{AvailableEpisodes: 1},
			setup:    func(sqlmock.Sqlmock) {},
			wantCode: apperrors.ErrCodeEpisodePublishInvalid,
		},
		{
			name:  "count above total",
			input: Input{ContentID: "manga-1", AvailableEpisodes: 11},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockManga).WithArgs("manga-1").WillReturnRows(episodeRows(2, 10))
				m.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeEpisodePublishInvalid,
		},
		{
			name:  "negative count",
			input: Input{ContentID: "manga-1", AvailableEpisodes: -2},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockManga).WithArgs("manga-1").WillReturnRows(episodeRows(2, 10))
				m.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeEpisodePublishInvalid,
		},
		{
			name:  "unknown title",
			input: Input{ContentID: "ghost", AvailableEpisodes: 1},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin()
				m.ExpectQuery(lockManga).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
				m.ExpectRollback()
			},
			wantCode: apperrors.ErrCodeContentNotFound,
		},
		{
			name:  "database failure",
			input: Input{ContentID: "manga-1", AvailableEpisodes: 3},
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectBegin().WillReturnError(errors.New("connection refused"))
			},
			wantCode:  apperrors.ErrCodeEpisodePublishFailed,
			retryable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			tt.setup(mock)

			_, err = createTestHandler(t, db, nil).Execute(context.Background(), &tt.input)
			require.Error(t, err)
			stdErr := apperrors.Normalize(err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
