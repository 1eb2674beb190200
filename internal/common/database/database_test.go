package database

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangastream-workers/internal/common/config"
)

func TestPostgresWithTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec("UPDATE manga").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		pg := NewPostgresFromDB(db)
		err = pg.WithTx(context.Background(), func(tx *sql.Tx) error {
			_, err := tx.Exec("UPDATE manga SET available_episodes = 3 WHERE id = 'm1'")
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		pg := NewPostgresFromDB(db)
		boom := errors.New("boom")
		err = pg.WithTx(context.Background(), func(tx *sql.Tx) error { return boom })
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisPing(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rc, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer rc.Close()

	assert.NoError(t, rc.Ping(context.Background()))

	mr.Close()
	assert.Error(t, rc.Ping(context.Background()))
}

func TestElasticsearchPing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	es, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
	require.NoError(t, err)
	assert.NoError(t, es.Ping(context.Background()))
}
