package database

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dorkforge/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	pool, err := New(config.DatabaseConfig{})
	require.NoError(t, err)
	assert.Nil(t, pool)

	// nil pools are safe to probe and close
	assert.Error(t, pool.Health(context.Background()))
	assert.NoError(t, pool.Close())
}

func TestMigrate(t *testing.T) {
	files := fstest.MapFS{
		"0002_b.sql": {Data: []byte("CREATE INDEX IF NOT EXISTS b ON t (x);")},
		"0001_a.sql": {Data: []byte("CREATE TABLE IF NOT EXISTS t (x int);")},
		"README.md":  {Data: []byte("ignored")},
	}

	t.Run("applies files in order", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS t (x int);").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("CREATE INDEX IF NOT EXISTS b ON t (x);").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, FromDB(db).Migrate(context.Background(), files))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("CREATE TABLE IF NOT EXISTS t (x int);").WillReturnError(errors.New("permission denied"))

		err = FromDB(db).Migrate(context.Background(), files)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "0001_a.sql")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
