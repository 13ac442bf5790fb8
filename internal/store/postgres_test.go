package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresCache creates a PostgresCache backed by pgxmock for unit testing.
func newMockPostgresCache(t *testing.T) (*PostgresCache, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return newPostgresWithPool(mock, time.Hour, nil), mock
}

func TestPostgresCache_Get_Hit(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectQuery(`SELECT payload FROM geocode_cache WHERE cache_key = \$1`).
		WithArgs("k1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow([]byte(`{"ok":true}`)))

	data, ok, err := c.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"ok":true}`, string(data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Get_NotFound(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectQuery(`SELECT payload FROM geocode_cache`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	data, ok, err := c.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Get_Error(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectQuery(`SELECT payload FROM geocode_cache`).
		WithArgs("k").
		WillReturnError(errors.New("connection reset"))

	_, _, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cached geocode")
}

func TestPostgresCache_Put_Upsert(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectExec(`ON CONFLICT \(cache_key\)`).
		WithArgs(pgxmock.AnyArg(), "k2", []byte("v"), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, c.Put(context.Background(), "k2", []byte("v")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_DeleteExpired(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectExec(`DELETE FROM geocode_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := c.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCache_Migrate(t *testing.T) {
	c, mock := newMockPostgresCache(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS geocode_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
