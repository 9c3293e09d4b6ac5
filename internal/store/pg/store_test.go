package pg

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/storetest"
)

// testDSN devuelve el DSN de una Postgres descartable o saltea el test.
func testDSN(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"STORAGE_DSN", "DATABASE_URL"} {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	t.Skip("requires STORAGE_DSN or DATABASE_URL pointing to a disposable postgres")
	return ""
}

// openClean abre el store, migra y vacía app_user.
func openClean(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := New(ctx, testDSN(t), PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Ping(ctx))
	_, err = s.Migrate(ctx)
	require.NoError(t, err)
	_, err = s.Pool().Exec(ctx, `TRUNCATE app_user`)
	require.NoError(t, err)
	return s
}

func TestPostgresStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Repository { return openClean(t) })
}

func TestPostgresStore_MigrateIsIdempotent(t *testing.T) {
	s := openClean(t)
	res, err := s.Migrate(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Applied)
	require.NotEmpty(t, res.Skipped)
}

func TestPostgresStore_PoolStats(t *testing.T) {
	s := openClean(t)
	require.NotNil(t, s.PoolStats())
	require.EqualValues(t, 4, s.PoolStats().MaxConns())

	var nilStore *Store
	require.Nil(t, nilStore.PoolStats())
	require.Nil(t, nilStore.Pool())
	require.NoError(t, nilStore.Close())
}

func TestEscapeLike(t *testing.T) {
	cases := map[string]string{
		"doe":       "doe",
		"100%":      `100\%`,
		"a_b":       `a\_b`,
		`back\path`: `back\\path`,
		`%_\`:       `\%\_\\`,
	}
	for in, want := range cases {
		require.Equal(t, want, escapeLike(in), in)
	}
}

func TestIsUnique(t *testing.T) {
	require.True(t, isUnique(&pgconn.PgError{Code: "23505"}))
	require.True(t, isUnique(errors.Join(errors.New("insert"), &pgconn.PgError{Code: "23505"})))
	require.False(t, isUnique(&pgconn.PgError{Code: "23503"}))
	require.False(t, isUnique(errors.New("boom")))
	require.False(t, isUnique(nil))
}

func TestNew_RejectsBadDSN(t *testing.T) {
	_, err := New(context.Background(), "postgres://%zz", PoolConfig{})
	require.Error(t, err)
}
