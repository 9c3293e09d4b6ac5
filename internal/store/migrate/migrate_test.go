package migrate

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/adminpanel/migrations"
)

type fakeExec struct {
	applied map[int]bool
	calls   []string
	failOn  int
}

func (f *fakeExec) EnsureTable(context.Context) error { return nil }

func (f *fakeExec) Applied(context.Context) (map[int]bool, error) {
	out := map[int]bool{}
	for k, v := range f.applied {
		out[k] = v
	}
	return out, nil
}

func (f *fakeExec) Apply(_ context.Context, m Migration, up bool) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	if up {
		f.applied[m.Version] = true
		f.calls = append(f.calls, "up:"+m.Name)
	} else {
		delete(f.applied, m.Version)
		f.calls = append(f.calls, "down:"+m.Name)
	}
	return nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"db/0002_index_up.sql":   {Data: []byte("CREATE INDEX x;")},
		"db/0002_index_down.sql": {Data: []byte("DROP INDEX x;")},
		"db/0001_init_up.sql":    {Data: []byte("CREATE TABLE t;")},
		"db/0001_init_down.sql":  {Data: []byte("DROP TABLE t;")},
		"db/README.md":           {Data: []byte("ignored")},
	}
}

func TestLoad_OrdersAndPairs(t *testing.T) {
	migs, err := Load(testFS(), "db")
	require.NoError(t, err)
	require.Len(t, migs, 2)
	require.Equal(t, Migration{Version: 1, Name: "init", Up: "CREATE TABLE t;", Down: "DROP TABLE t;"}, migs[0])
	require.Equal(t, 2, migs[1].Version)
}

func TestLoad_RequiresUp(t *testing.T) {
	_, err := Load(fstest.MapFS{"db/0001_init_down.sql": {Data: []byte("x")}}, "db")
	require.Error(t, err)
}

func TestLoad_EmbeddedScripts(t *testing.T) {
	for _, dir := range []string{migrations.PostgresDir, migrations.SQLiteDir} {
		migs, err := Load(migrations.FS, dir)
		require.NoError(t, err, dir)
		require.NotEmpty(t, migs, dir)
		require.Contains(t, migs[0].Up, "app_user")
	}
}

func TestUpDown(t *testing.T) {
	migs, err := Load(testFS(), "db")
	require.NoError(t, err)
	ctx := context.Background()
	ex := &fakeExec{applied: map[int]bool{}}

	res, err := Up(ctx, ex, migs, 1)
	require.NoError(t, err)
	require.Equal(t, []int{1}, res.Applied)

	res, err = Up(ctx, ex, migs, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2}, res.Applied)
	require.Equal(t, []int{1}, res.Skipped)

	res, err = Down(ctx, ex, migs, 0)
	require.NoError(t, err)
	require.Equal(t, []int{2, 1}, res.Applied)
	require.Equal(t, []string{"up:init", "up:index", "down:index", "down:init"}, ex.calls)
}

func TestUp_StopsOnFailure(t *testing.T) {
	migs, err := Load(testFS(), "db")
	require.NoError(t, err)
	ex := &fakeExec{applied: map[int]bool{}, failOn: 2}

	res, err := Up(context.Background(), ex, migs, 0)
	require.Error(t, err)
	require.Equal(t, []int{1}, res.Applied)
}
