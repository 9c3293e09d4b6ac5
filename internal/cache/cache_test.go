package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("adminpanel", 0)

	_, err := c.Get(ctx, "export:1")
	require.True(t, IsNotFound(err))

	require.NoError(t, c.Set(ctx, "export:1", []byte{0x0a, 0x00}, 0))
	got, err := c.Get(ctx, "export:1")
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x00}, got)

	st, err := c.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, "memory", st.Driver)
	require.EqualValues(t, 1, st.Keys)
	require.EqualValues(t, 1, st.Hits)
	require.EqualValues(t, 1, st.Misses)

	require.NoError(t, c.Delete(ctx, "export:1"))
	_, err = c.Get(ctx, "export:1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_TTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", time.Hour)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, "k")
		return IsNotFound(err)
	}, time.Second, 10*time.Millisecond)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), Config{Driver: ""})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	st, _ := c.Stats(context.Background())
	require.Equal(t, "memory", st.Driver)
}

func TestInfoField(t *testing.T) {
	info := "# Memory\r\nused_memory:1024\r\nused_memory_human:1.00K\r\n"
	require.Equal(t, "1.00K", infoField(info, "used_memory_human"))
	require.Equal(t, "", infoField(info, "missing"))
}
