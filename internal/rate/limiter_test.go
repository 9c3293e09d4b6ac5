package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter("", 3, time.Minute)
	fixed := time.Date(2024, 1, 1, 12, 0, 10, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "hit %d", i)
		require.EqualValues(t, 3-i, res.Remaining)
	}

	res, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.EqualValues(t, 0, res.Remaining)
	require.Equal(t, 50*time.Second, res.RetryAfter)

	// otra key no comparte contador
	res, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	// ventana siguiente
	l.now = func() time.Time { return fixed.Add(time.Minute) }
	res, err = l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, res.Allowed)
	require.EqualValues(t, 1, res.CurrentHits)
}
