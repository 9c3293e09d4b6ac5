package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCheck_Healthy(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewHealthService(Deps{
		Environment: "test",
		StartedAt:   start,
		Now:         func() time.Time { return start.Add(90 * time.Second) },
		DBCheck:     func(context.Context) error { return nil },
		CacheCheck:  func(context.Context) error { return nil },
		CacheKind:   "memory",
		KeySource:   func() string { return "disk" },
	})

	resp := svc.Check(context.Background())
	require.Equal(t, StatusHealthy, resp.Status)
	require.Equal(t, "connected", resp.Database)
	require.Equal(t, "test", resp.Environment)
	require.InDelta(t, 90.0, resp.Uptime, 0.001)
	require.Equal(t, "ok", resp.Components["cache"].Status)
	require.Equal(t, "source: disk", resp.Components["keystore"].Message)
}

func TestCheck_DatabaseDown(t *testing.T) {
	svc := NewHealthService(Deps{
		DBCheck:   func(context.Context) error { return errors.New("connection refused") },
		KeySource: func() string { return "env" },
	})

	resp := svc.Check(context.Background())
	require.Equal(t, StatusUnhealthy, resp.Status)
	require.Equal(t, "disconnected", resp.Database)
	require.Equal(t, "development", resp.Environment)
	require.Equal(t, "disabled", resp.Components["cache"].Status)
}

func TestCheck_CacheDownStaysHealthy(t *testing.T) {
	svc := NewHealthService(Deps{
		DBCheck:    func(context.Context) error { return nil },
		CacheCheck: func(context.Context) error { return errors.New("redis: timeout") },
		CacheKind:  "redis",
		KeySource:  func() string { return "generated" },
	})

	resp := svc.Check(context.Background())
	require.Equal(t, StatusHealthy, resp.Status)
	require.Equal(t, "error", resp.Components["cache"].Status)
}

func TestCheck_NoKeyIsUnhealthy(t *testing.T) {
	svc := NewHealthService(Deps{DBCheck: func(context.Context) error { return nil }})
	require.Equal(t, StatusUnhealthy, svc.Check(context.Background()).Status)
}

func TestInfo(t *testing.T) {
	info := NewHealthService(Deps{}).Info()
	require.Equal(t, "Admin Panel API", info.Name)
	require.Equal(t, "/api/users", info.Endpoints["users"])
}
