package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFrom_FallsBackToGlobal(t *testing.T) {
	require.NotNil(t, From(context.Background()))
	require.Same(t, L(), From(context.Background()))
	require.Same(t, L(), From(nil))
}

func TestFromWithFields_ScopesRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).With(RequestID("rid-9")))

	FromWithFields(ctx, Layer("service"), Op("Create")).
		Info("user created", UserID("u-1"), Email("jane.doe@example.com"), Valid(true))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	require.Equal(t, "rid-9", fields["request_id"])
	require.Equal(t, "service", fields["layer"])
	require.Equal(t, "Create", fields["op"])
	require.Equal(t, "u-1", fields["user_id"])
	require.Equal(t, "j…@e….com", fields["email"])
	require.Equal(t, true, fields["valid"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":         zapcore.InfoLevel,
		"debug":    zapcore.DebugLevel,
		" WARN ":   zapcore.WarnLevel,
		"warning":  zapcore.WarnLevel,
		"error":    zapcore.ErrorLevel,
		"nonsense": zapcore.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, parseLevel(in), in)
	}
}

func TestBuild_Environments(t *testing.T) {
	dev := build(Config{Env: "dev", Level: "debug"})
	require.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod := build(Config{Env: "PROD", Level: "warn", Version: "1.2.3"})
	require.False(t, prod.Core().Enabled(zapcore.InfoLevel))
	require.True(t, prod.Core().Enabled(zapcore.WarnLevel))
}
