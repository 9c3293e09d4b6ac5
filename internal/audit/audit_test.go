package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

func TestLog_UsesContextLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).With(logger.RequestID("rid-1")))

	Log(ctx, UserCreated, logger.UserID("u-1"), logger.Email("jane@example.com"))

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	require.Equal(t, "audit", e.LoggerName)
	fields := e.ContextMap()
	require.Equal(t, "user.created", fields["event"])
	require.Equal(t, "rid-1", fields["request_id"])
	require.Equal(t, "u-1", fields["user_id"])
	require.Equal(t, "j…@e….com", fields["email"])
}
