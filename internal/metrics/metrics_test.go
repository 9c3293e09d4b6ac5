package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"":                    "/",
		"/":                   "/",
		"/api/users":          "/api/users",
		"/api/users/export":   "/api/users/export",
		"/api/users/3f2c8b1e-4d5a-4b6c-9d7e-8f9a0b1c2d3e": "/api/users/:param",
		"/api/users/42?x=1":   "/api/users/:param",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePath(in), in)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))

	before := testutil.ToFloat64(ExportCacheTotal.WithLabelValues("hit"))
	ExportCacheTotal.WithLabelValues("hit").Inc()
	require.Equal(t, before+1, testutil.ToFloat64(ExportCacheTotal.WithLabelValues("hit")))
}

func TestHandler_UsesGivenGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	RateLimitRejects.Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "rate_limit_rejects_total")

	other := prometheus.NewRegistry()
	require.NoError(t, Register(other))
	rec = httptest.NewRecorder()
	Handler(other).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, rec.Body.String(), "rate_limit_rejects_total")
}
