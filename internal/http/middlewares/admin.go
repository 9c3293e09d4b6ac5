package middlewares

import (
	"crypto/subtle"
	"net/http"
	"strings"

	httperrors "github.com/dropDatabas3/adminpanel/internal/http/errors"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

// AdminKeyHeader es el header que lleva la API key de administración.
const AdminKeyHeader = "X-Admin-API-Key"

// RequireAdminKey exige X-Admin-API-Key == key. Con key vacía no protege nada
// (el backend original no tenía auth).
func RequireAdminKey(key string) Middleware {
	key = strings.TrimSpace(key)
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	want := []byte(key)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(strings.TrimSpace(r.Header.Get(AdminKeyHeader)))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				logger.From(r.Context()).Warn("admin api key rejected",
					logger.Layer("middleware"),
					logger.Op("RequireAdminKey"),
					logger.ClientIP(clientIP(r)),
					logger.Bool("present", len(got) > 0),
				)
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
