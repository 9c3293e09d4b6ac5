package middlewares

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	httperrors "github.com/dropDatabas3/adminpanel/internal/http/errors"
	"github.com/dropDatabas3/adminpanel/internal/metrics"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/rate"
)

// remoteIP es la IP del peer TCP.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

// clientIP prefiere el primer X-Forwarded-For. El cliente controla ese header:
// sirve para logs, no para decidir nada.
func clientIP(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		first, _, _ := strings.Cut(xf, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return remoteIP(r)
}

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// IPOnlyRateKey limita por la IP del peer e ignora X-Forwarded-For. Es el default.
func IPOnlyRateKey(r *http.Request) string {
	return remoteIP(r)
}

// ForwardedRateKey limita por el primer X-Forwarded-For. Usarlo sólo detrás de un
// proxy que reescriba el header (rate.trust_proxy_headers); si no, rotar el header
// evade el límite.
func ForwardedRateKey(r *http.Request) string {
	return clientIP(r)
}

// RateKeyFor elige la clave según si el deploy confía en los headers del proxy.
func RateKeyFor(trustProxyHeaders bool) RateKeyFunc {
	if trustProxyHeaders {
		return ForwardedRateKey
	}
	return IPOnlyRateKey
}

// RateLimitConfig configura WithRateLimit.
type RateLimitConfig struct {
	Limiter   rate.Limiter
	KeyFunc   RateKeyFunc
	Whitelist []string // paths exactos excluidos (ej: /health)
}

// WithRateLimit rechaza con 429 cuando el limiter lo indica.
// Un error del limiter deja pasar el request.
func WithRateLimit(cfg RateLimitConfig) Middleware {
	if cfg.Limiter == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPOnlyRateKey
	}

	whitelist := make(map[string]struct{}, len(cfg.Whitelist))
	for _, p := range cfg.Whitelist {
		whitelist[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := whitelist[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			res, err := cfg.Limiter.Allow(r.Context(), cfg.KeyFunc(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					logger.Layer("middleware"), logger.Op("WithRateLimit"), logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			if res.Limit > 0 {
				h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
			}
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if res.WindowTTL > 0 {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.WindowTTL).Unix(), 10))
			}

			if !res.Allowed {
				if res.RetryAfter > 0 {
					h.Set("Retry-After", strconv.Itoa(int(math.Ceil(res.RetryAfter.Seconds()))))
				}
				metrics.RateLimitRejects.Inc()
				httperrors.WriteError(w, httperrors.ErrRateLimitExceeded)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
