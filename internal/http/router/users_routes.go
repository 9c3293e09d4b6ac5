package router

import (
	"net/http"

	mw "github.com/dropDatabas3/adminpanel/internal/http/middlewares"
)

// RegisterUserRoutes registra /api/users. export y public-key se registran antes
// que {id} sólo por claridad: el mux elige el patrón más específico.
func RegisterUserRoutes(mux *http.ServeMux, deps Deps) {
	if deps.Users == nil {
		return
	}
	c := deps.Users.Users

	api := func(h http.HandlerFunc) http.Handler {
		return mw.ChainFunc(h,
			mw.WithRateLimit(mw.RateLimitConfig{Limiter: deps.RateLimiter, KeyFunc: mw.RateKeyFor(deps.TrustProxyHeaders)}),
			mw.RequireAdminKey(deps.AdminAPIKey),
		)
	}

	mux.Handle("GET /api/users/export", api(c.Export))
	mux.Handle("GET /api/users/public-key", api(c.PublicKey))

	mux.Handle("POST /api/users", api(c.Create))
	mux.Handle("GET /api/users", api(c.List))
	mux.Handle("GET /api/users/{id}", api(c.Get))
	mux.Handle("PUT /api/users/{id}", api(c.Update))
	mux.Handle("DELETE /api/users/{id}", api(c.Delete))
}
