package router

import "net/http"

// RegisterHealthRoutes registra / y /health. Son públicas y no pasan por rate limit.
func RegisterHealthRoutes(mux *http.ServeMux, deps Deps) {
	if deps.Health == nil {
		return
	}
	c := deps.Health.Health

	mux.HandleFunc("GET /{$}", c.Info)
	mux.HandleFunc("GET /health", c.Health)
}
