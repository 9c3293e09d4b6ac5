// Package router arma el http.Handler del servicio.
package router

import (
	"net/http"

	healthctrl "github.com/dropDatabas3/adminpanel/internal/http/controllers/health"
	usersctrl "github.com/dropDatabas3/adminpanel/internal/http/controllers/users"
	httperrors "github.com/dropDatabas3/adminpanel/internal/http/errors"
	mw "github.com/dropDatabas3/adminpanel/internal/http/middlewares"
	"github.com/dropDatabas3/adminpanel/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Health *healthctrl.Controllers
	Users  *usersctrl.Controllers

	// Metrics se monta en /metrics si no es nil.
	Metrics http.Handler

	// Infra
	CORSOrigins []string
	RateLimiter rate.Limiter // opcional
	AdminAPIKey string       // vacío = /api/users sin auth

	// TrustProxyHeaders hace que el rate limit use X-Forwarded-For.
	TrustProxyHeaders bool
}

// New registra todas las rutas y devuelve el handler raíz con los middlewares globales.
func New(deps Deps) http.Handler {
	mux := http.NewServeMux()

	RegisterHealthRoutes(mux, deps)
	RegisterUserRoutes(mux, deps)
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	// todo lo que no matchea: 404 JSON
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound.WithDetail(r.Method+" "+r.URL.Path))
	})

	return mw.Chain(mux,
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithMetrics(),
		mw.WithCORS(deps.CORSOrigins),
	)
}
