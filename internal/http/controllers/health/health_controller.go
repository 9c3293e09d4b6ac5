package health

import (
	"net/http"

	"github.com/dropDatabas3/adminpanel/internal/http/helpers"
	svc "github.com/dropDatabas3/adminpanel/internal/http/services/health"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

// HealthController maneja / y /health.
type HealthController struct {
	service svc.HealthService
}

// NewHealthController crea el controller de health check.
func NewHealthController(service svc.HealthService) *HealthController {
	return &HealthController{service: service}
}

// Info maneja GET /
func (c *HealthController) Info(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.service.Info())
}

// Health maneja GET /health. 503 si la base o la clave no están disponibles.
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := c.service.Check(ctx)

	status := http.StatusOK
	if resp.Status != svc.StatusHealthy {
		status = http.StatusServiceUnavailable
	}

	logger.From(ctx).Debug("health check completed",
		logger.Layer("controller"),
		logger.Op("HealthController.Health"),
		logger.String("status", resp.Status),
		logger.Int("components_count", len(resp.Components)),
	)

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, status, resp)
}
