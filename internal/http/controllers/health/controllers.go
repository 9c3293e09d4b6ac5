// Package health contiene los controllers de / y /health.
package health

import svc "github.com/dropDatabas3/adminpanel/internal/http/services/health"

// Controllers agrupa los controllers del dominio health.
type Controllers struct {
	Health *HealthController
}

// NewControllers crea el agregador de controllers health.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{Health: NewHealthController(s.Health)}
}
