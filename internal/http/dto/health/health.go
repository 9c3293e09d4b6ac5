// Package health contiene DTOs de / y /health.
package health

import "time"

// ComponentStatus es el estado de una dependencia.
type ComponentStatus struct {
	Status  string `json:"status"`            // "ok" | "error" | "disabled"
	Message string `json:"message,omitempty"`
}

// HealthResponse es el cuerpo de GET /health.
type HealthResponse struct {
	Status      string                     `json:"status"` // "healthy" | "unhealthy"
	Timestamp   time.Time                  `json:"timestamp"`
	Uptime      float64                    `json:"uptime"` // segundos
	Environment string                     `json:"environment"`
	Database    string                     `json:"database"` // "connected" | "disconnected"
	Version     string                     `json:"version,omitempty"`
	Components  map[string]ComponentStatus `json:"components"`
}

// InfoResponse es el cuerpo de GET /.
type InfoResponse struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Endpoints   map[string]string `json:"endpoints"`
}
