package health

import (
	"context"
	"fmt"
	"time"

	dto "github.com/dropDatabas3/adminpanel/internal/http/dto/health"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

const (
	APIName        = "Admin Panel API"
	APIVersion     = "1.0.0"
	APIDescription = "REST API with Protobuf serialization and RSA cryptographic signatures"

	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// HealthService define las operaciones de health check.
type HealthService interface {
	Check(ctx context.Context) dto.HealthResponse
	Info() dto.InfoResponse
}

// Deps contiene las dependencias inyectables del health service.
type Deps struct {
	Environment string
	Version     string
	StartedAt   time.Time

	DBCheck    func(ctx context.Context) error // crítico
	CacheCheck func(ctx context.Context) error // opcional
	CacheKind  string

	// KeySource devuelve de dónde salió el par activo ("" = sin signer).
	KeySource func() string

	// CheckTimeout acota cada check. Default 2s.
	CheckTimeout time.Duration

	Now func() time.Time
}

type healthService struct {
	deps Deps
}

// NewHealthService crea el service de health check.
func NewHealthService(deps Deps) HealthService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.StartedAt.IsZero() {
		deps.StartedAt = deps.Now()
	}
	if deps.CheckTimeout <= 0 {
		deps.CheckTimeout = 2 * time.Second
	}
	if deps.Environment == "" {
		deps.Environment = "development"
	}
	return &healthService{deps: deps}
}

const componentHealth = "health"

func (s *healthService) Info() dto.InfoResponse {
	return dto.InfoResponse{
		Name:        APIName,
		Version:     APIVersion,
		Description: APIDescription,
		Endpoints: map[string]string{
			"health":     "/health",
			"metrics":    "/metrics",
			"users":      "/api/users",
			"export":     "/api/users/export",
			"public-key": "/api/users/public-key",
		},
	}
}

func (s *healthService) Check(ctx context.Context) dto.HealthResponse {
	log := logger.FromWithFields(ctx,
		logger.Layer("service"),
		logger.Component(componentHealth),
		logger.Op("Check"),
	)

	now := s.deps.Now()
	resp := dto.HealthResponse{
		Status:      StatusHealthy,
		Timestamp:   now.UTC(),
		Uptime:      now.Sub(s.deps.StartedAt).Seconds(),
		Environment: s.deps.Environment,
		Database:    "connected",
		Version:     s.deps.Version,
		Components:  make(map[string]dto.ComponentStatus),
	}

	// 1) DB (crítico)
	if err := s.run(ctx, s.deps.DBCheck); err != nil {
		resp.Status = StatusUnhealthy
		resp.Database = "disconnected"
		resp.Components["database"] = dto.ComponentStatus{Status: "error", Message: fmt.Sprintf("unavailable: %v", err)}
		log.Error("database unavailable", logger.Err(err))
	} else {
		resp.Components["database"] = dto.ComponentStatus{Status: "ok"}
	}

	// 2) Keystore (crítico: sin clave no se puede escribir)
	src := ""
	if s.deps.KeySource != nil {
		src = s.deps.KeySource()
	}
	if src == "" {
		resp.Status = StatusUnhealthy
		resp.Components["keystore"] = dto.ComponentStatus{Status: "error", Message: "signing key not loaded"}
	} else {
		resp.Components["keystore"] = dto.ComponentStatus{Status: "ok", Message: "source: " + src}
	}

	// 3) Cache (no crítico)
	switch {
	case s.deps.CacheCheck == nil:
		resp.Components["cache"] = dto.ComponentStatus{Status: "disabled"}
	default:
		if err := s.run(ctx, s.deps.CacheCheck); err != nil {
			resp.Components["cache"] = dto.ComponentStatus{Status: "error", Message: fmt.Sprintf("%s unavailable: %v", s.deps.CacheKind, err)}
			log.Warn("cache unavailable", logger.Err(err))
		} else {
			resp.Components["cache"] = dto.ComponentStatus{Status: "ok", Message: s.deps.CacheKind}
		}
	}

	return resp
}

func (s *healthService) run(ctx context.Context, check func(context.Context) error) error {
	if check == nil {
		return fmt.Errorf("not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, s.deps.CheckTimeout)
	defer cancel()
	return check(ctx)
}
