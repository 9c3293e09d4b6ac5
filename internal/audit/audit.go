// Package audit emite eventos de auditoría: mutaciones de usuarios y exports generados.
// Hoy el sink es el logger (canal "audit"); los campos son estables para poder
// filtrarlos aguas abajo.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

type Event string

const (
	UserCreated  Event = "user.created"
	UserUpdated  Event = "user.updated"
	UserResigned Event = "user.resigned"
	UserDeleted  Event = "user.deleted"
	ExportBuilt  Event = "export.built"
)

// Log escribe el evento con timestamp UTC. El request_id viene en el logger del
// contexto cuando la llamada nace en un request HTTP.
func Log(ctx context.Context, ev Event, fields ...zap.Field) {
	base := make([]zap.Field, 0, len(fields)+2)
	base = append(base, zap.String("event", string(ev)), zap.Time("ts", time.Now().UTC()))
	logger.From(ctx).Named("audit").Info("audit", append(base, fields...)...)
}
