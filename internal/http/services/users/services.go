// Package users contiene la lógica de /api/users: validación, firma y export.
package users

import (
	"time"

	"github.com/dropDatabas3/adminpanel/internal/cache"
	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
)

// Deps contiene las dependencias del service de usuarios.
type Deps struct {
	Repo   core.Repository
	Signer *integrity.Signer

	// Cache del blob de export. nil = sin cache.
	Cache     cache.Client
	ExportTTL time.Duration
}

// Services agrupa los services del dominio users.
type Services struct {
	Users UserService
}

// NewServices crea el agregador de services users.
func NewServices(d Deps) Services {
	return Services{Users: NewUserService(d)}
}
