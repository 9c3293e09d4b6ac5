// Package store abre el Repository de usuarios según el driver configurado.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/memory"
	"github.com/dropDatabas3/adminpanel/internal/store/pg"
	"github.com/dropDatabas3/adminpanel/internal/store/sqlite"
)

// Re-export de los errores del core para los callers que sólo importan store.
var (
	ErrNotFound = core.ErrNotFound
	ErrConflict = core.ErrConflict
)

type Config struct {
	Driver string // postgres | sqlite | memory
	DSN    string // postgres: URL; sqlite: path del archivo

	Postgres pg.PoolConfig

	// AutoMigrate aplica migraciones embebidas al abrir (postgres).
	// SQLite migra siempre al abrir.
	AutoMigrate bool
}

// Open devuelve el core.Repository del driver pedido.
func Open(ctx context.Context, cfg Config) (core.Repository, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "pg", "postgresql":
		s, err := pg.New(ctx, cfg.DSN, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if _, err := s.Migrate(ctx); err != nil {
				_ = s.Close()
				return nil, fmt.Errorf("postgres migrations: %w", err)
			}
		}
		return s, nil
	case "sqlite", "sqlite3":
		return sqlite.Open(ctx, cfg.DSN)
	case "memory", "mem", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}
}
