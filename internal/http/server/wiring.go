// Package server arma las dependencias del servicio y el http.Server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dropDatabas3/adminpanel/internal/cache"
	"github.com/dropDatabas3/adminpanel/internal/config"
	healthctrl "github.com/dropDatabas3/adminpanel/internal/http/controllers/health"
	usersctrl "github.com/dropDatabas3/adminpanel/internal/http/controllers/users"
	"github.com/dropDatabas3/adminpanel/internal/http/router"
	healthsvc "github.com/dropDatabas3/adminpanel/internal/http/services/health"
	userssvc "github.com/dropDatabas3/adminpanel/internal/http/services/users"
	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/metrics"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/rate"
	"github.com/dropDatabas3/adminpanel/internal/store"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/pg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// App contiene el handler y todo lo que hay que cerrar al apagar.
type App struct {
	Handler http.Handler
	Repo    core.Repository
	Keys    *integrity.Provider
	Signer  *integrity.Signer

	closers []func() error
}

// Close libera recursos en orden inverso al de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Options permite inyectar piezas ya construidas (tests, cmd/keys).
type Options struct {
	// Repo reemplaza store.Open.
	Repo core.Repository
	// Registerer para métricas. Default: prometheus.DefaultRegisterer.
	// Si además es Gatherer (un *prometheus.Registry), /metrics lo expone.
	Registerer prometheus.Registerer
	StartedAt  time.Time
}

// Build resuelve claves, store, cache y rate limiter y arma el router.
// Un error acá es fatal de arranque; lo que ya se abrió queda cerrado.
func Build(ctx context.Context, cfg *config.Config, opts Options) (_ *App, err error) {
	log := logger.L().With(logger.Layer("server"), logger.Op("Build"))
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// 1) Claves: env > disco > generar
	if cfg.HalfConfiguredKeys() {
		log.Warn("only one of PRIVATE_KEY/PUBLIC_KEY is set, ignoring env keys")
	}
	app.Keys = integrity.NewProvider(integrity.ProviderConfig{
		Dir:        cfg.Keys.Dir,
		PrivateKey: cfg.Keys.PrivateKey,
		PublicKey:  cfg.Keys.PublicKey,
		Bits:       cfg.Keys.Bits,
	})
	pair, err := app.Keys.ObtainKeyPair()
	if err != nil {
		return nil, fmt.Errorf("key provider: %w", err)
	}
	app.Signer, err = integrity.NewSigner(pair)
	if err != nil {
		return nil, fmt.Errorf("signer: %w", err)
	}

	// 2) Store
	app.Repo = opts.Repo
	if app.Repo == nil {
		app.Repo, err = store.Open(ctx, store.Config{
			Driver: cfg.Storage.Driver,
			DSN:    cfg.Storage.DSN,
			Postgres: pg.PoolConfig{
				MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
				MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
				ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
			},
			AutoMigrate: cfg.Storage.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
	}
	app.closers = append(app.closers, app.Repo.Close)

	// 3) Cache + Redis compartido con el rate limiter
	var rdb *redis.Client
	if cfg.Cache.Kind == "redis" {
		rdb, err = cache.DialRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
	}

	var exportCache cache.Client
	switch {
	case rdb != nil:
		exportCache = cache.NewRedis(rdb, cfg.Cache.Redis.Prefix)
	case cfg.Cache.Kind == "memory":
		exportCache = cache.NewMemory("", config.Duration(cfg.Cache.Memory.DefaultTTL))
	}

	// 4) Rate limiter
	var limiter rate.Limiter
	if !cfg.Rate.Disabled && cfg.Rate.MaxRequests > 0 {
		window := config.Duration(cfg.Rate.Window)
		if rdb != nil {
			limiter = rate.NewRedisLimiter(rdb, cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.MaxRequests, window)
		} else {
			limiter = rate.NewMemoryLimiter("rl:", cfg.Rate.MaxRequests, window)
		}
	}

	// 5) Métricas
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if err := metrics.Register(reg); err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	var gatherer prometheus.Gatherer
	if g, ok := reg.(prometheus.Gatherer); ok && reg != prometheus.DefaultRegisterer {
		gatherer = g
	}
	if s, ok := app.Repo.(*pg.Store); ok {
		if err := metrics.RegisterCollector(reg, metrics.NewPoolCollector(s.Pool)); err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
	}

	// 6) Services → controllers → router
	users := userssvc.NewServices(userssvc.Deps{
		Repo:      app.Repo,
		Signer:    app.Signer,
		Cache:     exportCache,
		ExportTTL: config.Duration(cfg.Cache.ExportTTL),
	})

	healthDeps := healthsvc.Deps{
		Environment: cfg.App.Env,
		Version:     cfg.App.Version,
		StartedAt:   opts.StartedAt,
		DBCheck:     app.Repo.Ping,
		CacheKind:   cfg.Cache.Kind,
		KeySource:   func() string { return string(app.Keys.Source()) },
	}
	if exportCache != nil {
		healthDeps.CacheCheck = exportCache.Ping
	}
	health := healthsvc.NewServices(healthDeps)

	app.Handler = router.New(router.Deps{
		Health:            healthctrl.NewControllers(health),
		Users:             usersctrl.NewControllers(users),
		Metrics:           metrics.Handler(gatherer),
		CORSOrigins:       cfg.Server.CORSAllowedOrigins,
		RateLimiter:       limiter,
		TrustProxyHeaders: cfg.Rate.TrustProxyHeaders,
		AdminAPIKey:       cfg.Server.AdminAPIKey,
	})

	log.Info("service wired",
		logger.KeySource(string(app.Keys.Source())),
		logger.String("storage", cfg.Storage.Driver),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", limiter != nil),
		logger.Bool("admin_key", cfg.Server.AdminAPIKey != ""),
	)
	return app, nil
}
