package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/adminpanel/internal/config"
	"github.com/dropDatabas3/adminpanel/internal/http/server"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
)

func main() {
	var (
		flagConfig  = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "ruta a config.yaml (opcional)")
		flagEnvFile = flag.String("env-file", ".env", "ruta a .env (opcional)")
	)
	flag.Parse()

	if *flagEnvFile != "" {
		if err := godotenv.Load(*flagEnvFile); err != nil && !os.IsNotExist(err) {
			log.Printf("⚠️  .env: %v", err)
		}
	}

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logEnv := "dev"
	if cfg.IsProduction() {
		logEnv = "prod"
	}
	logger.Init(logger.Config{
		Env:     logEnv,
		Level:   cfg.Log.Level,
		Version: cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.Build(ctx, cfg, server.Options{StartedAt: time.Now()})
	if err != nil {
		lg.Fatal("startup failed", logger.Err(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			lg.Warn("cleanup error", logger.Err(err))
		}
	}()

	lg.Info("starting server",
		logger.String("addr", cfg.Server.Addr),
		logger.String("env", cfg.App.Env),
	)

	err = server.Run(ctx, server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout:    config.Duration(cfg.Server.WriteTimeout),
		ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout),
	}, app.Handler)
	if err != nil {
		lg.Error("server stopped with error", logger.Err(err))
		return
	}
	lg.Info("server stopped")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
