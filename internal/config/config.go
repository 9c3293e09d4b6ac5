// Package config carga la configuración del servicio: YAML opcional, defaults y
// overrides por variables de entorno, en ese orden.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		// development | test | production
		Env     string `yaml:"app_env"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		// AdminAPIKey protege /api/users con X-Admin-API-Key. Vacío = sin auth.
		AdminAPIKey     string `yaml:"admin_api_key"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	Storage struct {
		Driver      string `yaml:"driver"` // postgres | sqlite | memory
		DSN         string `yaml:"dsn"`
		AutoMigrate bool   `yaml:"auto_migrate"`
		Postgres    struct {
			MaxOpenConns    int    `yaml:"max_open_conns"`
			MaxIdleConns    int    `yaml:"max_idle_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind      string `yaml:"kind"` // memory | redis | none
		ExportTTL string `yaml:"export_ttl"`
		Redis     struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Rate struct {
		Disabled    bool   `yaml:"disabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
		// TrustProxyHeaders: la clave del limiter sale de X-Forwarded-For en vez de
		// la IP del peer. Activarlo sólo detrás de un proxy que pise ese header.
		TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
	} `yaml:"rate"`

	Keys struct {
		Dir string `yaml:"dir"`
		// PrivateKey/PublicKey normalmente vienen por env (PRIVATE_KEY / PUBLIC_KEY).
		PrivateKey string `yaml:"private_key"`
		PublicKey  string `yaml:"public_key"`
		Bits       int    `yaml:"bits"`
	} `yaml:"keys"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Load lee path (si existe), aplica defaults y overrides de env y valida.
// Un path vacío o inexistente no es error: quedan defaults + env.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	// el DSN de sqlite depende del driver final
	if c.Storage.Driver == "sqlite" && c.Storage.DSN == "" {
		c.Storage.DSN = "data/dev.db"
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// sane defaults (los del backend original donde aplica)
func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":3001"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"http://localhost:3000"}
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "10s"
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "30s"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.ExportTTL == "" {
		c.Cache.ExportTTL = "30s"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "2m"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "adminpanel:"
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "15m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 100
	}
	if c.Keys.Dir == "" {
		c.Keys.Dir = "keys"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}
func getEnvCSV(key string) ([]string, bool) {
	if s, ok := getEnvStr(key); ok {
		parts := strings.Split(s, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				out = append(out, p)
			}
		}
		return out, true
	}
	return nil, false
}

// applyEnvOverrides pisa el YAML con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP (NODE_ENV se acepta por compatibilidad con los .env existentes)
	if v, ok := getEnvStr("NODE_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SERVICE_VERSION"); ok {
		c.App.Version = v
	}

	// SERVER
	if v, ok := getEnvStr("PORT"); ok {
		c.Server.Addr = ":" + strings.TrimPrefix(strings.TrimSpace(v), ":")
	}
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("CORS_ORIGIN"); ok {
		c.Server.CORSAllowedOrigins = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = strings.ToLower(v)
	}
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	if v, ok := getEnvBool("STORAGE_AUTO_MIGRATE"); ok {
		c.Storage.AutoMigrate = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("CACHE_EXPORT_TTL"); ok {
		c.Cache.ExportTTL = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Disabled = !v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}
	if v, ok := getEnvBool("RATE_TRUST_PROXY_HEADERS"); ok {
		c.Rate.TrustProxyHeaders = v
	}

	// KEYS
	if v, ok := getEnvStr("KEYS_DIR"); ok {
		c.Keys.Dir = v
	}
	if v, ok := getEnvStr("PRIVATE_KEY"); ok {
		c.Keys.PrivateKey = v
	}
	if v, ok := getEnvStr("PUBLIC_KEY"); ok {
		c.Keys.PublicKey = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
}

// Validate revisa los valores críticos. Junta todos los problemas en un solo error.
func (c *Config) Validate() error {
	var errs []error

	switch c.Storage.Driver {
	case "postgres", "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unsupported %q", c.Storage.Driver))
	}
	if c.Storage.Driver == "postgres" && strings.TrimSpace(c.Storage.DSN) == "" {
		errs = append(errs, errors.New("storage.dsn: required for postgres (DATABASE_URL)"))
	}

	switch c.Cache.Kind {
	case "memory", "none":
	case "redis":
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr: required when cache.kind=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.kind: unsupported %q", c.Cache.Kind))
	}

	for name, v := range map[string]string{
		"server.read_timeout":      c.Server.ReadTimeout,
		"server.write_timeout":     c.Server.WriteTimeout,
		"server.shutdown_timeout":  c.Server.ShutdownTimeout,
		"cache.export_ttl":         c.Cache.ExportTTL,
		"cache.memory.default_ttl": c.Cache.Memory.DefaultTTL,
		"rate.window":              c.Rate.Window,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", name, v))
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			errs = append(errs, fmt.Errorf("storage.postgres.conn_max_lifetime: invalid duration %q", c.Storage.Postgres.ConnMaxLifetime))
		}
	}
	if c.Rate.MaxRequests < 0 {
		errs = append(errs, errors.New("rate.max_requests: must be >= 0"))
	}
	if c.Keys.Bits != 0 && c.Keys.Bits < 2048 {
		errs = append(errs, fmt.Errorf("keys.bits: %d is below 2048", c.Keys.Bits))
	}

	return errors.Join(errs...)
}

// IsProduction reporta si el entorno es productivo.
func (c *Config) IsProduction() bool {
	switch c.App.Env {
	case "prod", "production":
		return true
	}
	return false
}

// Duration parsea un valor ya validado. Valores inválidos devuelven 0.
func Duration(v string) time.Duration {
	d, _ := time.ParseDuration(strings.TrimSpace(v))
	return d
}

// HalfConfiguredKeys indica que sólo una de PRIVATE_KEY/PUBLIC_KEY está seteada:
// el provider la ignora y cae a disco.
func (c *Config) HalfConfiguredKeys() bool {
	return (c.Keys.PrivateKey == "") != (c.Keys.PublicKey == "")
}
