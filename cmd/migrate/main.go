package main

import (
	"context"
	"flag"
	"log"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/adminpanel/internal/config"
	"github.com/dropDatabas3/adminpanel/internal/store/migrate"
	"github.com/dropDatabas3/adminpanel/internal/store/pg"
	"github.com/dropDatabas3/adminpanel/internal/store/sqlite"
	"github.com/dropDatabas3/adminpanel/migrations"
)

func main() {
	var (
		configPath = flag.String("config", "", "ruta a config.yaml (opcional)")
		envFile    = flag.String("env-file", ".env", "ruta a .env")
	)
	flag.Parse()

	// Positional args: [action] [steps]
	action := "up"
	steps := 0
	args := flag.Args()
	if len(args) >= 1 && args[0] != "" {
		action = strings.ToLower(args[0])
	}
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			steps = n
		}
	}
	if action != "up" && action != "down" {
		log.Fatalf("unknown action %q. Use: up | down [steps]", action)
	}

	if *envFile != "" {
		_ = godotenv.Load(*envFile)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	ctx := context.Background()
	var (
		exec migrate.Executor
		dir  string
	)
	switch cfg.Storage.Driver {
	case "postgres":
		s, err := pg.New(ctx, cfg.Storage.DSN, pg.PoolConfig{})
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer s.Close()
		exec, dir = pg.Executor(s.Pool()), migrations.PostgresDir
	case "sqlite":
		// Open ya aplica los up pendientes.
		s, err := sqlite.Open(ctx, cfg.Storage.DSN)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer s.Close()
		exec, dir = sqlite.Executor(s.DB()), migrations.SQLiteDir
	default:
		log.Fatalf("driver %q has no migrations", cfg.Storage.Driver)
	}

	migs, err := migrate.Load(migrations.FS, dir)
	if err != nil {
		log.Fatalf("load migrations: %v", err)
	}

	var res migrate.Result
	if action == "up" {
		res, err = migrate.Up(ctx, exec, migs, steps)
	} else {
		res, err = migrate.Down(ctx, exec, migs, steps)
	}
	if err != nil {
		log.Fatalf("%s: %v", action, err)
	}
	log.Printf("%s completed: applied=%v skipped=%d in %s", action, res.Applied, len(res.Skipped), res.Duration)
}
