// Package migrate aplica los scripts embebidos de migrations/ contra cualquier driver.
//
// Formato de archivo: {version}_{name}_up.sql / {version}_{name}_down.sql
// (ej: 0001_app_user_up.sql). El tracking vive en la tabla _migrations y cada
// driver implementa Executor con su propio SQL y placeholders.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"
)

// Table es la tabla de tracking.
const Table = "_migrations"

// Migration es un par up/down de la misma versión. Down puede estar vacío.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Executor abstrae pgx vs database/sql.
type Executor interface {
	// EnsureTable crea _migrations si no existe.
	EnsureTable(ctx context.Context) error
	// Applied retorna las versiones ya registradas.
	Applied(ctx context.Context) (map[int]bool, error)
	// Apply ejecuta el SQL y registra (up) o borra (down) la versión, en una transacción.
	Apply(ctx context.Context, m Migration, up bool) error
}

// Result resumen de una corrida.
type Result struct {
	Applied  []int
	Skipped  []int
	Duration time.Duration
}

var filePattern = regexp.MustCompile(`^(\d+)_(.+)_(up|down)\.sql$`)

// Load lee dir dentro de fsys y arma las migraciones ordenadas por versión.
// Archivos que no matchean el patrón se ignoran.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir %s: %w", dir, err)
	}

	byVersion := map[int]*Migration{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		version, err := strconv.Atoi(m[1])
		if err != nil {
			return nil, fmt.Errorf("bad version in %s: %w", e.Name(), err)
		}
		b, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}

		mig := byVersion[version]
		if mig == nil {
			mig = &Migration{Version: version, Name: m[2]}
			byVersion[version] = mig
		} else if mig.Name != m[2] {
			return nil, fmt.Errorf("version %d has two names: %q and %q", version, mig.Name, m[2])
		}
		if m[3] == "up" {
			mig.Up = string(b)
		} else {
			mig.Down = string(b)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %d_%s has no up script", m.Version, m.Name)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// Up aplica las pendientes en orden ascendente. steps > 0 limita cuántas.
func Up(ctx context.Context, exec Executor, migs []Migration, steps int) (Result, error) {
	start := time.Now()
	var res Result

	if err := exec.EnsureTable(ctx); err != nil {
		return res, fmt.Errorf("ensure %s: %w", Table, err)
	}
	applied, err := exec.Applied(ctx)
	if err != nil {
		return res, fmt.Errorf("read applied versions: %w", err)
	}

	for _, m := range migs {
		if applied[m.Version] {
			res.Skipped = append(res.Skipped, m.Version)
			continue
		}
		if steps > 0 && len(res.Applied) >= steps {
			break
		}
		if err := exec.Apply(ctx, m, true); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("apply %d_%s: %w", m.Version, m.Name, err)
		}
		res.Applied = append(res.Applied, m.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}

// Down revierte las aplicadas en orden descendente. steps > 0 limita cuántas.
func Down(ctx context.Context, exec Executor, migs []Migration, steps int) (Result, error) {
	start := time.Now()
	var res Result

	if err := exec.EnsureTable(ctx); err != nil {
		return res, fmt.Errorf("ensure %s: %w", Table, err)
	}
	applied, err := exec.Applied(ctx)
	if err != nil {
		return res, fmt.Errorf("read applied versions: %w", err)
	}

	for i := len(migs) - 1; i >= 0; i-- {
		m := migs[i]
		if !applied[m.Version] {
			continue
		}
		if steps > 0 && len(res.Applied) >= steps {
			break
		}
		if m.Down == "" {
			return res, fmt.Errorf("migration %d_%s has no down script", m.Version, m.Name)
		}
		if err := exec.Apply(ctx, m, false); err != nil {
			res.Duration = time.Since(start)
			return res, fmt.Errorf("revert %d_%s: %w", m.Version, m.Name, err)
		}
		res.Applied = append(res.Applied, m.Version)
	}
	res.Duration = time.Since(start)
	return res, nil
}
