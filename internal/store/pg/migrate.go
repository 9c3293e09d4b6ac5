package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/adminpanel/internal/store/migrate"
)

type pgxExecutor struct{ pool *pgxpool.Pool }

// Executor adapta un pgxpool a migrate.Executor.
func Executor(pool *pgxpool.Pool) migrate.Executor { return pgxExecutor{pool: pool} }

func (e pgxExecutor) EnsureTable(ctx context.Context) error {
	_, err := e.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrate.Table+` (
		version    INT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (e pgxExecutor) Applied(ctx context.Context) (map[int]bool, error) {
	rows, err := e.pool.Query(ctx, `SELECT version FROM `+migrate.Table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (e pgxExecutor) Apply(ctx context.Context, m migrate.Migration, up bool) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if up {
		if _, err := tx.Exec(ctx, m.Up); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO `+migrate.Table+` (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
			return err
		}
	} else {
		if _, err := tx.Exec(ctx, m.Down); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM `+migrate.Table+` WHERE version = $1`, m.Version); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
