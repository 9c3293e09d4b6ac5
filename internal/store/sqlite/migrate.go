package sqlite

import (
	"context"
	"database/sql"

	"github.com/dropDatabas3/adminpanel/internal/store/migrate"
)

type sqlExecutor struct{ db *sql.DB }

// Executor adapta *sql.DB (SQLite) a migrate.Executor.
func Executor(db *sql.DB) migrate.Executor { return sqlExecutor{db: db} }

func (e sqlExecutor) EnsureTable(ctx context.Context) error {
	_, err := e.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrate.Table+` (
		version    INTEGER PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER))
	)`)
	return err
}

func (e sqlExecutor) Applied(ctx context.Context) (map[int]bool, error) {
	rows, err := e.db.QueryContext(ctx, `SELECT version FROM `+migrate.Table)
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

func (e sqlExecutor) Apply(ctx context.Context, m migrate.Migration, up bool) error {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	script, record := m.Up, `INSERT INTO `+migrate.Table+` (version, name) VALUES (?, ?)`
	args := []any{m.Version, m.Name}
	if !up {
		script, record = m.Down, `DELETE FROM `+migrate.Table+` WHERE version = ?`
		args = args[:1]
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, record, args...); err != nil {
		return err
	}
	return tx.Commit()
}
