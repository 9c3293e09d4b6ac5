// Package pg implementa core.Repository sobre PostgreSQL con pgxpool.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/migrate"
	"github.com/dropDatabas3/adminpanel/migrations"
)

// PoolConfig ajustes opcionales del pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Pool expone el pool interno (health, migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// PoolStats devuelve un snapshot del pool (nil si no está inicializado).
func (s *Store) PoolStats() *pgxpool.Stat {
	if s == nil || s.pool == nil {
		return nil
	}
	return s.pool.Stat()
}

// Close cierra el pool (idempotente).
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// New abre el pool. El ping inicial no es bloqueante: si la DB todavía no está arriba
// se loguea y el servicio arranca igual (health reporta "disconnected").
func New(ctx context.Context, dsn string, pc PoolConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgxpool config: %w", err)
	}
	if pc.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(pc.MaxOpenConns)
	}
	// MaxIdleConns → MinConns (pgxpool no tiene idle)
	if pc.MaxIdleConns > 0 {
		pcfg.MinConns = int32(pc.MaxIdleConns)
	}
	if pc.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(pc.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("new pgxpool: %w", err)
	}

	log := logger.L().With(logger.Component("store.pg"))
	if err := pool.Ping(ctx); err != nil {
		log.Warn("pg pool startup ping failed", logger.Err(err))
	} else {
		log.Info("pg pool ready", logger.Int("max_conns", int(pcfg.MaxConns)))
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// Migrate aplica los *_up.sql pendientes de migrations/postgres.
func (s *Store) Migrate(ctx context.Context) (migrate.Result, error) {
	migs, err := migrate.Load(migrations.FS, migrations.PostgresDir)
	if err != nil {
		return migrate.Result{}, err
	}
	return migrate.Up(ctx, Executor(s.pool), migs, 0)
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

const userCols = `id::text, email, role, status, email_hash, signature, created_at, updated_at`

func (s *Store) Create(ctx context.Context, u *core.User) error {
	u.ApplyDefaults(s.now())
	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_user (id, email, role, status, email_hash, signature, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Email, string(u.Role), string(u.Status), u.EmailHash, u.Signature, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUnique(err) {
			return core.ErrConflict
		}
		logger.L().Error("pg create user failed", logger.Component("store.pg"), logger.Email(u.Email), logger.Err(err))
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	return getOne(ctx, s.pool, `SELECT `+userCols+` FROM app_user WHERE id = $1`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	return getOne(ctx, s.pool, `SELECT `+userCols+` FROM app_user WHERE email = $1`, email)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getOne(ctx context.Context, q rowQuerier, query string, args ...any) (*core.User, error) {
	u, err := scanUser(q.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

var sortColumns = map[string]string{
	core.SortEmail:     "email",
	core.SortRole:      "role",
	core.SortStatus:    "status",
	core.SortCreatedAt: "created_at",
	core.SortUpdatedAt: "updated_at",
}

func (s *Store) List(ctx context.Context, q core.ListQuery) (core.UserPage, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.FilterRole != "" {
		where = append(where, "role = "+arg(string(q.FilterRole)))
	}
	if q.FilterStatus != "" {
		where = append(where, "status = "+arg(string(q.FilterStatus)))
	}
	if q.Search != "" {
		where = append(where, `email ILIKE `+arg("%"+escapeLike(q.Search)+"%")+` ESCAPE '\'`)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var page core.UserPage
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM app_user`+clause, args...).Scan(&page.TotalCount); err != nil {
		return page, fmt.Errorf("count users: %w", err)
	}

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if q.SortDesc {
		dir = "DESC"
	}
	query := fmt.Sprintf(`SELECT %s FROM app_user%s ORDER BY %s %s, id %s`, userCols, clause, col, dir, dir)
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit) + " OFFSET " + arg(q.Offset())
	}
	users, err := s.queryUsers(ctx, query, args...)
	if err != nil {
		return page, err
	}
	page.Users = users
	return page, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.User, error) {
	return s.queryUsers(ctx, `SELECT `+userCols+` FROM app_user ORDER BY created_at DESC, id DESC`)
}

func (s *Store) queryUsers(ctx context.Context, query string, args ...any) ([]core.User, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (s *Store) Update(ctx context.Context, id string, upd core.UserUpdate) (*core.User, error) {
	sets := []string{"updated_at = $1"}
	args := []any{s.now().UTC().Truncate(time.Millisecond)}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.EmailHash != nil {
		add("email_hash", *upd.EmailHash)
	}
	if upd.Signature != nil {
		add("signature", *upd.Signature)
	}
	if upd.Role != nil {
		add("role", string(*upd.Role))
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE app_user SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userCols)
	u, err := getOne(ctx, s.pool, query, args...)
	if err != nil {
		if isUnique(err) {
			return nil, core.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM app_user WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*core.User, error) {
	var (
		u            core.User
		role, status string
	)
	if err := row.Scan(&u.ID, &u.Email, &role, &status, &u.EmailHash, &u.Signature, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = core.Role(role)
	u.Status = core.Status(status)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
