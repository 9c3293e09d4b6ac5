// Package sqlite implementa core.Repository sobre un archivo SQLite (modernc, sin cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/migrate"
	"github.com/dropDatabas3/adminpanel/migrations"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open abre (o crea) la base en path y aplica las migraciones embebidas.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}
	dsn := "file:" + filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// un solo writer; evita SQLITE_BUSY entre conexiones del pool
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if _, err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate aplica los *_up.sql pendientes.
func (s *Store) Migrate(ctx context.Context) (migrate.Result, error) {
	migs, err := migrate.Load(migrations.FS, migrations.SQLiteDir)
	if err != nil {
		return migrate.Result{}, err
	}
	return migrate.Up(ctx, Executor(s.db), migs, 0)
}

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const userCols = `id, email, role, status, email_hash, signature, created_at, updated_at`

func (s *Store) Create(ctx context.Context, u *core.User) error {
	u.ApplyDefaults(s.now())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO app_user (`+userCols+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, string(u.Role), string(u.Status), u.EmailHash, u.Signature,
		u.CreatedAt.UnixMilli(), u.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		if isUnique(err) {
			return core.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	return s.getOne(ctx, s.db, `SELECT `+userCols+` FROM app_user WHERE id = ?`, id)
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	return s.getOne(ctx, s.db, `SELECT `+userCols+` FROM app_user WHERE email = ?`, email)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getOne(ctx context.Context, q queryer, query string, args ...any) (*core.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
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
	if q.FilterRole != "" {
		where = append(where, "role = ?")
		args = append(args, string(q.FilterRole))
	}
	if q.FilterStatus != "" {
		where = append(where, "status = ?")
		args = append(args, string(q.FilterStatus))
	}
	if q.Search != "" {
		where = append(where, `LOWER(email) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var page core.UserPage
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM app_user`+clause, args...).Scan(&page.TotalCount); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM app_user%s ORDER BY %s %s, id %s LIMIT ? OFFSET ?`, userCols, clause, col, dir, dir)
	limit := q.Limit
	if limit <= 0 {
		limit = -1
	}
	users, err := s.queryUsers(ctx, query, append(args, limit, q.Offset())...)
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
	rows, err := s.db.QueryContext(ctx, query, args...)
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sets := []string{"updated_at = ?"}
	args := []any{s.now().UTC().Truncate(time.Millisecond).UnixMilli()}
	add := func(col string, v any) {
		sets = append(sets, col+" = ?")
		args = append(args, v)
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

	res, err := tx.ExecContext(ctx, `UPDATE app_user SET `+strings.Join(sets, ", ")+` WHERE id = ?`, append(args, id)...)
	if err != nil {
		if isUnique(err) {
			return nil, core.ErrConflict
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, core.ErrNotFound
	}

	u, err := s.getOne(ctx, tx, `SELECT `+userCols+` FROM app_user WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM app_user WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(sc scanner) (*core.User, error) {
	var (
		u                core.User
		role, status     string
		created, updated int64
	)
	if err := sc.Scan(&u.ID, &u.Email, &role, &status, &u.EmailHash, &u.Signature, &created, &updated); err != nil {
		return nil, err
	}
	u.Role = core.Role(role)
	u.Status = core.Status(status)
	u.CreatedAt = time.UnixMilli(created).UTC()
	u.UpdatedAt = time.UnixMilli(updated).UTC()
	return &u, nil
}

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
