// Package storetest es la batería de conformidad que corre cada driver de core.Repository.
package storetest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/validation"
)

// Factory devuelve un repositorio vacío y aislado por test.
type Factory func(t *testing.T) core.Repository

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func newUser(email string, role core.Role, status core.Status, created time.Time) *core.User {
	return &core.User{
		Email:     email,
		Role:      role,
		Status:    status,
		EmailHash: "hash-" + email,
		Signature: "sig-" + email,
		CreatedAt: created,
	}
}

// Run ejecuta todos los casos contra el driver.
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRepo(t)) })
	t.Run("Conflict", func(t *testing.T) { testConflict(t, newRepo(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newRepo(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newRepo(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newRepo(t)) })
	t.Run("ListHugePage", func(t *testing.T) { testListHugePage(t, newRepo(t)) })
	t.Run("ListAll", func(t *testing.T) { testListAll(t, newRepo(t)) })
}

func testCreateAndGet(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Ping(ctx))

	u := &core.User{Email: "jane.doe@example.com", EmailHash: "h", Signature: "s"}
	require.NoError(t, repo.Create(ctx, u))
	require.NotEmpty(t, u.ID)
	require.Equal(t, core.RoleUser, u.Role)
	require.Equal(t, core.StatusActive, u.Status)
	require.False(t, u.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, byID.Email)
	require.Equal(t, "h", byID.EmailHash)
	require.Equal(t, "s", byID.Signature)
	require.True(t, u.CreatedAt.Equal(byID.CreatedAt), "created_at %v vs %v", u.CreatedAt, byID.CreatedAt)

	byEmail, err := repo.GetByEmail(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "00000000-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, core.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func testConflict(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newUser("dup@example.com", core.RoleUser, core.StatusActive, base)))
	err := repo.Create(ctx, newUser("dup@example.com", core.RoleAdmin, core.StatusActive, base))
	require.ErrorIs(t, err, core.ErrConflict)
}

func testUpdate(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	a := newUser("a@example.com", core.RoleUser, core.StatusActive, base)
	b := newUser("b@example.com", core.RoleUser, core.StatusActive, base.Add(time.Second))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	// sólo role: email, hash y firma intactos
	admin := core.RoleAdmin
	got, err := repo.Update(ctx, a.ID, core.UserUpdate{Role: &admin})
	require.NoError(t, err)
	require.Equal(t, core.RoleAdmin, got.Role)
	require.Equal(t, "a@example.com", got.Email)
	require.Equal(t, a.EmailHash, got.EmailHash)
	require.Equal(t, a.Signature, got.Signature)

	email, hash, sig := "a2@example.com", "hash-a2", "sig-a2"
	inactive := core.StatusInactive
	got, err = repo.Update(ctx, a.ID, core.UserUpdate{Email: &email, EmailHash: &hash, Signature: &sig, Status: &inactive})
	require.NoError(t, err)
	require.Equal(t, email, got.Email)
	require.Equal(t, hash, got.EmailHash)
	require.Equal(t, sig, got.Signature)
	require.Equal(t, core.StatusInactive, got.Status)

	_, err = repo.GetByEmail(ctx, "a@example.com")
	require.ErrorIs(t, err, core.ErrNotFound)

	taken := "b@example.com"
	_, err = repo.Update(ctx, a.ID, core.UserUpdate{Email: &taken, EmailHash: &hash, Signature: &sig})
	require.ErrorIs(t, err, core.ErrConflict)

	_, err = repo.Update(ctx, "00000000-0000-4000-8000-000000000000", core.UserUpdate{Role: &admin})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func testDelete(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	u := newUser("gone@example.com", core.RoleUser, core.StatusActive, base)
	require.NoError(t, repo.Create(ctx, u))

	require.NoError(t, repo.Delete(ctx, u.ID))
	_, err := repo.GetByID(ctx, u.ID)
	require.ErrorIs(t, err, core.ErrNotFound)
	require.ErrorIs(t, repo.Delete(ctx, u.ID), core.ErrNotFound)

	// el email queda libre
	require.NoError(t, repo.Create(ctx, newUser("gone@example.com", core.RoleUser, core.StatusActive, base)))
}

func seed(t *testing.T, repo core.Repository) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		role := core.RoleUser
		if i%4 == 0 {
			role = core.RoleAdmin
		}
		status := core.StatusActive
		if i%3 == 0 {
			status = core.StatusInactive
		}
		email := fmt.Sprintf("user%02d@example.com", i)
		if i == 5 {
			email = "Special.Case@example.com"
		}
		require.NoError(t, repo.Create(ctx, newUser(email, role, status, base.Add(time.Duration(i)*time.Minute))))
	}
}

func testList(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	seed(t, repo)

	// defaults: created_at desc, 10 por página
	p, err := repo.List(ctx, core.ListQuery{Page: 1, Limit: 10, SortBy: core.SortCreatedAt, SortDesc: true})
	require.NoError(t, err)
	require.Equal(t, 12, p.TotalCount)
	require.Len(t, p.Users, 10)
	require.Equal(t, "user11@example.com", p.Users[0].Email)

	p, err = repo.List(ctx, core.ListQuery{Page: 2, Limit: 10, SortBy: core.SortCreatedAt, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, p.Users, 2)
	require.Equal(t, "user00@example.com", p.Users[1].Email)

	// más allá del final: vacío con el total correcto
	p, err = repo.List(ctx, core.ListQuery{Page: 5, Limit: 10, SortBy: core.SortCreatedAt})
	require.NoError(t, err)
	require.Empty(t, p.Users)
	require.Equal(t, 12, p.TotalCount)

	// filtros: admins = 0,4,8 ; de esos inactivos = 0
	p, err = repo.List(ctx, core.ListQuery{Page: 1, Limit: 10, SortBy: core.SortEmail, FilterRole: core.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, 3, p.TotalCount)
	require.Equal(t, "user00@example.com", p.Users[0].Email)

	p, err = repo.List(ctx, core.ListQuery{Page: 1, Limit: 10, SortBy: core.SortEmail, FilterRole: core.RoleAdmin, FilterStatus: core.StatusInactive})
	require.NoError(t, err)
	require.Equal(t, 1, p.TotalCount)

	// búsqueda case-insensitive por substring
	p, err = repo.List(ctx, core.ListQuery{Page: 1, Limit: 10, SortBy: core.SortEmail, Search: "special.CASE"})
	require.NoError(t, err)
	require.Equal(t, 1, p.TotalCount)
	require.Equal(t, "Special.Case@example.com", p.Users[0].Email)

	// comodines de LIKE se buscan literalmente
	p, err = repo.List(ctx, core.ListQuery{Page: 1, Limit: 10, SortBy: core.SortEmail, Search: "%"})
	require.NoError(t, err)
	require.Equal(t, 0, p.TotalCount)
}

func testListHugePage(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	seed(t, repo)

	queries := []core.ListQuery{
		validation.NormalizeListQuery(validation.RawListQuery{Page: "92233720368547760", Limit: "100"}),
		validation.NormalizeListQuery(validation.RawListQuery{Page: "99999999999999999999999", Limit: "100"}),
		{Page: math.MaxInt / 2, Limit: 100, SortBy: core.SortCreatedAt, SortDesc: true},
	}
	for _, q := range queries {
		require.GreaterOrEqual(t, q.Offset(), 0, "page=%d limit=%d", q.Page, q.Limit)
		var (
			p   core.UserPage
			err error
		)
		require.NotPanics(t, func() { p, err = repo.List(ctx, q) })
		require.NoError(t, err)
		require.Empty(t, p.Users)
		require.Equal(t, 12, p.TotalCount)
	}
}

func testListAll(t *testing.T, repo core.Repository) {
	ctx := context.Background()
	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)

	seed(t, repo)
	all, err = repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 12)
	for i := 1; i < len(all); i++ {
		require.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt), "export order must be created_at desc")
	}
	require.Equal(t, "user11@example.com", all[0].Email)
}
