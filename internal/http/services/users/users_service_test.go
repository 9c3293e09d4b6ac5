package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/adminpanel/internal/cache"
	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/store/memory"
	"github.com/dropDatabas3/adminpanel/internal/validation"
	"github.com/dropDatabas3/adminpanel/internal/wire"
	"github.com/stretchr/testify/require"
)

var (
	pairOnce sync.Once
	pair     integrity.KeyPair
	pairErr  error
)

func testSigner(t *testing.T) *integrity.Signer {
	t.Helper()
	pairOnce.Do(func() { pair, pairErr = integrity.GenerateKeyPair(2048) })
	require.NoError(t, pairErr)
	s, err := integrity.NewSigner(pair)
	require.NoError(t, err)
	return s
}

// tickingClock avanza un segundo por llamada para que created_at sea estrictamente creciente.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	svc   UserService
	repo  *memory.Store
	cache cache.Client
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	repo := memory.New().WithClock(tickingClock())
	c := cache.NewMemory("test:", time.Minute)
	return fixture{
		svc:   NewUserService(Deps{Repo: repo, Signer: testSigner(t), Cache: c}),
		repo:  repo,
		cache: c,
	}
}

func TestCreate_CanonicalizesAndSigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, validation.UserInput{Email: "  Jane.Doe@Example.COM "})
	require.NoError(t, err)
	require.Equal(t, "jane.doe@example.com", u.Email)
	require.Equal(t, core.RoleUser, u.Role)
	require.Equal(t, core.StatusActive, u.Status)
	require.True(t, validation.ValidUUID(u.ID))

	res := integrity.VerifyIntegrity(u.Email, u.EmailHash, u.Signature, f.svc.PublicKey())
	require.True(t, res.Valid, res.Summary())
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), validation.UserInput{Email: "nope", Role: "ROOT"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "Validation failed: Invalid email format, Invalid role. Must be one of: ADMIN, USER", verr.Message)
}

func TestCreate_DuplicateEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, validation.UserInput{Email: "dup@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, validation.UserInput{Email: "DUP@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestCreate_SigningFailurePersistsNothing(t *testing.T) {
	repo := memory.New()
	svc := NewUserService(Deps{Repo: repo})

	_, err := svc.Create(context.Background(), validation.UserInput{Email: "a@example.com"})
	require.ErrorIs(t, err, ErrSigning)
	require.ErrorIs(t, err, integrity.ErrNoSigner)

	_, err = repo.GetByEmail(context.Background(), "a@example.com")
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Get(ctx, "not-a-uuid")
	require.ErrorIs(t, err, ErrInvalidID)

	_, err = f.svc.Get(ctx, "3f2c8b1e-4d5a-4b6c-9d7e-8f9a0b1c2d3e")
	require.ErrorIs(t, err, ErrUserNotFound)

	created, err := f.svc.Create(ctx, validation.UserInput{Email: "get@example.com", Role: "ADMIN"})
	require.NoError(t, err)
	got, err := f.svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, *created, *got)
}

func TestList_Normalizes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, e := range []string{"a@x.io", "b@x.io", "c@y.io"} {
		_, err := f.svc.Create(ctx, validation.UserInput{Email: e})
		require.NoError(t, err)
	}

	page, q, err := f.svc.List(ctx, validation.RawListQuery{Limit: "2", Search: "X.IO", SortBy: "email", SortOrder: "asc"})
	require.NoError(t, err)
	require.Equal(t, 1, q.Page)
	require.Equal(t, 2, q.Limit)
	require.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Users, 2)
	require.Equal(t, "a@x.io", page.Users[0].Email)
}

func TestList_HugePageReturnsEmptyPage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, validation.UserInput{Email: "a@x.io"})
	require.NoError(t, err)

	var (
		page core.UserPage
		q    core.ListQuery
	)
	require.NotPanics(t, func() {
		page, q, err = f.svc.List(ctx, validation.RawListQuery{Page: "92233720368547760", Limit: "100"})
	})
	require.NoError(t, err)
	require.Equal(t, validation.MaxPage, q.Page)
	require.Empty(t, page.Users)
	require.Equal(t, 1, page.TotalCount)
}

func TestUpdate_EmailChangeResigns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, validation.UserInput{Email: "old@example.com"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, u.ID, validation.UserInput{Email: " New@Example.com "})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", updated.Email)
	require.NotEqual(t, u.EmailHash, updated.EmailHash)
	require.NotEqual(t, u.Signature, updated.Signature)
	require.True(t, integrity.VerifyIntegrity(updated.Email, updated.EmailHash, updated.Signature, f.svc.PublicKey()).Valid)
	require.Equal(t, u.CreatedAt, updated.CreatedAt)
}

func TestUpdate_SameCanonicalEmailKeepsSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, validation.UserInput{Email: "same@example.com"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, u.ID, validation.UserInput{Email: "SAME@example.com", Role: "ADMIN", Status: "INACTIVE"})
	require.NoError(t, err)
	require.Equal(t, u.Signature, updated.Signature)
	require.Equal(t, u.EmailHash, updated.EmailHash)
	require.Equal(t, core.RoleAdmin, updated.Role)
	require.Equal(t, core.StatusInactive, updated.Status)
}

func TestUpdate_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, validation.UserInput{Email: "a@example.com"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, validation.UserInput{Email: "b@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, a.ID, validation.UserInput{Email: "B@example.com"})
	require.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Update(ctx, "bad", validation.UserInput{})
	require.ErrorIs(t, err, ErrInvalidID)

	_, err = f.svc.Update(ctx, "3f2c8b1e-4d5a-4b6c-9d7e-8f9a0b1c2d3e", validation.UserInput{Role: "USER"})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Update(ctx, a.ID, validation.UserInput{Status: "GONE"})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	// nada cambió en a
	got, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, "a@example.com", got.Email)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, validation.UserInput{Email: "del@example.com"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, u.ID))
	require.ErrorIs(t, f.svc.Delete(ctx, u.ID), ErrUserNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, "x"), ErrInvalidID)
}

func TestExport_DecodesAndVerifies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	emails := []string{"first@example.com", "second@example.com", "third@example.com"}
	for _, e := range emails {
		_, err := f.svc.Create(ctx, validation.UserInput{Email: e})
		require.NoError(t, err)
	}

	exp, err := f.svc.Export(ctx)
	require.NoError(t, err)
	require.False(t, exp.Cached)
	require.Equal(t, f.svc.PublicKey(), exp.PublicKeyPEM)

	records, err := wire.DecodeBatch(exp.Payload)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// created_at desc
	require.Equal(t, "third@example.com", records[0].Email)
	require.Equal(t, "first@example.com", records[2].Email)
	for _, r := range records {
		require.True(t, integrity.VerifyIntegrity(r.Email, r.EmailHash, r.Signature, exp.PublicKeyPEM).Valid, r.Email)
	}
}

func TestExport_CacheInvalidatedOnWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Create(ctx, validation.UserInput{Email: "one@example.com"})
	require.NoError(t, err)

	first, err := f.svc.Export(ctx)
	require.NoError(t, err)
	second, err := f.svc.Export(ctx)
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.Payload, second.Payload)

	_, err = f.svc.Update(ctx, u.ID, validation.UserInput{Email: "uno@example.com"})
	require.NoError(t, err)

	third, err := f.svc.Export(ctx)
	require.NoError(t, err)
	require.False(t, third.Cached)
	records, err := wire.DecodeBatch(third.Payload)
	require.NoError(t, err)
	require.Equal(t, "uno@example.com", records[0].Email)
}

func TestExport_Empty(t *testing.T) {
	f := newFixture(t)
	exp, err := f.svc.Export(context.Background())
	require.NoError(t, err)
	require.Empty(t, exp.Payload)
}

func TestExport_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, e := range []string{"a@example.com", "b@example.com"} {
		_, err := f.svc.Create(ctx, validation.UserInput{Email: e})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	payloads := make([][]byte, 16)
	errs := make([]error, 16)
	for i := range payloads {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			exp, err := f.svc.Export(ctx)
			payloads[i], errs[i] = exp.Payload, err
		}(i)
	}
	wg.Wait()
	for i := range payloads {
		require.NoError(t, errs[i])
		require.Equal(t, payloads[0], payloads[i])
	}
}

func TestExport_BrokenRowFailsWholeBatch(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &core.User{Email: "unsigned@example.com"}))

	svc := NewUserService(Deps{Repo: repo, Signer: testSigner(t)})
	_, err := svc.Export(ctx)
	require.ErrorIs(t, err, ErrExport)
	require.ErrorIs(t, err, wire.ErrMissingField)
}
