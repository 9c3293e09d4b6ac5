// Package memory es un Repository en memoria para tests y demos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/adminpanel/internal/store/core"
)

type Store struct {
	mu      sync.RWMutex
	byID    map[string]core.User
	byEmail map[string]string // email → id
	now     func() time.Time
}

func New() *Store {
	return &Store{
		byID:    map[string]core.User{},
		byEmail: map[string]string{},
		now:     time.Now,
	}
}

// WithClock reemplaza el reloj (tests de orden).
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

func (s *Store) Create(ctx context.Context, u *core.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return core.ErrConflict
	}
	u.ApplyDefaults(s.now())
	if _, ok := s.byID[u.ID]; ok {
		return core.ErrConflict
	}
	s.byID[u.ID] = *u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*core.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, core.ErrNotFound
	}
	u := s.byID[id]
	return &u, nil
}

func (s *Store) List(ctx context.Context, q core.ListQuery) (core.UserPage, error) {
	s.mu.RLock()
	all := make([]core.User, 0, len(s.byID))
	search := strings.ToLower(q.Search)
	for _, u := range s.byID {
		if q.FilterRole != "" && u.Role != q.FilterRole {
			continue
		}
		if q.FilterStatus != "" && u.Status != q.FilterStatus {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		all = append(all, u)
	}
	s.mu.RUnlock()

	sortUsers(all, q.SortBy, q.SortDesc)

	page := core.UserPage{TotalCount: len(all), Users: []core.User{}}
	from := q.Offset()
	if from < 0 || from >= len(all) {
		return page, nil
	}
	to := len(all)
	if q.Limit > 0 && from+q.Limit < to {
		to = from + q.Limit
	}
	page.Users = all[from:to]
	return page, nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.User, error) {
	s.mu.RLock()
	all := make([]core.User, 0, len(s.byID))
	for _, u := range s.byID {
		all = append(all, u)
	}
	s.mu.RUnlock()

	sortUsers(all, core.SortCreatedAt, true)
	return all, nil
}

func (s *Store) Update(ctx context.Context, id string, upd core.UserUpdate) (*core.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	if upd.Email != nil && *upd.Email != u.Email {
		if _, taken := s.byEmail[*upd.Email]; taken {
			return nil, core.ErrConflict
		}
		delete(s.byEmail, u.Email)
		u.Email = *upd.Email
		s.byEmail[u.Email] = u.ID
	}
	if upd.EmailHash != nil {
		u.EmailHash = *upd.EmailHash
	}
	if upd.Signature != nil {
		u.Signature = *upd.Signature
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.Status != nil {
		u.Status = *upd.Status
	}
	u.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	s.byID[id] = u
	return &u, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return core.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	return nil
}

// sortUsers ordena estable con desempate por ID para que la paginación sea determinista.
func sortUsers(users []core.User, by string, desc bool) {
	less := func(a, b core.User) int {
		switch by {
		case core.SortEmail:
			return strings.Compare(a.Email, b.Email)
		case core.SortRole:
			return strings.Compare(string(a.Role), string(b.Role))
		case core.SortStatus:
			return strings.Compare(string(a.Status), string(b.Status))
		case core.SortUpdatedAt:
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.CreatedAt.Compare(b.CreatedAt)
		}
	}
	sort.SliceStable(users, func(i, j int) bool {
		c := less(users[i], users[j])
		if c == 0 {
			c = strings.Compare(users[i].ID, users[j].ID)
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
