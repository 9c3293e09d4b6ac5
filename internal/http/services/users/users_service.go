package users

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dropDatabas3/adminpanel/internal/audit"
	"github.com/dropDatabas3/adminpanel/internal/cache"
	"github.com/dropDatabas3/adminpanel/internal/integrity"
	"github.com/dropDatabas3/adminpanel/internal/metrics"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// UserService define las operaciones de /api/users.
type UserService interface {
	Create(ctx context.Context, in validation.UserInput) (*core.User, error)
	Get(ctx context.Context, id string) (*core.User, error)
	List(ctx context.Context, raw validation.RawListQuery) (core.UserPage, core.ListQuery, error)
	Update(ctx context.Context, id string, in validation.UserInput) (*core.User, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context) (Export, error)
	PublicKey() string
}

// Export es el resultado de GET /api/users/export.
type Export struct {
	Payload      []byte
	PublicKeyPEM string
	Cached       bool
}

const (
	componentUsers = "users"
	exportCacheKey = "export:users"
	// DefaultExportTTL acota cuánto puede quedar viejo un export cacheado en otra instancia.
	DefaultExportTTL = 30 * time.Second
)

type userService struct {
	repo   core.Repository
	signer *integrity.Signer
	cache  cache.Client
	ttl    time.Duration

	// generation se incrementa en cada escritura; un export calculado con una
	// generación vieja no se guarda en cache.
	generation atomic.Uint64
	exports    singleflight.Group
}

// NewUserService crea el service de usuarios.
func NewUserService(d Deps) UserService {
	ttl := d.ExportTTL
	if ttl <= 0 {
		ttl = DefaultExportTTL
	}
	return &userService{
		repo:   d.Repo,
		signer: d.Signer,
		cache:  d.Cache,
		ttl:    ttl,
	}
}

func (s *userService) log(ctx context.Context, op string) *zap.Logger {
	return logger.FromWithFields(ctx,
		logger.Layer("service"),
		logger.Component(componentUsers),
		logger.Op(op),
	)
}

func (s *userService) Create(ctx context.Context, in validation.UserInput) (*core.User, error) {
	log := s.log(ctx, "Create")

	if res := validation.ValidateCreate(in); !res.Valid() {
		return nil, &ValidationError{Messages: res.Errors, Message: res.Message()}
	}
	email := validation.CanonicalEmail(in.Email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, core.ErrNotFound) {
		log.Error("email lookup failed", logger.Err(err))
		return nil, err
	}

	sig, err := s.sign(ctx, email)
	if err != nil {
		return nil, err
	}

	u := &core.User{
		Email:     email,
		Role:      core.Role(in.Role),
		Status:    core.Status(in.Status),
		EmailHash: sig.DigestHex,
		Signature: sig.SignatureBase64,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, core.ErrConflict) {
			// carrera con otro create del mismo email
			return nil, ErrEmailTaken
		}
		log.Error("failed to create user", logger.Err(err))
		return nil, err
	}
	s.invalidateExport(ctx)

	audit.Log(ctx, audit.UserCreated, logger.UserID(u.ID), logger.Email(u.Email), logger.Role(string(u.Role)))
	return u, nil
}

func (s *userService) Get(ctx context.Context, id string) (*core.User, error) {
	if !validation.ValidUUID(id) {
		return nil, ErrInvalidID
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.log(ctx, "Get").Error("failed to get user", logger.UserID(id), logger.Err(err))
		return nil, err
	}
	return u, nil
}

func (s *userService) List(ctx context.Context, raw validation.RawListQuery) (core.UserPage, core.ListQuery, error) {
	q := validation.NormalizeListQuery(raw)
	page, err := s.repo.List(ctx, q)
	if err != nil {
		s.log(ctx, "List").Error("failed to list users", logger.Err(err))
		return core.UserPage{}, q, err
	}
	return page, q, nil
}

// Update sólo re-firma si el email canónico cambia. Hash y firma se escriben juntos.
func (s *userService) Update(ctx context.Context, id string, in validation.UserInput) (*core.User, error) {
	log := s.log(ctx, "Update").With(logger.UserID(id))

	if !validation.ValidUUID(id) {
		return nil, ErrInvalidID
	}
	if res := validation.ValidateUpdate(in); !res.Valid() {
		return nil, &ValidationError{Messages: res.Errors, Message: res.Message()}
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error("failed to load user", logger.Err(err))
		return nil, err
	}

	var upd core.UserUpdate
	if in.Email != "" {
		email := validation.CanonicalEmail(in.Email)
		if email != existing.Email {
			other, err := s.repo.GetByEmail(ctx, email)
			switch {
			case err == nil && other.ID != existing.ID:
				return nil, ErrEmailTaken
			case err != nil && !errors.Is(err, core.ErrNotFound):
				log.Error("email lookup failed", logger.Err(err))
				return nil, err
			}

			sig, err := s.sign(ctx, email)
			if err != nil {
				return nil, err
			}
			upd.Email = &email
			upd.EmailHash = &sig.DigestHex
			upd.Signature = &sig.SignatureBase64
		}
	}
	if in.Role != "" {
		role := core.Role(in.Role)
		upd.Role = &role
	}
	if in.Status != "" {
		status := core.Status(in.Status)
		upd.Status = &status
	}

	u, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, core.ErrConflict):
			return nil, ErrEmailTaken
		}
		log.Error("failed to update user", logger.Err(err))
		return nil, err
	}
	s.invalidateExport(ctx)

	ev := audit.UserUpdated
	if upd.Email != nil {
		ev = audit.UserResigned
	}
	audit.Log(ctx, ev, logger.UserID(u.ID), logger.Email(u.Email), logger.Role(string(u.Role)), logger.UserStatus(string(u.Status)))
	return u, nil
}

func (s *userService) Delete(ctx context.Context, id string) error {
	if !validation.ValidUUID(id) {
		return ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return ErrUserNotFound
		}
		s.log(ctx, "Delete").Error("failed to delete user", logger.UserID(id), logger.Err(err))
		return err
	}
	s.invalidateExport(ctx)

	audit.Log(ctx, audit.UserDeleted, logger.UserID(id))
	return nil
}

func (s *userService) PublicKey() string {
	return s.signer.PublicKeyPEM()
}

func (s *userService) sign(ctx context.Context, email string) (integrity.Signature, error) {
	sig, err := s.signer.HashAndSign(email)
	if err != nil {
		metrics.IntegritySignTotal.WithLabelValues("error").Inc()
		s.log(ctx, "sign").Error("failed to sign email", logger.Err(err))
		return integrity.Signature{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}
	metrics.IntegritySignTotal.WithLabelValues("ok").Inc()
	return sig, nil
}
