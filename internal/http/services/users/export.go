package users

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/adminpanel/internal/audit"
	"github.com/dropDatabas3/adminpanel/internal/cache"
	"github.com/dropDatabas3/adminpanel/internal/metrics"
	"github.com/dropDatabas3/adminpanel/internal/observability/logger"
	"github.com/dropDatabas3/adminpanel/internal/store/core"
	"github.com/dropDatabas3/adminpanel/internal/wire"
)

// Export devuelve todos los usuarios (created_at desc) codificados como UserList.
// Los registros salen con el hash y la firma persistidos; acá no se re-firma nada.
//
// El blob se cachea; los misses concurrentes se resuelven con una sola consulta.
func (s *userService) Export(ctx context.Context) (Export, error) {
	out := Export{PublicKeyPEM: s.PublicKey()}

	if payload, ok := s.cachedExport(ctx); ok {
		out.Payload = payload
		out.Cached = true
		return out, nil
	}

	// el primer caller no debe cancelar el export de los que esperan
	detached := context.WithoutCancel(ctx)
	v, err, _ := s.exports.Do(exportCacheKey, func() (any, error) {
		gen := s.generation.Load()
		payload, count, err := s.buildExport(detached)
		if err != nil {
			return nil, err
		}
		metrics.IntegrityExportRecords.Observe(float64(count))
		s.storeExport(detached, gen, payload)
		return payload, nil
	})
	if err != nil {
		return Export{}, err
	}
	out.Payload = v.([]byte)
	return out, nil
}

func (s *userService) buildExport(ctx context.Context) ([]byte, int, error) {
	log := s.log(ctx, "Export")

	users, err := s.repo.ListAll(ctx)
	if err != nil {
		log.Error("failed to load users", logger.Err(err))
		return nil, 0, err
	}

	payload, err := wire.EncodeBatch(ToRecords(users))
	if err != nil {
		log.Error("failed to encode export", logger.Err(err))
		return nil, 0, fmt.Errorf("%w: %w", ErrExport, err)
	}

	audit.Log(ctx, audit.ExportBuilt, logger.Count(len(users)), logger.Bytes(len(payload)))
	return payload, len(users), nil
}

func (s *userService) cachedExport(ctx context.Context) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	payload, err := s.cache.Get(ctx, exportCacheKey)
	switch {
	case err == nil:
		metrics.ExportCacheTotal.WithLabelValues("hit").Inc()
		return payload, true
	case cache.IsNotFound(err):
		metrics.ExportCacheTotal.WithLabelValues("miss").Inc()
	default:
		metrics.ExportCacheTotal.WithLabelValues("error").Inc()
		s.log(ctx, "Export").Warn("export cache unavailable", logger.Err(err))
	}
	return nil, false
}

// storeExport guarda el blob sólo si no hubo escrituras mientras se calculaba.
func (s *userService) storeExport(ctx context.Context, gen uint64, payload []byte) {
	if s.cache == nil || s.generation.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, exportCacheKey, payload, s.ttl); err != nil {
		s.log(ctx, "Export").Warn("failed to cache export", logger.Err(err))
	}
}

func (s *userService) invalidateExport(ctx context.Context) {
	s.generation.Add(1)
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, exportCacheKey); err != nil && !cache.IsNotFound(err) {
		s.log(ctx, "invalidateExport").Warn("failed to invalidate export cache", logger.Err(err))
	}
}

// ToRecords convierte filas persistidas a la forma de transporte.
func ToRecords(users []core.User) []wire.Record {
	out := make([]wire.Record, len(users))
	for i, u := range users {
		out[i] = wire.Record{
			ID:        u.ID,
			Email:     u.Email,
			Role:      string(u.Role),
			Status:    string(u.Status),
			CreatedAt: wire.FormatTimestamp(u.CreatedAt),
			EmailHash: u.EmailHash,
			Signature: u.Signature,
		}
	}
	return out
}
