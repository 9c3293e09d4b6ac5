package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

var global atomic.Pointer[zap.Logger]

// Init arma el logger global. Sólo la primera llamada cuenta; los binarios
// la hacen antes de tocar config o red.
func Init(cfg Config) {
	global.CompareAndSwap(nil, build(cfg))
}

// L devuelve el logger global, con defaults de dev si nadie llamó a Init.
func L() *zap.Logger {
	if l := global.Load(); l != nil {
		return l
	}
	Init(Config{})
	return global.Load()
}

// Sync vacía buffers. Errores de stderr sin buffer (EINVAL en TTY) se ignoran arriba.
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}

type ctxKey struct{}

// ToContext guarda l en ctx. El middleware de logging lo usa para el logger del request.
func ToContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From devuelve el logger del request o el global.
func From(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return L()
}

// FromWithFields es From(ctx).With(fields...): la forma en que services y client
// abren su logger por operación.
func FromWithFields(ctx context.Context, fields ...zap.Field) *zap.Logger {
	return From(ctx).With(fields...)
}
