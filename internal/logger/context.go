package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext extracts a logger from the context.
// Returns zap.NewNop() if no logger is found.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithJob returns a child logger tagged with the job's identity fields, so
// every line emitted while processing carries tenant and aggregate context.
func WithJob(l *zap.Logger, job domain.Job) *zap.Logger {
	return l.With(
		zap.String("tenant", job.TenantID),
		zap.String("entity_id", job.EntityID),
		zap.String("operation", string(job.Operation)),
		zap.Int("attempt", job.Attempts),
	)
}
