package logger

import (
	"context"
	"log/slog"
)

type ctxKey struct{}

// With derives a request-scoped logger carrying the given fields and stores
// it in the context. Fields accumulate across nested calls.
func With(ctx context.Context, fields ...any) context.Context {
	return context.WithValue(ctx, ctxKey{}, From(ctx).With(fields...))
}

// From returns the logger stored in the context, falling back to the
// process-wide logger.
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return L()
}
