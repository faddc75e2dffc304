package middleware

import (
	"context"

	"github.com/xraph/quorum/id"
)

type requestIDKey struct{}

// RequestID returns middleware that stores the execution's request ID in
// the context, so code deeper in the chain (custom middleware,
// context-aware slog handlers) can correlate its output with the
// execution.
func RequestID() Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		ctx = context.WithValue(ctx, requestIDKey{}, e.RequestID)
		return next(ctx)
	}
}

// RequestIDFrom extracts the request ID stored by [RequestID].
func RequestIDFrom(ctx context.Context) (id.RequestID, bool) {
	rid, ok := ctx.Value(requestIDKey{}).(id.RequestID)
	return rid, ok
}
