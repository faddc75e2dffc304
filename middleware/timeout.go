package middleware

import (
	"context"
	"log/slog"
)

// Timeout returns middleware that enforces a per-execution deadline.
// If the execution has a non-zero Timeout, a context.WithTimeout wraps the
// handler call. When the deadline is exceeded the context is cancelled and
// the handler returns context.DeadlineExceeded.
func Timeout(logger *slog.Logger) Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		if e.Timeout > 0 {
			logger.Debug("execution deadline set",
				slog.String("request_id", e.RequestID.String()),
				slog.Duration("timeout", e.Timeout),
			)
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.Timeout)
			defer cancel()
		}
		return next(ctx)
	}
}
