package middleware

import (
	"context"
	"log/slog"
	"time"
)

// SlowQuery returns middleware that logs a warning whenever an execution
// takes longer than threshold, including the full statement text. A
// threshold of zero or less disables the middleware.
func SlowQuery(logger *slog.Logger, threshold time.Duration) Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		if threshold <= 0 {
			return next(ctx)
		}

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if elapsed >= threshold {
			logger.Warn("slow statement",
				slog.String("request_id", e.RequestID.String()),
				slog.String("command", string(e.Command)),
				slog.String("host", e.Host),
				slog.Duration("elapsed", elapsed),
				slog.Duration("threshold", threshold),
				slog.String("sql", e.SQL.String()),
			)
		}

		return err
	}
}
