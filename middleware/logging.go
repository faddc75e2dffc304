package middleware

import (
	"context"
	"log/slog"
	"time"
)

// Logging returns middleware that logs each execution's start and outcome.
// Statement text is rendered only when an execution fails.
func Logging(logger *slog.Logger) Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		logger.Debug("statement started",
			slog.String("request_id", e.RequestID.String()),
			slog.String("command", string(e.Command)),
			slog.String("consistency", e.Consistency.String()),
		)

		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start)

		if err != nil {
			logger.Error("statement failed",
				slog.String("request_id", e.RequestID.String()),
				slog.String("command", string(e.Command)),
				slog.String("host", e.Host),
				slog.Int("attempts", e.Attempts),
				slog.Duration("elapsed", elapsed),
				slog.String("sql", e.SQL.String()),
				slog.String("error", err.Error()),
			)
		} else {
			logger.Debug("statement completed",
				slog.String("request_id", e.RequestID.String()),
				slog.String("command", string(e.Command)),
				slog.String("host", e.Host),
				slog.Duration("elapsed", elapsed),
			)
		}

		return err
	}
}
