// Package middleware provides composable middleware around statement
// execution.
//
// A [Middleware] is a function that wraps one trip to the cluster.
// Middleware are composed into a chain using [Chain] and applied around
// each execution. They are applied right-to-left: the first middleware in
// the slice is the outermost wrapper.
//
//	// logging → recover → handler
//	chain := middleware.Chain(middleware.Logging(logger), middleware.Recover(logger))
//
// # Built-in Middleware
//
//   - [Logging]: logs request ID, command, host, duration, and outcome
//   - [Recover]: catches panics and converts them to errors
//   - [Timeout]: cancels the execution context after a configured duration
//   - [Tracing]: wraps execution in an OpenTelemetry client span
//   - [Metrics]: records per-statement duration and outcome counters
//   - [SlowQuery]: warns when an execution exceeds a latency threshold
//   - [RequestID]: injects the request ID into the context
//
// # Writing Custom Middleware
//
//	func MyMiddleware() middleware.Middleware {
//	    return func(ctx context.Context, e *middleware.Exec, next middleware.Handler) error {
//	        // pre-processing
//	        err := next(ctx)
//	        // post-processing
//	        return err
//	    }
//	}
//
// Middleware MUST call next to continue the chain unless intentionally
// short-circuiting (e.g., circuit breaker, rate limiting).
package middleware
