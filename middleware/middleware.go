// Package middleware provides composable middleware around statement
// execution. Middleware wrap the network call synchronously and can
// observe or modify an execution (recover from panics, enforce deadlines,
// log, add tracing, etc.).
package middleware

import (
	"context"
)

// Handler is the terminal function that performs the statement execution.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with cross-cutting logic.
// It receives the current context, the execution being performed, and the
// next handler to call. Middleware MUST call next to continue the chain
// (unless short-circuiting on error).
type Middleware func(ctx context.Context, e *Exec, next Handler) error

// Chain composes multiple middleware into a single Middleware.
// Middleware are applied right-to-left: the first middleware in the
// list is the outermost wrapper.
//
// Example: Chain(logging, recover, timeout) executes as:
//
//	logging → recover → timeout → handler
func Chain(mws ...Middleware) Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		// Build the chain from the end backwards.
		h := next
		for i := len(mws) - 1; i >= 0; i-- {
			mw := mws[i]
			prev := h
			h = func(ctx context.Context) error {
				return mw(ctx, e, prev)
			}
		}
		return h(ctx)
	}
}
