package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope name for quorum tracing.
const tracerName = "github.com/xraph/quorum"

// Tracing returns middleware that wraps statement execution in an
// OpenTelemetry client span. If no TracerProvider is configured globally,
// the default noop tracer is used and this middleware becomes a
// pass-through with zero overhead.
//
// Span attributes include: quorum.request.id, quorum.command, quorum.kind,
// quorum.consistency, quorum.statements. On error, the span status is set
// to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, e *Exec, next Handler) error {
		ctx, span := tracer.Start(ctx, "quorum.statement.execute",
			trace.WithAttributes(
				attribute.String("quorum.request.id", e.RequestID.String()),
				attribute.String("quorum.command", string(e.Command)),
				attribute.String("quorum.kind", e.Kind.String()),
				attribute.String("quorum.consistency", e.Consistency.String()),
				attribute.Int("quorum.statements", e.Statements),
			),
			trace.WithSpanKind(trace.SpanKindClient),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
