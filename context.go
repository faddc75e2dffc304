package quorum

import (
	"context"
	"time"

	"github.com/xraph/quorum/wire"
)

type (
	consistencyKey struct{}
	freshnessKey   struct{}
)

// ContextWithConsistency overrides the connection's default read
// consistency for operations issued with the returned context.
func ContextWithConsistency(ctx context.Context, level wire.Level) context.Context {
	return context.WithValue(ctx, consistencyKey{}, level)
}

// ConsistencyFrom reports the consistency override carried by ctx.
func ConsistencyFrom(ctx context.Context) (wire.Level, bool) {
	level, ok := ctx.Value(consistencyKey{}).(wire.Level)
	return level, ok
}

// ContextWithFreshness overrides the connection's default freshness
// bound for operations issued with the returned context. Freshness only
// affects none-level reads.
func ContextWithFreshness(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, freshnessKey{}, d)
}

// FreshnessFrom reports the freshness override carried by ctx.
func FreshnessFrom(ctx context.Context) (time.Duration, bool) {
	d, ok := ctx.Value(freshnessKey{}).(time.Duration)
	return d, ok
}
