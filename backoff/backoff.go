// Package backoff provides pluggable delay strategies for failover
// retry rounds. All strategies are safe for concurrent use (they are
// stateless).
package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Strategy computes the delay before a retry round.
type Strategy interface {
	// Delay returns how long to wait before round n (1-indexed).
	// Round 1 is the first full pass over the host ring after the
	// initial one failed.
	Delay(round int) time.Duration
}

// ──────────────────────────────────────────────────
// None
// ──────────────────────────────────────────────────

// None never waits. It keeps total failover latency bounded by
// attempts × hosts × per-call timeout, with nothing added in between.
type None struct{}

// NewNone creates a no-delay strategy.
func NewNone() *None {
	return &None{}
}

// Delay returns zero.
func (*None) Delay(_ int) time.Duration {
	return 0
}

// ──────────────────────────────────────────────────
// Constant
// ──────────────────────────────────────────────────

// Constant always returns the same delay regardless of round number.
type Constant struct {
	Interval time.Duration
}

// NewConstant creates a constant backoff strategy.
func NewConstant(interval time.Duration) *Constant {
	return &Constant{Interval: interval}
}

// Delay returns the fixed interval.
func (c *Constant) Delay(_ int) time.Duration {
	return c.Interval
}

// ──────────────────────────────────────────────────
// Linear
// ──────────────────────────────────────────────────

// Linear increases the delay linearly with the round number.
// Delay = min(Initial * round, Max).
type Linear struct {
	Initial time.Duration
	Max     time.Duration
}

// NewLinear creates a linear backoff strategy.
func NewLinear(initial, maxDelay time.Duration) *Linear {
	return &Linear{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * round, capped at Max.
func (l *Linear) Delay(round int) time.Duration {
	d := l.Initial * time.Duration(round)
	if l.Max > 0 && d > l.Max {
		return l.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// Exponential
// ──────────────────────────────────────────────────

// Exponential doubles the delay each round.
// Delay = min(Initial * 2^(round-1), Max).
type Exponential struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponential creates an exponential backoff strategy.
func NewExponential(initial, maxDelay time.Duration) *Exponential {
	return &Exponential{Initial: initial, Max: maxDelay}
}

// Delay returns Initial * 2^(round-1), capped at Max.
func (e *Exponential) Delay(round int) time.Duration {
	d := time.Duration(float64(e.Initial) * math.Pow(2, float64(round-1)))
	if e.Max > 0 && d > e.Max {
		return e.Max
	}
	return d
}

// ──────────────────────────────────────────────────
// ExponentialWithJitter (full jitter)
// ──────────────────────────────────────────────────

// ExponentialWithJitter applies full jitter to an exponential base.
// Delay = random value in [0, min(Initial * 2^(round-1), Max)].
// This prevents thundering herd when many clients retry a recovering
// cluster simultaneously.
type ExponentialWithJitter struct {
	Initial time.Duration
	Max     time.Duration
}

// NewExponentialWithJitter creates an exponential backoff with full jitter.
func NewExponentialWithJitter(initial, maxDelay time.Duration) *ExponentialWithJitter {
	return &ExponentialWithJitter{Initial: initial, Max: maxDelay}
}

// Delay returns a random duration in [0, min(Initial * 2^(round-1), Max)].
func (e *ExponentialWithJitter) Delay(round int) time.Duration {
	base := float64(e.Initial) * math.Pow(2, float64(round-1))
	if e.Max > 0 && base > float64(e.Max) {
		base = float64(e.Max)
	}
	return time.Duration(rand.Float64() * base) //nolint:gosec // jitter intentionally uses non-crypto rand
}

// ──────────────────────────────────────────────────
// Default
// ──────────────────────────────────────────────────

// DefaultStrategy returns the default used between failover rounds:
// no delay. Retrying a different host immediately is the point of the
// ring walk; sleeping between rounds is strictly opt-in.
func DefaultStrategy() Strategy {
	return NewNone()
}
