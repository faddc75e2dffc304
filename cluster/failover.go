package cluster

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xraph/quorum/backoff"
)

// DefaultMaxAttempts is the per-host attempt budget used when none is
// configured.
const DefaultMaxAttempts = 3

// Outcome is the result of one host attempt. Exactly one of the three
// constructors produces it: Stop carries the final value, Continue the
// reason this host is unusable, Fatal an error that aborts the walk.
type Outcome[T any] struct {
	kind  outcomeKind
	value T
	err   error
}

type outcomeKind int

const (
	outcomeContinue outcomeKind = iota
	outcomeStop
	outcomeFatal
)

// Stop ends the walk successfully with value.
func Stop[T any](value T) Outcome[T] {
	return Outcome[T]{kind: outcomeStop, value: value}
}

// Continue records reason against the current host and moves the walk
// to the next one.
func Continue[T any](reason error) Outcome[T] {
	return Outcome[T]{kind: outcomeContinue, err: reason}
}

// Fatal aborts the walk with err. Used for failures that retrying on
// another host cannot fix.
func Fatal[T any](err error) Outcome[T] {
	return Outcome[T]{kind: outcomeFatal, err: err}
}

// AttemptFunc performs one operation against one host and reports how
// the walk proceeds.
type AttemptFunc[T any] func(ctx context.Context, node Node) Outcome[T]

// Executor walks an address book host by host. Safe for concurrent
// use; each TryHosts call keeps its own walk state.
type Executor struct {
	book        *AddressBook
	maxAttempts int
	strategy    backoff.Strategy
	logger      *slog.Logger

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxAttempts sets the per-host attempt budget. Values below 1 are
// raised to 1.
func WithMaxAttempts(n int) ExecutorOption {
	return func(ex *Executor) {
		ex.maxAttempts = n
	}
}

// WithBackoff sets the delay strategy applied between ring rounds.
func WithBackoff(s backoff.Strategy) ExecutorOption {
	return func(ex *Executor) {
		if s != nil {
			ex.strategy = s
		}
	}
}

// WithLogger sets the logger for per-attempt diagnostics.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(ex *Executor) {
		if logger != nil {
			ex.logger = logger
		}
	}
}

// WithRand sets the randomness source for start selection and ring
// shuffling. Tests use a seeded source for determinism.
func WithRand(rng *rand.Rand) ExecutorOption {
	return func(ex *Executor) {
		if rng != nil {
			ex.rng = rng
		}
	}
}

// NewExecutor builds an Executor over the given address book.
func NewExecutor(book *AddressBook, opts ...ExecutorOption) *Executor {
	ex := &Executor{
		book:        book,
		maxAttempts: DefaultMaxAttempts,
		strategy:    backoff.DefaultStrategy(),
		logger:      slog.Default(),
		rng:         rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}

	for _, opt := range opts {
		opt(ex)
	}

	if ex.maxAttempts < 1 {
		ex.maxAttempts = 1
	}

	return ex
}

// MaxAttempts returns the per-host attempt budget.
func (ex *Executor) MaxAttempts() int {
	return ex.maxAttempts
}

type tryConfig struct {
	initial *Node
}

// TryOption adjusts a single TryHosts walk.
type TryOption func(*tryConfig)

// WithInitialNode makes the walk start at node. A node present in the
// book becomes the ring's starting point; one outside the book is
// tried once before the budgeted walk begins.
func WithInitialNode(node Node) TryOption {
	return func(c *tryConfig) {
		c.initial = &node
	}
}

// TryHosts runs fn against hosts until one attempt stops the walk.
//
// The walk starts at a random host (or the initial node, when given),
// then covers the remaining hosts in a shuffled ring. Every full pass
// over the ring counts one attempt against each host; the walk ends
// with *MaxAttemptsError once maxAttempts passes have failed, carrying
// the ordered (host, reason) trail of every Continue outcome.
func TryHosts[T any](ctx context.Context, ex *Executor, fn AttemptFunc[T], opts ...TryOption) (T, error) {
	var zero T

	var cfg tryConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	hosts := ex.book.Nodes()
	n := len(hosts)

	var path NodePath

	// An initial node outside the pool gets one try outside the
	// budget: it is the node a previous operation was redirected to,
	// not a member the caller configured.
	if cfg.initial != nil && !ex.book.Contains(*cfg.initial) {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("cluster: try hosts: %w", err)
		}

		out := fn(ctx, *cfg.initial)
		switch out.kind {
		case outcomeStop:
			return out.value, nil
		case outcomeFatal:
			return zero, out.err
		default:
			path = append(path, NodeError{Node: *cfg.initial, Err: out.err})
			ex.logger.Debug("initial node unusable",
				slog.String("node", cfg.initial.String()),
				slog.Any("reason", out.err))
		}
	}

	selIdx := -1
	if cfg.initial != nil && ex.book.Contains(*cfg.initial) {
		hp := cfg.initial.HostPort()
		for i, h := range hosts {
			if h.HostPort() == hp {
				selIdx = i

				break
			}
		}
	}

	if selIdx < 0 {
		ex.mu.Lock()
		selIdx = ex.rng.IntN(n)
		ex.mu.Unlock()
	}

	// First try on the selected host happens before any ring
	// bookkeeping: a healthy cluster answers here.
	stop, value, err := tryOne(ctx, ex, fn, hosts[selIdx], &path)
	if stop {
		return value, err
	}

	ordering := make([]Node, 0, n)
	ordering = append(ordering, hosts[selIdx])

	rest := make([]Node, 0, n-1)
	for i, h := range hosts {
		if i != selIdx {
			rest = append(rest, h)
		}
	}

	ex.mu.Lock()
	ex.rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})
	ex.mu.Unlock()

	ordering = append(ordering, rest...)

	idx, attempt := 1, 0

	for {
		if idx == n {
			idx = 0
			attempt++

			if attempt >= ex.maxAttempts {
				break
			}

			if err := sleepCtx(ctx, ex.strategy.Delay(attempt)); err != nil {
				return zero, fmt.Errorf("cluster: try hosts: %w", err)
			}
		}

		stop, value, err := tryOne(ctx, ex, fn, ordering[idx], &path)
		if stop {
			return value, err
		}

		idx++
	}

	return zero, &MaxAttemptsError{Path: path}
}

// tryOne runs fn once. stop reports that the walk is over, either with
// a value or a fatal error; a Continue outcome is appended to path.
func tryOne[T any](ctx context.Context, ex *Executor, fn AttemptFunc[T], node Node, path *NodePath) (stop bool, value T, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return true, value, fmt.Errorf("cluster: try hosts: %w", ctxErr)
	}

	out := fn(ctx, node)
	switch out.kind {
	case outcomeStop:
		return true, out.value, nil
	case outcomeFatal:
		return true, value, out.err
	default:
		*path = append(*path, NodeError{Node: node, Err: out.err})
		ex.logger.Debug("host unusable, continuing",
			slog.String("node", node.String()),
			slog.Any("reason", out.err))

		return false, value, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
