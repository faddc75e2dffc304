package quorum

import (
	"time"

	"github.com/xraph/quorum/cluster"
	"github.com/xraph/quorum/wire"
)

// DefaultMaxRedirects is the redirect-hop budget per host attempt used
// when none is configured.
const DefaultMaxRedirects = 10

// Config holds the connection's default execution policy.
type Config struct {
	// Consistency is the default read-consistency level for queries.
	Consistency wire.Level

	// Freshness bounds acceptable staleness for none-level reads.
	// Zero means no bound.
	Freshness time.Duration

	// MaxRedirects is how many leader redirects a single host attempt
	// may follow before the operation fails.
	MaxRedirects int

	// MaxAttemptsPerHost is how many failover passes each host gets
	// before the address book is considered exhausted.
	MaxAttemptsPerHost int

	// OperationTimeout bounds each statement execution end to end,
	// failover retries included. Zero disables the bound.
	OperationTimeout time.Duration

	// SlowQueryThreshold triggers a warning log for executions that
	// take longer. Zero disables slow-query logging.
	SlowQueryThreshold time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Consistency:        wire.LevelWeak,
		MaxRedirects:       DefaultMaxRedirects,
		MaxAttemptsPerHost: cluster.DefaultMaxAttempts,
	}
}
