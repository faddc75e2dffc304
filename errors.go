package quorum

import (
	"errors"

	"github.com/xraph/quorum/cluster"
	"github.com/xraph/quorum/result"
	"github.com/xraph/quorum/stmt"
)

var (
	// Connection lifecycle errors.
	ErrClosed = errors.New("quorum: connection closed")

	// Protocol errors.
	ErrNoResults    = errors.New("quorum: response carried no results")
	ErrNoStatements = errors.New("quorum: no statements to execute")
)

// Error types surfaced by executions, re-exported so callers can match
// them without importing the subpackages.
type (
	// DBError is a statement- or cluster-level error from the store.
	DBError = result.DBError

	// InvalidCommandError reports SQL whose command could not be
	// classified. Raised before any network call.
	InvalidCommandError = stmt.InvalidCommandError

	// ConnectError is a transport-level failure reaching one node.
	ConnectError = cluster.ConnectError

	// UnexpectedResponseError is a non-2xx, non-redirect answer.
	UnexpectedResponseError = cluster.UnexpectedResponseError

	// MaxRedirectsError reports an exhausted redirect-hop budget.
	MaxRedirectsError = cluster.MaxRedirectsError

	// MaxAttemptsError reports an exhausted address book, carrying the
	// full (host, reason) trail.
	MaxAttemptsError = cluster.MaxAttemptsError
)
