// Package wire defines the HTTP wire protocol spoken by rqlite-compatible
// nodes: endpoint paths, read-consistency levels, the JSON statement tuple
// format, and the response envelope.
//
// The package is purely representational. It builds request paths and
// bodies and decodes response envelopes; issuing requests and choosing
// hosts belong to the packages above it.
package wire

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Endpoint paths.
const (
	PathQuery   = "/db/query"
	PathExecute = "/db/execute"
	PathRequest = "/db/request"
	PathBackup  = "/db/backup"
	PathStatus  = "/status"
)

// Level is the read-consistency level a query is served at.
//
// None reads from whichever node receives the request, Weak reads from
// the leader after a cheap leadership check, Strong reads go through the
// Raft log. Writes always go through the leader regardless of level.
type Level int

const (
	LevelNone Level = iota
	LevelWeak
	LevelStrong
)

// String returns the level label used on the wire.
func (l Level) String() string {
	switch l {
	case LevelNone:
		return "none"
	case LevelStrong:
		return "strong"
	default:
		return "weak"
	}
}

// ParseLevel parses a wire label into a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return LevelNone, nil
	case "weak":
		return LevelWeak, nil
	case "strong":
		return LevelStrong, nil
	default:
		return LevelWeak, fmt.Errorf("wire: unknown consistency level %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(data []byte) error {
	parsed, err := ParseLevel(string(data))
	if err != nil {
		return err
	}

	*l = parsed

	return nil
}

// BackupFormat selects the representation of a backup stream.
type BackupFormat string

const (
	// FormatBinary is the raw SQLite database file.
	FormatBinary BackupFormat = ""

	// FormatSQL is a SQL text dump.
	FormatSQL BackupFormat = "sql"
)

// String names the format for logs; the binary format's wire value is
// the empty string.
func (f BackupFormat) String() string {
	if f == FormatSQL {
		return "sql"
	}

	return "binary"
}

// ReadPath builds the query path for a single read at the given level.
// Freshness only applies at LevelNone; at Weak and Strong the node is
// asked to redirect to the leader instead of proxying.
func ReadPath(level Level, freshness time.Duration) string {
	var b strings.Builder

	b.WriteString(PathQuery)
	b.WriteString("?level=")
	b.WriteString(level.String())

	if level == LevelNone {
		if freshness > 0 {
			b.WriteString("&freshness=")
			b.WriteString(url.QueryEscape(freshness.String()))
		}
	} else {
		b.WriteString("&redirect")
	}

	return b.String()
}

// WritePath builds the execute path for a single write. Single writes
// carry no parameters; leader routing is handled by redirects.
func WritePath() string {
	return PathExecute
}

// BulkOptions shape a transactional or queued batch URL.
type BulkOptions struct {
	// Transaction wraps the batch in a single transaction that rolls
	// back wholesale on any statement error.
	Transaction bool

	// Queue accepts the batch into the node's write queue and returns
	// before it is committed.
	Queue bool

	// Wait blocks a queued batch until it has been committed. Only
	// meaningful together with Queue.
	Wait bool

	// Freshness bounds staleness for read-only unified batches served
	// at LevelNone.
	Freshness time.Duration
}

// BulkWritePath builds the execute path for a multi-statement write
// batch. Batches are always dispatched at strong consistency.
func BulkWritePath(opts BulkOptions) string {
	var b strings.Builder

	b.WriteString(PathExecute)
	b.WriteByte('?')

	if opts.Transaction {
		b.WriteString("transaction&")
	}

	b.WriteString("level=")
	b.WriteString(LevelStrong.String())

	if opts.Queue {
		b.WriteString("&queue")

		if opts.Wait {
			b.WriteString("&wait")
		}
	}

	return b.String()
}

// UnifiedPath builds the request path for a mixed batch. Read-only
// batches run at the caller's level with freshness honored at LevelNone;
// batches containing writes are forced to strong.
func UnifiedPath(readonly bool, level Level, opts BulkOptions) string {
	var b strings.Builder

	b.WriteString(PathRequest)
	b.WriteByte('?')

	if opts.Transaction {
		b.WriteString("transaction&")
	}

	effective := LevelStrong
	if readonly {
		effective = level
	}

	b.WriteString("level=")
	b.WriteString(effective.String())

	if readonly && effective == LevelNone && opts.Freshness > 0 {
		b.WriteString("&freshness=")
		b.WriteString(url.QueryEscape(opts.Freshness.String()))
	}

	b.WriteString("&redirect")

	return b.String()
}

// BackupPath builds the backup path for the given format.
func BackupPath(format BackupFormat) string {
	if format == FormatSQL {
		return PathBackup + "?fmt=sql"
	}

	return PathBackup
}

// ProbePath is the lightweight request used for leader discovery: a
// weak-consistency read that asks the node to answer with a redirect
// rather than proxy to the leader.
func ProbePath() string {
	return PathQuery + "?level=weak&redirect"
}
