package middleware

import (
	"sync"
	"time"

	"github.com/xraph/quorum/id"
	"github.com/xraph/quorum/stmt"
	"github.com/xraph/quorum/wire"
)

// Exec describes a single trip to the cluster as it travels through the
// middleware chain. The identity and statement fields are set before the
// chain runs; Host, Attempts, Redirects and Elapsed are filled in by the
// transport as the execution progresses, so middleware running after next
// returns see where the work actually landed.
type Exec struct {
	RequestID   id.RequestID
	SQL         *LazyString
	Command     stmt.Command
	Kind        stmt.Kind
	Consistency wire.Level
	Freshness   time.Duration
	Statements  int
	Timeout     time.Duration

	Host      string
	Attempts  int
	Redirects int
	Elapsed   time.Duration
}

// LazyString defers building an expensive string until first use. A
// multi-statement batch rendered into a log attribute is wasted work on
// the happy path; middleware that never log it never pay for it.
type LazyString struct {
	once sync.Once
	fn   func() string
	s    string
}

// Lazy wraps fn in a LazyString. fn is called at most once.
func Lazy(fn func() string) *LazyString {
	return &LazyString{fn: fn}
}

// String renders the value, memoizing the result. Safe for concurrent use
// and on a nil receiver.
func (l *LazyString) String() string {
	if l == nil {
		return ""
	}

	l.once.Do(func() {
		if l.fn != nil {
			l.s = l.fn()
			l.fn = nil
		}
	})

	return l.s
}
