package quorum

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/xraph/quorum/cluster"
	"github.com/xraph/quorum/explain"
	"github.com/xraph/quorum/id"
	"github.com/xraph/quorum/middleware"
	"github.com/xraph/quorum/result"
	"github.com/xraph/quorum/stmt"
	"github.com/xraph/quorum/wire"
)

// ExecOption adjusts a single batch execution.
type ExecOption func(*batchSettings)

type batchSettings struct {
	noTransaction bool
	queue         bool
	wait          bool
}

func newBatchSettings(opts []ExecOption) batchSettings {
	var s batchSettings
	for _, opt := range opts {
		opt(&s)
	}

	return s
}

// WithoutTransaction submits a batch without wrapping it in a single
// transaction, so statements succeed or fail independently.
func WithoutTransaction() ExecOption {
	return func(s *batchSettings) { s.noTransaction = true }
}

// WithQueued hands a write batch to the node's write queue and returns
// before it is committed, trading durability confirmation for
// throughput. Only meaningful for [Cursor.ExecuteMany].
func WithQueued() ExecOption {
	return func(s *batchSettings) { s.queue = true }
}

// WithWait makes a queued batch block until the queue has committed it.
// Implies WithQueued.
func WithWait() ExecOption {
	return func(s *batchSettings) {
		s.queue = true
		s.wait = true
	}
}

// Cursor executes statements and pages over the most recent result:
// execute, then fetch. Every execution resets the fetch position.
// Cursors are cheap to create and not safe for concurrent use; the
// Connection behind them is.
type Cursor struct {
	conn *Connection

	requestID id.RequestID
	command   stmt.Command
	args      []any

	item *result.Item
	rows *result.Rows
	bulk result.Bulk
}

// reset clears everything the previous execution left behind.
func (cur *Cursor) reset() {
	cur.requestID = id.Nil
	cur.command = ""
	cur.args = nil
	cur.item = nil
	cur.rows = nil
	cur.bulk = nil
}

// ExecuteResult runs a single statement and returns its result item.
// Statement-level errors are returned inside the item, not as the error
// value; use [Cursor.Execute] to have them raised. nil parameters are
// spliced into the SQL as literal NULLs before dispatch.
//
// Reads run at the connection's consistency level unless the context
// carries an override. A read at [wire.LevelNone] that the node reports
// as stale is retried exactly once at [wire.LevelWeak].
func (cur *Cursor) ExecuteResult(ctx context.Context, sql string, args ...any) (*result.Item, error) {
	if cur.conn.closed.Load() {
		return nil, ErrClosed
	}

	cur.reset()

	command, err := stmt.Classify(sql)
	if err != nil {
		return nil, err
	}

	expanded, remaining, err := stmt.ExpandNulls(sql, args)
	if err != nil {
		return nil, err
	}

	body, err := wire.EncodeBody([]wire.Statement{{SQL: expanded, Args: remaining}})
	if err != nil {
		return nil, err
	}

	level, freshness := cur.conn.readPolicy(ctx)

	cur.requestID = id.NewRequestID()
	cur.command = command
	cur.args = remaining

	item, err := cur.dispatchOne(ctx, command, expanded, body, level, freshness)
	if err != nil {
		return nil, err
	}

	cur.item = item
	cur.rows = item.Cursor()

	return item, nil
}

// Execute runs a single statement and raises any statement-level error,
// annotated with the request ID, command and parameters so the failure
// can be tied back to its log trail. See [Cursor.ExecuteResult] for the
// dispatch rules.
func (cur *Cursor) Execute(ctx context.Context, sql string, args ...any) error {
	item, err := cur.ExecuteResult(ctx, sql, args...)
	if err != nil {
		return err
	}

	return cur.raiseItem(item)
}

// ExecuteMany runs a batch of write statements in one round trip,
// wrapped in a single transaction unless [WithoutTransaction] is given.
// Write batches always run at strong consistency. The returned bulk
// holds one item per statement in order; use [result.Bulk.Err] or
// [result.Bulk.ErrBefore] to inspect statement failures.
func (cur *Cursor) ExecuteMany(ctx context.Context, stmts []wire.Statement, opts ...ExecOption) (result.Bulk, error) {
	if cur.conn.closed.Load() {
		return nil, ErrClosed
	}
	if len(stmts) == 0 {
		return nil, ErrNoStatements
	}

	cur.reset()

	settings := newBatchSettings(opts)

	expanded, err := expandBatch(stmts)
	if err != nil {
		return nil, err
	}

	body, err := wire.EncodeBody(expanded)
	if err != nil {
		return nil, err
	}

	path := wire.BulkWritePath(wire.BulkOptions{
		Transaction: !settings.noTransaction,
		Queue:       settings.queue,
		Wait:        settings.wait,
	})

	cur.requestID = id.NewRequestID()

	e := cur.newExec("", stmt.KindWrite, wire.LevelStrong, 0, len(expanded), func() string {
		return renderStatements(expanded)
	})

	env, err := cur.roundTrip(ctx, e, path, body)
	if err != nil {
		return nil, err
	}

	if env.Error != "" {
		return nil, result.NewDBError(env.Error).WithHint("request " + cur.requestID.String())
	}

	bulk, err := result.ParseBulk(env.Results)
	if err != nil {
		return nil, err
	}

	cur.bulk = bulk

	return bulk, nil
}

// ExecuteUnified runs a mixed batch through the unified endpoint in one
// round trip. A batch of nothing but reads runs at the caller's
// consistency level; a batch containing any write is forced to strong.
// A read-only batch at [wire.LevelNone] that the node reports as stale
// is retried exactly once at [wire.LevelWeak].
func (cur *Cursor) ExecuteUnified(ctx context.Context, stmts []wire.Statement, opts ...ExecOption) (result.Bulk, error) {
	if cur.conn.closed.Load() {
		return nil, ErrClosed
	}
	if len(stmts) == 0 {
		return nil, ErrNoStatements
	}

	cur.reset()

	settings := newBatchSettings(opts)

	sqls := make([]string, len(stmts))
	for i, s := range stmts {
		sqls[i] = s.SQL
	}

	kind, err := stmt.BatchKind(sqls)
	if err != nil {
		return nil, err
	}

	expanded, err := expandBatch(stmts)
	if err != nil {
		return nil, err
	}

	body, err := wire.EncodeBody(expanded)
	if err != nil {
		return nil, err
	}

	level, freshness := cur.conn.readPolicy(ctx)
	cur.requestID = id.NewRequestID()

	bulk, err := cur.dispatchUnified(ctx, kind, expanded, body, settings, level, freshness)
	if err != nil {
		return nil, err
	}

	cur.bulk = bulk

	return bulk, nil
}

// Explain runs the statement under EXPLAIN QUERY PLAN and parses the
// resulting tree. Statements already classified as EXPLAIN are sent
// unchanged. Plans never need linearizable reads, so a strong level is
// downgraded to weak for the trip.
func (cur *Cursor) Explain(ctx context.Context, sql string, args ...any) (*explain.Plan, error) {
	command, err := stmt.Classify(sql)
	if err != nil {
		return nil, err
	}

	if command != stmt.CommandExplain {
		sql = "EXPLAIN QUERY PLAN " + sql
	}

	if level, _ := cur.conn.readPolicy(ctx); level == wire.LevelStrong {
		ctx = ContextWithConsistency(ctx, wire.LevelWeak)
	}

	item, err := cur.ExecuteResult(ctx, sql, args...)
	if err != nil {
		return nil, err
	}

	if err := cur.raiseItem(item); err != nil {
		return nil, err
	}

	return explain.Parse(item)
}

// ── Dispatch ──

// dispatchOne sends one statement down the read or write path and
// decodes the single result item. A stale read at LevelNone recurses
// once at LevelWeak; the level guard keeps the recursion from going any
// deeper.
func (cur *Cursor) dispatchOne(ctx context.Context, command stmt.Command, sql string, body []byte, level wire.Level, freshness time.Duration) (*result.Item, error) {
	path := wire.WritePath()
	kind := stmt.KindWrite
	execLevel := wire.LevelStrong

	if command.IsRead() {
		path = wire.ReadPath(level, freshness)
		kind = stmt.KindReadOnly
		execLevel = level
	}

	e := cur.newExec(command, kind, execLevel, freshness, 1, func() string { return sql })

	env, err := cur.roundTrip(ctx, e, path, body)
	if err != nil {
		return nil, err
	}

	if env.Error != "" {
		dbErr := result.NewDBError(env.Error)

		if dbErr.IsStale() && command.IsRead() && level == wire.LevelNone {
			cur.conn.logger.Warn("stale read, retrying at weak consistency",
				slog.String("request_id", cur.requestID.String()),
			)

			return cur.dispatchOne(ctx, command, sql, body, wire.LevelWeak, 0)
		}

		return nil, dbErr.WithHint("request " + cur.requestID.String())
	}

	if len(env.Results) == 0 {
		return nil, ErrNoResults
	}

	return result.ParseItem(env.Results[0])
}

// dispatchUnified sends one unified batch and decodes the items. The
// stale-read downgrade applies to read-only batches at LevelNone, same
// as single statements.
func (cur *Cursor) dispatchUnified(ctx context.Context, kind stmt.Kind, stmts []wire.Statement, body []byte, settings batchSettings, level wire.Level, freshness time.Duration) (result.Bulk, error) {
	readonly := kind == stmt.KindReadOnly

	path := wire.UnifiedPath(readonly, level, wire.BulkOptions{
		Transaction: !settings.noTransaction,
		Freshness:   freshness,
	})

	execLevel := wire.LevelStrong
	if readonly {
		execLevel = level
	}

	e := cur.newExec("", kind, execLevel, freshness, len(stmts), func() string {
		return renderStatements(stmts)
	})

	env, err := cur.roundTrip(ctx, e, path, body)
	if err != nil {
		return nil, err
	}

	if env.Error != "" {
		dbErr := result.NewDBError(env.Error)

		if dbErr.IsStale() && readonly && level == wire.LevelNone {
			cur.conn.logger.Warn("stale read, retrying batch at weak consistency",
				slog.String("request_id", cur.requestID.String()),
			)

			return cur.dispatchUnified(ctx, kind, stmts, body, settings, wire.LevelWeak, 0)
		}

		return nil, dbErr.WithHint("request " + cur.requestID.String())
	}

	return result.ParseBulk(env.Results)
}

// roundTrip pushes one encoded body through the middleware chain and
// the failover walk, returning the decoded envelope from whichever node
// answered.
func (cur *Cursor) roundTrip(ctx context.Context, e *middleware.Exec, path string, body []byte) (*wire.Envelope, error) {
	conn := cur.conn

	if conn.limiter != nil {
		if err := conn.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("quorum: rate limit: %w", err)
		}
	}

	var env *wire.Envelope

	terminal := func(ctx context.Context) error {
		started := time.Now()
		defer func() { e.Elapsed = time.Since(started) }()

		got, err := cluster.TryHosts(ctx, conn.executor, func(ctx context.Context, node cluster.Node) cluster.Outcome[*wire.Envelope] {
			e.Attempts++

			resp, served, hops, err := conn.doFollow(ctx, http.MethodPost, node, path, body, cur.requestID.String())
			if err != nil {
				return failureOutcome[*wire.Envelope](err)
			}
			defer closeBody(resp)

			e.Redirects += hops

			if resp.StatusCode != http.StatusOK {
				return cluster.Continue[*wire.Envelope](&cluster.UnexpectedResponseError{Node: served, Status: resp.StatusCode})
			}

			decoded, err := wire.DecodeEnvelope(resp.Body)
			if err != nil {
				return cluster.Continue[*wire.Envelope](&cluster.ConnectError{Node: served, Err: err})
			}

			e.Host = served.HostPort()

			return cluster.Stop(decoded)
		})
		if err != nil {
			return err
		}

		env = got

		return nil
	}

	if err := conn.chain(ctx, e, terminal); err != nil {
		return nil, err
	}

	return env, nil
}

// newExec builds the middleware view of one trip to the cluster.
func (cur *Cursor) newExec(command stmt.Command, kind stmt.Kind, level wire.Level, freshness time.Duration, statements int, renderSQL func() string) *middleware.Exec {
	return &middleware.Exec{
		RequestID:   cur.requestID,
		SQL:         middleware.Lazy(renderSQL),
		Command:     command,
		Kind:        kind,
		Consistency: level,
		Freshness:   freshness,
		Statements:  statements,
		Timeout:     cur.conn.config.OperationTimeout,
	}
}

// raiseItem converts a statement-level error item into its *DBError,
// annotated with the request ID, command and parameters.
func (cur *Cursor) raiseItem(item *result.Item) error {
	dbErr := item.DBErr()
	if dbErr == nil {
		return nil
	}

	return dbErr.WithHint(fmt.Sprintf("request %s: %s with params %v", cur.requestID, cur.command, cur.args))
}

// expandBatch splices nil parameters into each statement of a batch.
func expandBatch(stmts []wire.Statement) ([]wire.Statement, error) {
	expanded := make([]wire.Statement, len(stmts))

	for i, s := range stmts {
		sql, args, err := stmt.ExpandNulls(s.SQL, s.Args)
		if err != nil {
			return nil, fmt.Errorf("quorum: statement %d: %w", i, err)
		}

		expanded[i] = wire.Statement{SQL: sql, Args: args}
	}

	return expanded, nil
}

// renderStatements joins a batch into one loggable string.
func renderStatements(stmts []wire.Statement) string {
	parts := make([]string, len(stmts))
	for i, s := range stmts {
		parts[i] = s.SQL
	}

	return strings.Join(parts, "; ")
}

// ── Fetching ──

// FetchOne returns the next unread row of the last result, or false
// when the rows are exhausted or the last execution produced none.
func (cur *Cursor) FetchOne() ([]any, bool) {
	if cur.rows == nil {
		return nil, false
	}

	return cur.rows.FetchOne()
}

// FetchMany returns up to n unread rows of the last result.
func (cur *Cursor) FetchMany(n int) [][]any {
	if cur.rows == nil {
		return nil
	}

	return cur.rows.FetchMany(n)
}

// FetchAll returns all unread rows of the last result.
func (cur *Cursor) FetchAll() [][]any {
	if cur.rows == nil {
		return nil
	}

	return cur.rows.FetchAll()
}

// Rows exposes the pagination state over the last result, or nil when
// the last execution produced no rows.
func (cur *Cursor) Rows() *result.Rows { return cur.rows }

// Result returns the last execution's result item, or nil.
func (cur *Cursor) Result() *result.Item { return cur.item }

// Bulk returns the items of the last batch execution, or nil.
func (cur *Cursor) Bulk() result.Bulk { return cur.bulk }

// RequestID returns the ID assigned to the last execution.
func (cur *Cursor) RequestID() id.RequestID { return cur.requestID }

// Columns returns the column names of the last result.
func (cur *Cursor) Columns() []string {
	if cur.item == nil {
		return nil
	}

	return cur.item.Columns()
}

// Types returns the declared column types of the last result.
func (cur *Cursor) Types() []string {
	if cur.item == nil {
		return nil
	}

	return cur.item.Types()
}

// NumRows returns the number of rows in the last result.
func (cur *Cursor) NumRows() int {
	if cur.item == nil {
		return 0
	}

	return cur.item.NumRows()
}

// RowsAffected returns the row count reported by the last write, when
// the node reported one.
func (cur *Cursor) RowsAffected() (int64, bool) {
	if cur.item == nil {
		return 0, false
	}

	return cur.item.RowsAffected()
}

// LastInsertID returns the rowid assigned by the last insert, when the
// node reported one.
func (cur *Cursor) LastInsertID() (int64, bool) {
	if cur.item == nil {
		return 0, false
	}

	return cur.item.LastInsertID()
}
