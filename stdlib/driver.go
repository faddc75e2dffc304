package stdlib

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/xraph/quorum"
	"github.com/xraph/quorum/result"
)

// DriverName is the name the driver registers under.
const DriverName = "quorum"

// ErrNoTransactions is returned by Begin. Every statement is already
// one Raft round; multi-statement atomicity goes through
// [quorum.Cursor.ExecuteMany] on a native connection.
var ErrNoTransactions = errors.New("stdlib: transactions are not supported")

func init() {
	sql.Register(DriverName, &Driver{})
}

var (
	_ driver.Driver        = (*Driver)(nil)
	_ driver.DriverContext = (*Driver)(nil)
	_ driver.Connector     = (*Connector)(nil)
	_ io.Closer            = (*Connector)(nil)
)

// Driver implements database/sql/driver over a quorum connection.
type Driver struct{}

// Open opens a standalone connection from a DSN. The standard library
// prefers OpenConnector; this path exists for direct driver use and the
// returned conn owns its cluster connection.
func (d *Driver) Open(name string) (driver.Conn, error) {
	connector, err := d.OpenConnector(name)
	if err != nil {
		return nil, err
	}

	conn, err := connector.Connect(context.Background())
	if err != nil {
		return nil, err
	}

	conn.(*Conn).owned = true

	return conn, nil
}

// OpenConnector parses the DSN once and returns a connector for the
// pool to draw from.
func (d *Driver) OpenConnector(name string) (driver.Connector, error) {
	addrs, opts, err := ParseDSN(name)
	if err != nil {
		return nil, err
	}

	return &Connector{driver: d, addrs: addrs, opts: opts}, nil
}

// Connector hands pool slots over one shared cluster connection. The
// cluster connection already fans out across nodes and is safe for any
// number of concurrent cursors, so pooling adds handles, not sockets.
type Connector struct {
	driver *Driver
	addrs  string
	opts   []quorum.Option

	mu   sync.Mutex
	conn *quorum.Connection
}

// Connect returns a pool slot over the shared cluster connection,
// opening it on first use.
func (c *Connector) Connect(context.Context) (driver.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		conn, err := quorum.Open(c.addrs, c.opts...)
		if err != nil {
			return nil, err
		}

		c.conn = conn
	}

	return &Conn{conn: c.conn}, nil
}

// Driver returns the driver that produced this connector.
func (c *Connector) Driver() driver.Driver {
	return c.driver
}

// Close closes the shared cluster connection. Called by sql.DB.Close.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil

	return err
}

var (
	_ driver.Conn              = (*Conn)(nil)
	_ driver.Pinger            = (*Conn)(nil)
	_ driver.Validator         = (*Conn)(nil)
	_ driver.QueryerContext    = (*Conn)(nil)
	_ driver.ExecerContext     = (*Conn)(nil)
	_ driver.NamedValueChecker = (*Conn)(nil)
)

// Conn is one pool slot. Statements run on fresh cursors, so slots
// carry no state of their own beyond the shared connection.
type Conn struct {
	conn  *quorum.Connection
	owned bool
}

// Prepare returns a statement handle. Statements are not prepared
// server-side; the handle just carries the SQL text.
func (c *Conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

// Close releases the pool slot. The shared cluster connection stays
// open for the connector unless this conn owns it.
func (c *Conn) Close() error {
	if c.owned {
		return c.conn.Close()
	}

	return nil
}

// Begin reports that transactions are unsupported.
func (c *Conn) Begin() (driver.Tx, error) {
	return nil, ErrNoTransactions
}

// Ping checks that some node in the cluster answers.
func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// IsValid keeps closed cluster connections out of the pool.
func (c *Conn) IsValid() bool {
	return !c.conn.Closed()
}

// CheckNamedValue accepts positional arguments as-is; they travel as
// JSON. Named parameters are rejected and time values become text in
// the store's convention.
func (c *Conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nv.Name != "" {
		return errors.New("stdlib: named parameters are not supported")
	}

	if t, ok := nv.Value.(time.Time); ok {
		nv.Value = t.UTC().Format(time.RFC3339Nano)
	}

	return nil
}

// QueryContext runs a read on a fresh cursor.
func (c *Conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	vals := flattenArgs(args)

	cur := c.conn.Cursor()
	if err := cur.Execute(ctx, query, vals...); err != nil {
		return nil, err
	}

	return &queryRows{item: cur.Result(), rows: cur.Rows()}, nil
}

// ExecContext runs a write on a fresh cursor.
func (c *Conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	vals := flattenArgs(args)

	cur := c.conn.Cursor()
	if err := cur.Execute(ctx, query, vals...); err != nil {
		return nil, err
	}

	return execResult{item: cur.Result()}, nil
}

func flattenArgs(args []driver.NamedValue) []any {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a.Value
	}

	return vals
}

var (
	_ driver.Stmt             = (*stmt)(nil)
	_ driver.StmtQueryContext = (*stmt)(nil)
	_ driver.StmtExecContext  = (*stmt)(nil)
)

type stmt struct {
	conn  *Conn
	query string
}

func (s *stmt) Close() error { return nil }

// NumInput reports an unknown placeholder count; the store validates
// arity when the statement runs.
func (s *stmt) NumInput() int { return -1 }

func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.ExecContext(context.Background(), promoteArgs(args))
}

func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.QueryContext(context.Background(), promoteArgs(args))
}

func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func promoteArgs(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, a := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
	}

	return named
}

var (
	_ driver.Rows                           = (*queryRows)(nil)
	_ driver.RowsColumnTypeDatabaseTypeName = (*queryRows)(nil)
)

// queryRows adapts a result item to driver.Rows. It owns its item, so
// later statements on the same pool slot cannot disturb iteration.
type queryRows struct {
	item *result.Item
	rows *result.Rows
}

func (r *queryRows) Columns() []string {
	return r.item.Columns()
}

func (r *queryRows) ColumnTypeDatabaseTypeName(index int) string {
	types := r.item.Types()
	if index >= len(types) {
		return ""
	}

	return strings.ToUpper(types[index])
}

func (r *queryRows) Close() error { return nil }

func (r *queryRows) Next(dest []driver.Value) error {
	row, ok := r.rows.FetchOne()
	if !ok {
		return io.EOF
	}

	types := r.item.Types()

	for i := range dest {
		declared := ""
		if i < len(types) {
			declared = types[i]
		}

		v, err := convertValue(row[i], declared)
		if err != nil {
			return err
		}

		dest[i] = v
	}

	return nil
}

type execResult struct {
	item *result.Item
}

// LastInsertId returns the rowid of the last insert, or zero when the
// store reported none.
func (r execResult) LastInsertId() (int64, error) {
	id, _ := r.item.LastInsertID()

	return id, nil
}

// RowsAffected returns the affected-row count, or zero when the store
// reported none.
func (r execResult) RowsAffected() (int64, error) {
	n, _ := r.item.RowsAffected()

	return n, nil
}
