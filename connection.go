package quorum

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/quorum/backoff"
	"github.com/xraph/quorum/cluster"
	"github.com/xraph/quorum/id"
	"github.com/xraph/quorum/middleware"
	"github.com/xraph/quorum/result"
	"github.com/xraph/quorum/wire"
)

// HeaderRequestID is the header under which every HTTP call carries its
// request ID, so server-side logs can be joined with client-side ones.
const HeaderRequestID = "X-Quorum-Request-Id"

// Connection is a logical handle over a cluster. It owns the address
// book, the failover executor and the middleware chain; any number of
// cursors can execute through it concurrently. Configuration is fixed
// at Open; per-call deviations go through context overrides
// ([ContextWithConsistency], [ContextWithFreshness]) instead of mutating
// the connection.
type Connection struct {
	config Config
	book   *cluster.AddressBook
	logger *slog.Logger

	executor *cluster.Executor
	locator  *cluster.Locator
	client   *http.Client
	chain    middleware.Middleware
	connID   id.ConnectionID

	// Collected by options, consumed once by Open.
	httpClient   *http.Client
	username     string
	password     string
	userMW       []middleware.Middleware
	retryBackoff backoff.Strategy
	limiter      *rate.Limiter

	closed atomic.Bool
}

// Open connects to a cluster described by a comma-separated list of
// node addresses, such as "http://db1:4001,http://db2:4001". Bare
// host[:port] entries default to http on port 4001. Open does not
// contact the cluster; the first statement does.
func Open(addrs string, opts ...Option) (*Connection, error) {
	book, err := cluster.ParseAddressBook(addrs)
	if err != nil {
		return nil, fmt.Errorf("quorum: open: %w", err)
	}

	c := &Connection{
		config: DefaultConfig(),
		book:   book,
		logger: slog.Default(),
		connID: id.NewConnectionID(),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("quorum: open: %w", err)
		}
	}

	if c.username != "" || c.password != "" {
		nodes := c.book.Nodes()
		for i := range nodes {
			if !nodes[i].HasCredentials() {
				nodes[i].Username = c.username
				nodes[i].Password = c.password
			}
		}

		c.book, err = cluster.NewAddressBook(nodes)
		if err != nil {
			return nil, fmt.Errorf("quorum: open: %w", err)
		}
	}

	// Redirects carry failover and budget semantics here, so the
	// transport must hand them back instead of chasing them itself.
	// The caller's client is copied, not mutated.
	base := c.httpClient
	if base == nil {
		base = &http.Client{}
	}

	httpc := *base
	httpc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	c.client = &httpc

	exOpts := []cluster.ExecutorOption{
		cluster.WithMaxAttempts(c.config.MaxAttemptsPerHost),
		cluster.WithLogger(c.logger),
	}
	if c.retryBackoff != nil {
		exOpts = append(exOpts, cluster.WithBackoff(c.retryBackoff))
	}

	c.executor = cluster.NewExecutor(c.book, exOpts...)
	c.locator = cluster.NewLocator(c.executor, c.client, c.logger)

	mws := make([]middleware.Middleware, 0, 3+len(c.userMW))
	mws = append(mws, middleware.Recover(c.logger), middleware.Timeout(c.logger))
	if c.config.SlowQueryThreshold > 0 {
		mws = append(mws, middleware.SlowQuery(c.logger, c.config.SlowQueryThreshold))
	}
	mws = append(mws, c.userMW...)
	c.chain = middleware.Chain(mws...)

	c.logger.Info("connection opened",
		slog.String("conn_id", c.connID.String()),
		slog.Int("nodes", c.book.Len()),
		slog.String("consistency", c.config.Consistency.String()),
	)

	return c, nil
}

// Close releases the connection. It is safe to call more than once;
// every operation after the first Close fails with [ErrClosed].
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	c.client.CloseIdleConnections()
	c.logger.Debug("connection closed", slog.String("conn_id", c.connID.String()))

	return nil
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool { return c.closed.Load() }

// ID returns the connection's identifier.
func (c *Connection) ID() id.ConnectionID { return c.connID }

// Config returns a copy of the connection's configuration.
func (c *Connection) Config() Config { return c.config }

// Logger returns the connection's logger.
func (c *Connection) Logger() *slog.Logger { return c.logger }

// Nodes returns the members of the connection's address book.
func (c *Connection) Nodes() []cluster.Node { return c.book.Nodes() }

// Cursor creates an independent cursor over this connection. Cursors
// are cheap; use one per unit of work. A single cursor must not be
// shared by concurrent calls, the connection may be.
func (c *Connection) Cursor() *Cursor {
	return &Cursor{conn: c}
}

// Execute runs one statement on a throwaway cursor with the
// connection's defaults. See [Cursor.Execute].
func (c *Connection) Execute(ctx context.Context, sql string, args ...any) error {
	return c.Cursor().Execute(ctx, sql, args...)
}

// ExecuteResult runs one statement on a throwaway cursor and returns
// the result item even when it carries a statement-level error. See
// [Cursor.ExecuteResult].
func (c *Connection) ExecuteResult(ctx context.Context, sql string, args ...any) (*result.Item, error) {
	return c.Cursor().ExecuteResult(ctx, sql, args...)
}

// Leader discovers the node currently leading the cluster. The result
// is not cached: leadership moves, and callers that want a fresh answer
// should ask again.
func (c *Connection) Leader(ctx context.Context) (cluster.Node, error) {
	if c.closed.Load() {
		return cluster.Node{}, ErrClosed
	}

	return c.locator.DiscoverLeader(ctx)
}

// Ping reports whether any node in the address book answers its status
// endpoint. It exercises the same failover walk as statements do.
func (c *Connection) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClosed
	}

	_, err := cluster.TryHosts(ctx, c.executor, func(ctx context.Context, node cluster.Node) cluster.Outcome[struct{}] {
		resp, served, _, err := c.doFollow(ctx, http.MethodGet, node, wire.PathStatus, nil, "")
		if err != nil {
			return failureOutcome[struct{}](err)
		}
		defer closeBody(resp)

		if resp.StatusCode != http.StatusOK {
			return cluster.Continue[struct{}](&cluster.UnexpectedResponseError{Node: served, Status: resp.StatusCode})
		}

		return cluster.Stop(struct{}{})
	})

	return err
}

// Backup streams a snapshot of the database into w and returns the
// number of bytes written. The leader is preferred as the starting
// node when discovery succeeds. A failure once the stream has started
// is terminal rather than retried: w may already hold partial data,
// and appending a second copy would corrupt it.
func (c *Connection) Backup(ctx context.Context, w io.Writer, format wire.BackupFormat) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClosed
	}

	var tryOpts []cluster.TryOption

	if leader, err := c.locator.DiscoverLeader(ctx); err == nil {
		tryOpts = append(tryOpts, cluster.WithInitialNode(leader))
	} else {
		c.logger.Debug("backup: leader discovery failed, walking the address book",
			slog.Any("reason", err),
		)
	}

	reqID := id.NewRequestID()
	path := wire.BackupPath(format)

	n, err := cluster.TryHosts(ctx, c.executor, func(ctx context.Context, node cluster.Node) cluster.Outcome[int64] {
		resp, served, _, err := c.doFollow(ctx, http.MethodGet, node, path, nil, reqID.String())
		if err != nil {
			return failureOutcome[int64](err)
		}
		defer closeBody(resp)

		if resp.StatusCode != http.StatusOK {
			return cluster.Continue[int64](&cluster.UnexpectedResponseError{Node: served, Status: resp.StatusCode})
		}

		written, copyErr := io.Copy(w, resp.Body)
		if copyErr != nil {
			return cluster.Fatal[int64](fmt.Errorf("quorum: backup stream after %d bytes: %w", written, copyErr))
		}

		return cluster.Stop(written)
	}, tryOpts...)
	if err != nil {
		return 0, err
	}

	c.logger.Info("backup complete",
		slog.String("request_id", reqID.String()),
		slog.String("format", format.String()),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// readPolicy resolves the consistency level and freshness bound for a
// read, letting context overrides win over connection defaults.
func (c *Connection) readPolicy(ctx context.Context) (wire.Level, time.Duration) {
	level := c.config.Consistency
	if override, ok := ConsistencyFrom(ctx); ok {
		level = override
	}

	freshness := c.config.Freshness
	if override, ok := FreshnessFrom(ctx); ok {
		freshness = override
	}

	return level, freshness
}

// doFollow issues one request against node and follows leader redirects
// by hand, up to the configured hop budget. It returns the first
// non-redirect response together with the node that produced it and the
// number of hops taken. Failures come back as *cluster.ConnectError,
// *cluster.UnexpectedResponseError or *cluster.MaxRedirectsError so the
// caller can map them onto the host walk.
func (c *Connection) doFollow(ctx context.Context, method string, node cluster.Node, path string, body []byte, reqID string) (*http.Response, cluster.Node, int, error) {
	target := node

	var trail []string

	for {
		var rdr io.Reader
		if body != nil {
			rdr = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, target.BaseURL()+path, rdr)
		if err != nil {
			return nil, target, len(trail), fmt.Errorf("quorum: build request: %w", err)
		}

		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if reqID != "" {
			req.Header.Set(HeaderRequestID, reqID)
		}
		if target.HasCredentials() {
			req.SetBasicAuth(target.Username, target.Password)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, target, len(trail), &cluster.ConnectError{Node: target, Err: err}
		}

		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return resp, target, len(trail), nil
		}

		next, err := cluster.RedirectTarget(resp, target)
		closeBody(resp)
		if err != nil {
			return nil, target, len(trail), &cluster.UnexpectedResponseError{Node: target, Status: resp.StatusCode}
		}

		trail = append(trail, next.BaseURL())
		if len(trail) > c.config.MaxRedirects {
			return nil, target, len(trail), &cluster.MaxRedirectsError{Node: node, RedirectPath: trail}
		}

		c.logger.Debug("following redirect",
			slog.String("from", target.HostPort()),
			slog.String("to", next.HostPort()),
			slog.Int("hop", len(trail)),
		)

		target = next
	}
}

// failureOutcome maps a doFollow failure onto the host walk. An
// exhausted redirect budget means the cluster keeps pointing at a
// leader we cannot reach in bounds, so the walk aborts; anything else
// moves on to the next host.
func failureOutcome[T any](err error) cluster.Outcome[T] {
	var redirects *cluster.MaxRedirectsError
	if errors.As(err, &redirects) {
		return cluster.Fatal[T](err)
	}

	return cluster.Continue[T](err)
}

// closeBody drains and closes a response body so the transport can keep
// the underlying connection alive.
func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
