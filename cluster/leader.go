package cluster

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/xraph/quorum/wire"
)

// Doer issues a single HTTP request. Implementations must not follow
// redirects themselves; redirect handling is this package's job.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Locator discovers which node currently leads the cluster.
//
// Discovery exploits write-redirect semantics: a follower asked for a
// redirecting read answers 3xx with the leader's address in Location,
// while the leader itself answers 2xx. Either way one probe on a
// healthy node resolves the question.
type Locator struct {
	ex     *Executor
	client Doer
	logger *slog.Logger
}

// NewLocator builds a Locator probing through client.
func NewLocator(ex *Executor, client Doer, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Locator{ex: ex, client: client, logger: logger}
}

// DiscoverLeader probes hosts until one reveals the leader. The
// returned node is either a book member that answered 2xx or the
// target of a redirect, which may lie outside the book.
func (l *Locator) DiscoverLeader(ctx context.Context) (Node, error) {
	body, err := wire.EncodeBody([]wire.Statement{wire.NewStatement("SELECT 1")})
	if err != nil {
		return Node{}, err
	}

	leader, err := TryHosts(ctx, l.ex, func(ctx context.Context, node Node) Outcome[Node] {
		return l.probe(ctx, node, body)
	})
	if err != nil {
		return Node{}, err
	}

	l.logger.Debug("leader discovered", slog.String("node", leader.String()))

	return leader, nil
}

func (l *Locator) probe(ctx context.Context, node Node, body []byte) Outcome[Node] {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, node.BaseURL()+wire.ProbePath(), bytes.NewReader(body))
	if err != nil {
		return Fatal[Node](err)
	}

	req.Header.Set("Content-Type", "application/json")

	if node.HasCredentials() {
		req.SetBasicAuth(node.Username, node.Password)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return Continue[Node](&ConnectError{Node: node, Err: err})
	}
	defer drain(resp)

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		leader, err := RedirectTarget(resp, node)
		if err != nil {
			return Continue[Node](&UnexpectedResponseError{Node: node, Status: resp.StatusCode})
		}

		return Stop(leader)

	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return Stop(node)

	default:
		return Continue[Node](&UnexpectedResponseError{Node: node, Status: resp.StatusCode})
	}
}

// RedirectTarget resolves a redirect response's Location header into a
// node. Redirect targets name no credentials of their own; the cluster
// shares one credential set, so from's are reused when the target lacks
// them.
func RedirectTarget(resp *http.Response, from Node) (Node, error) {
	loc, err := resp.Location()
	if err != nil {
		return Node{}, fmt.Errorf("cluster: redirect from %s: %w", from.HostPort(), err)
	}

	target, err := nodeFromURL(loc)
	if err != nil {
		return Node{}, fmt.Errorf("cluster: redirect from %s: %w", from.HostPort(), err)
	}

	if !target.HasCredentials() && from.HasCredentials() {
		target.Username = from.Username
		target.Password = from.Password
	}

	return target, nil
}

// drain consumes and closes a response body so the transport can reuse
// the connection.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
