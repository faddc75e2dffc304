package quorum

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/xraph/quorum/backoff"
	"github.com/xraph/quorum/middleware"
	"github.com/xraph/quorum/wire"
)

// Option configures a Connection.
type Option func(*Connection) error

// WithConsistency sets the default read-consistency level.
func WithConsistency(level wire.Level) Option {
	return func(c *Connection) error {
		if level < wire.LevelNone || level > wire.LevelStrong {
			return fmt.Errorf("quorum: invalid consistency level %d", int(level))
		}
		c.config.Consistency = level
		return nil
	}
}

// WithFreshness sets the default staleness bound for none-level reads.
func WithFreshness(d time.Duration) Option {
	return func(c *Connection) error {
		if d < 0 {
			return fmt.Errorf("quorum: negative freshness %v", d)
		}
		c.config.Freshness = d
		return nil
	}
}

// WithMaxRedirects sets the redirect-hop budget per host attempt.
func WithMaxRedirects(n int) Option {
	return func(c *Connection) error {
		if n < 0 {
			return fmt.Errorf("quorum: negative redirect budget %d", n)
		}
		c.config.MaxRedirects = n
		return nil
	}
}

// WithMaxAttemptsPerHost sets how many failover passes each host gets.
func WithMaxAttemptsPerHost(n int) Option {
	return func(c *Connection) error {
		if n < 1 {
			return fmt.Errorf("quorum: attempt budget %d below 1", n)
		}
		c.config.MaxAttemptsPerHost = n
		return nil
	}
}

// WithOperationTimeout bounds each execution end to end, failover
// retries included. Zero disables the bound.
func WithOperationTimeout(d time.Duration) Option {
	return func(c *Connection) error {
		if d < 0 {
			return fmt.Errorf("quorum: negative operation timeout %v", d)
		}
		c.config.OperationTimeout = d
		return nil
	}
}

// WithSlowQueryThreshold enables slow-statement warnings for executions
// that take longer than d.
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(c *Connection) error {
		if d < 0 {
			return fmt.Errorf("quorum: negative slow-query threshold %v", d)
		}
		c.config.SlowQueryThreshold = d
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for all node traffic. The
// connection installs its own redirect policy on a copy; redirects must
// surface to the failover layer rather than being followed silently.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Connection) error {
		if client == nil {
			return fmt.Errorf("quorum: nil http client")
		}
		c.httpClient = client
		return nil
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Connection) error {
		if logger == nil {
			return fmt.Errorf("quorum: nil logger")
		}
		c.logger = logger
		return nil
	}
}

// WithBasicAuth applies one credential set to every node that does not
// carry its own inline credentials.
func WithBasicAuth(username, password string) Option {
	return func(c *Connection) error {
		c.username = username
		c.password = password
		return nil
	}
}

// WithMiddleware appends middleware to the execution chain. Appended
// middleware run inside the built-in recover/timeout/slow-query wrappers
// and directly around the network call.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Connection) error {
		c.userMW = append(c.userMW, mws...)
		return nil
	}
}

// WithRetryBackoff sets the delay strategy applied between failover
// passes over the address book. The default applies no delay.
func WithRetryBackoff(s backoff.Strategy) Option {
	return func(c *Connection) error {
		if s == nil {
			return fmt.Errorf("quorum: nil backoff strategy")
		}
		c.retryBackoff = s
		return nil
	}
}

// WithRateLimit caps sustained statement throughput at rps executions
// per second with the given burst. Executions block until the limiter
// admits them or their context ends.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Connection) error {
		if rps <= 0 {
			return fmt.Errorf("quorum: rate limit %v not positive", rps)
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		return nil
	}
}
