package cluster

import (
	"fmt"
	"strings"
)

// ConnectError is a transport-level failure reaching a node: refused
// connection, DNS failure, timeout. Always a continue-to-next-host
// condition inside TryHosts.
type ConnectError struct {
	Node Node
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("cluster: connect %s: %v", e.Node, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// UnexpectedResponseError is an HTTP status that is neither a success
// nor a redirect.
type UnexpectedResponseError struct {
	Node   Node
	Status int
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("cluster: unexpected response from %s: status %d", e.Node, e.Status)
}

// MaxRedirectsError reports a redirect chain that exceeded the hop
// budget. RedirectPath holds every Location followed, in order.
type MaxRedirectsError struct {
	Node         Node
	RedirectPath []string
}

func (e *MaxRedirectsError) Error() string {
	return fmt.Sprintf("cluster: too many redirects starting at %s: %s",
		e.Node, strings.Join(e.RedirectPath, " -> "))
}

// NodeError is one entry in a failover trail: the node tried and the
// reason it was passed over.
type NodeError struct {
	Node Node
	Err  error
}

func (e NodeError) String() string {
	return fmt.Sprintf("%s: %v", e.Node, e.Err)
}

// NodePath is the ordered trail of failed attempts accumulated during
// a TryHosts walk.
type NodePath []NodeError

func (p NodePath) String() string {
	parts := make([]string, len(p))
	for i, e := range p {
		parts[i] = e.String()
	}

	return strings.Join(parts, "; ")
}

// MaxAttemptsError reports that every host was tried up to the
// attempt budget without success. Path carries the full trail for
// diagnostics.
type MaxAttemptsError struct {
	Path NodePath
}

func (e *MaxAttemptsError) Error() string {
	return fmt.Sprintf("cluster: all hosts exhausted after %d attempts: %s", len(e.Path), e.Path)
}
