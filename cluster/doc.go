// Package cluster provides node addressing, host failover, and leader
// discovery for a Raft-replicated SQL cluster reached over HTTP.
//
// The cluster is a set of nodes, any of which may serve a request and
// one of which is the Raft leader at a given moment. This package
// decides which node to talk to and what to do when one fails; it does
// not interpret responses beyond their transport-level outcome.
//
// # Nodes and the address book
//
// Each member is a [Node]: scheme, host, explicit port and optional
// basic-auth credentials, immutable once parsed. The [AddressBook]
// holds the fixed, ordered node set a connection was opened with.
// Nothing in this package mutates the book after construction, which
// is what makes concurrent executions over it safe without locks.
//
// # Failover
//
// [TryHosts] drives a per-host attempt function over the book: a
// random starting node, then the remaining hosts in a shuffled ring,
// wrapping until a per-host attempt budget is exhausted. The attempt
// function reports one of three outcomes: [Stop] with a value,
// [Continue] with the reason this host is unusable, or [Fatal] for
// errors that must abort the search. Exhaustion returns a
// [*MaxAttemptsError] carrying the full (host, reason) trail.
//
// # Leader discovery
//
// [Locator.DiscoverLeader] probes hosts with a lightweight
// redirect-requesting read. A follower answers with a redirect whose
// Location names the leader; a node that answers 2xx serves directly.
// Either ends the search with a usable node.
package cluster
