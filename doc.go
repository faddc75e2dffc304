// Package quorum provides a resilient client for rqlite, the
// distributed SQLite database. It speaks the cluster's HTTP API and
// handles leader discovery, failover across nodes, redirect following
// and read-consistency policy so callers can treat the cluster as a
// single logical database.
//
// Quorum is designed as a library, not a service. Open a connection
// over the node addresses you know about; the client finds the rest of
// its way from there.
//
// # Quick Start
//
//	conn, err := quorum.Open("http://db1:4001,http://db2:4001,http://db3:4001",
//	    quorum.WithConsistency(wire.LevelWeak),
//	    quorum.WithBasicAuth("app", "s3cret"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	cur := conn.Cursor()
//	if err := cur.Execute(ctx, "SELECT name, age FROM users WHERE age > ?", 21); err != nil {
//	    return err
//	}
//	for row, ok := cur.FetchOne(); ok; row, ok = cur.FetchOne() {
//	    fmt.Println(row)
//	}
//
// # Architecture
//
// Statements flow through a middleware chain ([middleware.Middleware])
// into a failover walk ([cluster.TryHosts]) that visits every node in
// randomized order with a bounded budget per host. Leader redirects are
// followed by hand up to a hop budget; a node that reports a stale read
// at [wire.LevelNone] gets the statement retried once at
// [wire.LevelWeak].
//
// Consistency is configured once at [Open] and overridden per call
// scope through the context ([ContextWithConsistency],
// [ContextWithFreshness]); a [Connection] never changes under its
// cursors.
//
// All connection and request IDs use TypeID: type-prefixed, K-sortable,
// UUIDv7-based identifiers that tie a client log line, a trace span and
// a server-side request record together.
package quorum
