package quorum

import "github.com/xraph/quorum/id"

// ID is the identifier type for all quorum entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// RequestID identifies one logical statement execution across retries,
// redirects and log lines.
type RequestID = id.RequestID

// ConnectionID identifies one Connection for the duration of the
// process.
type ConnectionID = id.ConnectionID
