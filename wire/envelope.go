package wire

import (
	"encoding/json"
	"fmt"
	"io"
)

// Envelope is the top-level response shape. A successful request
// carries one result object per submitted statement, preserved here in
// raw form for the result package to interpret. A cluster-level failure
// (a node that cannot serve at the requested consistency, an
// unparseable request) instead carries a top-level error string.
type Envelope struct {
	Results []json.RawMessage `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// DecodeEnvelope reads and decodes a response body.
func DecodeEnvelope(r io.Reader) (*Envelope, error) {
	var env Envelope

	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("wire: decode envelope: %w", err)
	}

	return &env, nil
}
