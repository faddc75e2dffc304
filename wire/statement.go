package wire

import (
	"encoding/json"
	"fmt"
)

// Statement is a single parameterized SQL statement in wire form. It
// marshals to the tuple shape the protocol expects: a JSON array whose
// first element is the SQL text followed by its bound arguments.
type Statement struct {
	SQL  string
	Args []any
}

// NewStatement builds a Statement from SQL text and bound arguments.
func NewStatement(sql string, args ...any) Statement {
	return Statement{SQL: sql, Args: args}
}

// MarshalJSON implements json.Marshaler, encoding `["sql", arg1, ...]`.
func (s Statement) MarshalJSON() ([]byte, error) {
	tuple := make([]any, 0, len(s.Args)+1)
	tuple = append(tuple, s.SQL)
	tuple = append(tuple, s.Args...)

	data, err := json.Marshal(tuple)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal statement: %w", err)
	}

	return data, nil
}

// EncodeBody encodes a batch of statements as the request body. A
// single statement still produces a one-element outer array.
func EncodeBody(stmts []Statement) ([]byte, error) {
	if stmts == nil {
		stmts = []Statement{}
	}

	data, err := json.Marshal(stmts)
	if err != nil {
		return nil, fmt.Errorf("wire: encode body: %w", err)
	}

	return data, nil
}
