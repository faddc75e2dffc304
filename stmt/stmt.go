// Package stmt classifies SQL statements and prepares their parameters
// for the cluster wire format.
//
// Classification looks only at the leading command keyword (resolving
// WITH common-table-expression prefixes to the statement they wrap) and
// never parses SQL beyond that. Parameter preparation splices NULL
// arguments into the statement text, since the wire protocol has no way
// to bind a null through a positional placeholder.
package stmt

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Command is the leading SQL keyword of a statement, uppercased.
type Command string

// Commands with classification significance. Classify returns arbitrary
// uppercased keywords (CREATE, PRAGMA, VACUUM, ...); only these two are
// treated as reads.
const (
	CommandSelect  Command = "SELECT"
	CommandExplain Command = "EXPLAIN"
)

// IsRead reports whether the command is served by the query endpoint.
// SELECT and EXPLAIN are reads; everything else is a write.
func (c Command) IsRead() bool {
	return c == CommandSelect || c == CommandExplain
}

// Kind partitions a batch of statements for unified dispatch.
type Kind int

const (
	// KindWrite marks a batch containing at least one non-read statement.
	KindWrite Kind = iota

	// KindReadOnly marks a batch where every statement is a read.
	KindReadOnly
)

// String returns the request-type label used on the wire.
func (k Kind) String() string {
	if k == KindReadOnly {
		return "readonly"
	}

	return "write"
}

// InvalidCommandError reports a SQL string whose leading command could
// not be determined.
type InvalidCommandError struct {
	SQL string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("stmt: cannot determine command for %q", e.SQL)
}

// withClause matches one-or-more CTE definitions after WITH, each of the
// form `name [(cols)] AS [[NOT] MATERIALIZED] (body)`, followed by the
// statement keyword the expression wraps. Bodies may nest parentheses;
// the engine resolves the split that lets the trailing keyword match.
var withClause = regexp.MustCompile(
	`(?is)^\s*WITH\s+(?:RECURSIVE\s+)?` +
		`(?:[A-Za-z_][A-Za-z0-9_]*(?:\s*\([^)]*\))?\s+AS\s+(?:(?:NOT\s+)?MATERIALIZED\s+)?\(.*\)\s*,?\s*)+` +
		`(INSERT|UPDATE|DELETE|SELECT)\b`)

// Classify returns the command that leads the statement.
//
// The command is the token up to the first whitespace, uppercased. A
// statement starting with WITH is resolved to the INSERT, UPDATE,
// DELETE or SELECT its expression wraps. Returns *InvalidCommandError
// when no token can be extracted or the WITH form does not parse.
func Classify(sql string) (Command, error) {
	trimmed := strings.TrimLeftFunc(sql, unicode.IsSpace)

	end := strings.IndexFunc(trimmed, unicode.IsSpace)
	if end < 0 {
		return "", &InvalidCommandError{SQL: sql}
	}

	head := Command(strings.ToUpper(trimmed[:end]))
	if head != "WITH" {
		return head, nil
	}

	m := withClause.FindStringSubmatch(trimmed)
	if m == nil {
		return "", &InvalidCommandError{SQL: sql}
	}

	return Command(strings.ToUpper(m[1])), nil
}

// BatchKind classifies every statement in the batch and reports whether
// the batch as a whole is read-only. Any statement that fails to
// classify fails the batch.
func BatchKind(sqls []string) (Kind, error) {
	for _, sql := range sqls {
		cmd, err := Classify(sql)
		if err != nil {
			return KindWrite, err
		}

		if !cmd.IsRead() {
			return KindWrite, nil
		}
	}

	return KindReadOnly, nil
}

// Placeholder expansion failures.
var (
	ErrQuotedPlaceholder  = errors.New("stmt: placeholder inside quoted literal")
	ErrEscapedPlaceholder = errors.New("stmt: escaped placeholder")
	ErrTooFewArgs         = errors.New("stmt: more placeholders than arguments")
	ErrTooManyArgs        = errors.New("stmt: more arguments than placeholders")
)

// ExpandNulls rewrites nil arguments into inline NULL literals.
//
// When no argument is nil the statement and arguments are returned
// unchanged. Otherwise the SQL is scanned rune by rune, tracking
// single-quote, double-quote and backslash-escape state; each bare `?`
// consumes the next argument, and a nil argument replaces the
// placeholder with the literal NULL and is dropped from the returned
// argument list. A `?` inside a quoted literal or behind a backslash is
// rejected as ambiguous, as is any placeholder/argument count mismatch.
func ExpandNulls(sql string, args []any) (string, []any, error) {
	if !anyNil(args) {
		return sql, args, nil
	}

	var (
		out      strings.Builder
		kept     = make([]any, 0, len(args))
		next     int
		inSingle bool
		inDouble bool
		escaped  bool
	)

	out.Grow(len(sql))

	for i, r := range sql {
		if escaped {
			if r == '?' {
				return "", nil, fmt.Errorf("%w at offset %d", ErrEscapedPlaceholder, i)
			}

			escaped = false
			out.WriteRune(r)

			continue
		}

		switch r {
		case '\\':
			escaped = true
			out.WriteRune(r)
		case '\'':
			if !inDouble {
				inSingle = !inSingle
			}

			out.WriteRune(r)
		case '"':
			if !inSingle {
				inDouble = !inDouble
			}

			out.WriteRune(r)
		case '?':
			if inSingle || inDouble {
				return "", nil, fmt.Errorf("%w at offset %d", ErrQuotedPlaceholder, i)
			}

			if next >= len(args) {
				return "", nil, fmt.Errorf("%w: %d placeholder(s) past argument %d", ErrTooFewArgs, next+1, len(args))
			}

			if args[next] == nil {
				out.WriteString("NULL")
			} else {
				out.WriteRune(r)
				kept = append(kept, args[next])
			}

			next++
		default:
			out.WriteRune(r)
		}
	}

	if next != len(args) {
		return "", nil, fmt.Errorf("%w: %d argument(s) for %d placeholder(s)", ErrTooManyArgs, len(args), next)
	}

	return out.String(), kept, nil
}

func anyNil(args []any) bool {
	for _, a := range args {
		if a == nil {
			return true
		}
	}

	return false
}
