package result

import "strings"

// DBError is an error reported by the store itself, either per
// statement or at the envelope level. Message is the display text,
// including any call-site hint; Raw is the untouched message from the
// store and is what the classification helpers inspect.
type DBError struct {
	Message string
	Raw     string
}

// NewDBError builds a DBError whose display and raw text are the same
// store-reported message.
func NewDBError(raw string) *DBError {
	return &DBError{Message: raw, Raw: raw}
}

func (e *DBError) Error() string {
	return e.Message
}

// WithHint returns a copy whose display message is prefixed with hint.
// The raw message is preserved so classification keeps working.
func (e *DBError) WithHint(hint string) *DBError {
	if hint == "" {
		return e
	}

	return &DBError{Message: hint + ": " + e.Raw, Raw: e.Raw}
}

// IsStale reports whether the store rejected a read for staleness.
// Only happens at none consistency with a freshness bound.
func (e *DBError) IsStale() bool {
	return e.Raw == "stale read"
}

// IsUnique reports a UNIQUE constraint violation.
func (e *DBError) IsUnique() bool {
	return strings.Contains(e.Raw, "UNIQUE constraint failed")
}

// IsForeignKey reports a FOREIGN KEY constraint violation.
func (e *DBError) IsForeignKey() bool {
	return strings.Contains(e.Raw, "FOREIGN KEY constraint failed")
}

// IsSyntax reports a SQL syntax error.
func (e *DBError) IsSyntax() bool {
	return strings.Contains(e.Raw, "syntax error")
}
