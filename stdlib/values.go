package stdlib

import (
	"database/sql/driver"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayouts are tried in order when a column is declared as a time
// type. The store hands timestamps back as text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// convertValue maps one JSON cell onto a driver.Value, steered by the
// column's declared type. Declared types are advisory in SQLite, so the
// conversion is lenient: a cell that does not fit its declaration comes
// back in its JSON shape instead of failing the row.
func convertValue(raw any, declared string) (driver.Value, error) {
	if raw == nil {
		return nil, nil
	}

	declared = strings.ToLower(declared)

	switch {
	case strings.Contains(declared, "int"):
		// Affinity, not a guarantee: a fractional value can live in an
		// integer column and falls through to its JSON shape.
		if n, ok := raw.(json.Number); ok {
			if v, err := n.Int64(); err == nil {
				return v, nil
			}
		}

	case declared == "real" || declared == "float" || declared == "double" || declared == "numeric":
		if n, ok := raw.(json.Number); ok {
			v, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("stdlib: numeric column holds %q: %w", n.String(), err)
			}

			return v, nil
		}

	case declared == "boolean" || declared == "bool":
		if n, ok := raw.(json.Number); ok {
			return n.String() != "0", nil
		}

	case declared == "blob":
		if s, ok := raw.(string); ok {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err == nil {
				return decoded, nil
			}
		}

	case declared == "timestamp" || declared == "datetime" || declared == "date":
		if s, ok := raw.(string); ok {
			for _, layout := range timeLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t, nil
				}
			}
		}
	}

	return jsonShape(raw)
}

// jsonShape converts an undeclared cell by its JSON type alone.
func jsonShape(raw any) (driver.Value, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}

		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("stdlib: unreadable number %q: %w", v.String(), err)
		}

		return f, nil

	case string, bool:
		return v, nil

	default:
		return nil, fmt.Errorf("stdlib: unsupported cell type %T", raw)
	}
}
