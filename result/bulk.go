package result

import (
	"encoding/json"
	"fmt"
)

// Bulk is the ordered sequence of per-statement items produced by a
// batch request. It indexes and ranges like any slice.
type Bulk []*Item

// ParseBulk decodes the raw per-statement results of an envelope.
func ParseBulk(raws []json.RawMessage) (Bulk, error) {
	bulk := make(Bulk, 0, len(raws))

	for i, raw := range raws {
		item, err := ParseItem(raw)
		if err != nil {
			return nil, fmt.Errorf("result: statement %d: %w", i, err)
		}

		bulk = append(bulk, item)
	}

	return bulk, nil
}

// Err returns the first statement error in the batch, annotated with
// the statement's index, or nil when every statement succeeded.
func (b Bulk) Err() error {
	return b.ErrBefore(len(b))
}

// ErrBefore returns the first statement error among items with index
// less than idx. Callers replaying a partially applied batch use it to
// ignore errors at or past the replay point.
func (b Bulk) ErrBefore(idx int) error {
	if idx > len(b) {
		idx = len(b)
	}

	for i := 0; i < idx; i++ {
		if dbErr := b[i].DBErr(); dbErr != nil {
			return dbErr.WithHint(fmt.Sprintf("statement %d", i))
		}
	}

	return nil
}
