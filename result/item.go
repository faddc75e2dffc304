package result

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Kind tags the shape of a parsed Item.
type Kind int

const (
	KindRead Kind = iota
	KindWrite
	KindError
)

// String returns a label for logs.
func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindError:
		return "error"
	default:
		return "write"
	}
}

// Item is one statement's parsed result. The kind is decided once by
// ParseItem and the field set for the other kinds stays zero.
type Item struct {
	kind Kind

	columns []string
	types   []string
	values  [][]any

	lastInsertID *int64
	rowsAffected *int64

	err *DBError
}

// itemJSON mirrors the per-statement result object. Values is a pointer
// so that a present-but-empty matrix is distinguishable from an absent
// key: presence of "values" is what makes a result a read.
type itemJSON struct {
	Columns      []string `json:"columns"`
	Types        []string `json:"types"`
	Values       *[][]any `json:"values"`
	LastInsertID *int64   `json:"last_insert_id"`
	RowsAffected *int64   `json:"rows_affected"`
	Error        *string  `json:"error"`
}

// ParseItem decodes one raw result object into an Item.
//
// An object with an "error" key is an error item. Otherwise an object
// with a "values" key is a read item whose rows are the matrix.
// Everything else is a write item; rows_affected and last_insert_id are
// both optional, since a write touching zero rows reports neither.
// Numbers inside the value matrix are decoded as json.Number so large
// integer columns survive undamaged.
func ParseItem(raw json.RawMessage) (*Item, error) {
	var obj itemJSON

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("result: parse item: %w", err)
	}

	if obj.Error != nil {
		return &Item{kind: KindError, err: NewDBError(*obj.Error)}, nil
	}

	item := &Item{
		columns: obj.Columns,
		types:   obj.Types,
	}

	if obj.Values != nil {
		item.kind = KindRead
		item.values = *obj.Values

		return item, nil
	}

	item.kind = KindWrite
	item.lastInsertID = obj.LastInsertID
	item.rowsAffected = obj.RowsAffected

	return item, nil
}

// Kind returns the item's tag.
func (it *Item) Kind() Kind {
	return it.kind
}

// Values returns the raw row matrix of a read item, nil otherwise.
// The slice is owned by the item; callers must not mutate it.
func (it *Item) Values() [][]any {
	return it.values
}

// NumRows returns the number of rows carried by the item. Zero for
// writes and errors.
func (it *Item) NumRows() int {
	return len(it.values)
}

// Columns returns the column names reported with the result, when the
// store included them.
func (it *Item) Columns() []string {
	return it.columns
}

// Types returns the declared column types reported with the result.
func (it *Item) Types() []string {
	return it.types
}

// LastInsertID returns the rowid assigned by an insert, if reported.
func (it *Item) LastInsertID() (int64, bool) {
	if it.lastInsertID == nil {
		return 0, false
	}

	return *it.lastInsertID, true
}

// RowsAffected returns the number of rows changed by a write, if
// reported.
func (it *Item) RowsAffected() (int64, bool) {
	if it.rowsAffected == nil {
		return 0, false
	}

	return *it.rowsAffected, true
}

// Err returns the statement error carried by an error item, nil for
// read and write items.
func (it *Item) Err() error {
	if it.err == nil {
		return nil
	}

	return it.err
}

// DBErr returns the typed statement error, nil for read and write
// items.
func (it *Item) DBErr() *DBError {
	return it.err
}

// Cursor returns a fresh cursor positioned before the first row.
func (it *Item) Cursor() *Rows {
	return &Rows{item: it}
}
