package result

// Rows is a monotonic cursor over a read item's rows. The position
// only ever advances; it is never reset. Not safe for concurrent use.
type Rows struct {
	item *Item
	pos  int
}

// Columns returns the column names of the underlying item.
func (r *Rows) Columns() []string {
	return r.item.columns
}

// Types returns the declared column types of the underlying item.
func (r *Rows) Types() []string {
	return r.item.types
}

// FetchOne returns the next row and advances the cursor by one. The
// second return is false once the rows are exhausted.
func (r *Rows) FetchOne() ([]any, bool) {
	if r.pos >= len(r.item.values) {
		return nil, false
	}

	row := r.item.values[r.pos]
	r.pos++

	return row, true
}

// FetchMany returns up to n rows and advances the cursor by the number
// returned. n <= 0 means all remaining rows.
func (r *Rows) FetchMany(n int) [][]any {
	remaining := len(r.item.values) - r.pos
	if remaining <= 0 {
		return nil
	}

	if n <= 0 || n > remaining {
		n = remaining
	}

	rows := r.item.values[r.pos : r.pos+n]
	r.pos += n

	return rows
}

// FetchAll drains and returns every remaining row.
func (r *Rows) FetchAll() [][]any {
	return r.FetchMany(0)
}

// Remaining returns how many rows are left to fetch.
func (r *Rows) Remaining() int {
	if n := len(r.item.values) - r.pos; n > 0 {
		return n
	}

	return 0
}
