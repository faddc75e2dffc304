// Package result models the outcome of executed statements.
//
// # Items
//
// Each statement submitted to the cluster produces one result object in
// the response envelope. ParseItem decides its shape exactly once, as a
// tagged union:
//
//   - KindRead: carries a value matrix plus column names and types
//   - KindWrite: optionally carries rows_affected and last_insert_id
//     (a no-op write carries neither)
//   - KindError: carries a statement-level *DBError
//
// The tag never changes after parsing; callers switch on Kind instead
// of probing for fields.
//
// # Cursors
//
// Item.Cursor returns a monotonic cursor over a read item's rows with
// FetchOne, FetchMany and FetchAll. The cursor index only ever
// advances; a fresh cursor is the way to re-read.
//
// # Bulk results
//
// Bulk wraps the ordered per-statement items of a batch. Err surfaces
// the first statement error (annotated with its index); ErrBefore
// bounds the scan, which transactional callers use to distinguish "the
// batch failed at statement N" from "statement N itself reported".
package result
