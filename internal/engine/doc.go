// Package engine evaluates a normalized query against an immutable table.
//
// Evaluate is a pure function of (table, query): it holds no state between
// calls, never mutates the table and returns freshly allocated result rows.
// Calling it twice with the same inputs yields identical output.
//
// # Evaluation Order
//
//  1. Alias rewrite: convenience filter keys become ranges (queryir.Rules)
//  2. Validation: every referenced column must exist; sort direction and
//     range operators must be known
//  3. Filter pass: equality / set membership, one pass over the rows
//  4. Range pass: inequality bounds, one pass over the survivors
//  5. Search pass: free-text match over string columns (optional)
//  6. Stable sort, then offset and limit
//
// Candidate rows are tracked as roaring bitmaps of row positions, so the
// surviving set is always iterated in load order before sorting.
//
// # Recoverable Problems
//
// A range bound that cannot be converted to the column's type (for example
// an unparsable date) does not fail the query. The offending operator is
// skipped, a Warning is attached to the Result and the problem is logged.
//
// # Empty Tables
//
// A table with zero rows answers every query with zero rows and a total of
// zero, without validating the query. This keeps a failed load (which
// yields an empty table) from turning every request into an error.
package engine
