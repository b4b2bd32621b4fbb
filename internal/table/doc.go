// Package table provides the immutable in-memory dataset that queries run
// against.
//
// A Table is an ordered list of rows sharing a fixed, ordered list of typed
// columns. Column types are inferred once at load time:
//
//	string  - free text, compared case-insensitively by filters
//	number  - float64, compared exactly (no epsilon)
//	date    - calendar day, rendered as YYYY-MM-DD
//
// # Immutability
//
// A Table is never mutated after New returns. Accessors hand out copies of
// column metadata and the engine builds fresh row slices for every result,
// so any number of goroutines may read the same Table without locking.
//
// Reload publishes a new Table through a Snapshot, which swaps a single
// atomic pointer. Readers that already hold the old Table keep a consistent
// view until they drop it.
//
// # Values
//
// Value is a sealed interface. Only Null, String, Number and Date implement
// it, which lets comparison and rendering code use exhaustive type switches.
package table
