// Package queryir defines the canonical query shape evaluated by the engine.
//
// QueryIR is the boundary between loosely-shaped request bodies and the
// query engine. Everything that inspects raw, untyped input lives here:
//
//	[request body] → Normalize → [Query] → engine.Evaluate
//
// The engine never sees a raw body. Every legacy request shape is folded
// into one Query by Normalize:
//
//   - filters nested under "filters" (canonical)
//   - filter keys given at the top level
//   - "additional_filters" merged into filters
//   - "sort" as an object {field, order}, a bare column name, or a
//     +column / -column prefixed name
//   - "sort_by" / "sort_order" top-level keys
//
// # Query Semantics
//
// Filters are conjunctive across columns. A filter value is either a single
// scalar or a set; a set matches when any member matches. Ranges map a
// column to operator → bound, with operators lt, lte, gt, gte, after and
// before. Multiple operators on one column compose conjunctively.
//
// # Rules
//
// Field-specific behaviour is declarative. Rules maps a column to a match
// strategy (exact or variants) and maps convenience filter keys such as
// join_date_after to a range operator on a real column. DefaultRules
// reproduces the built-in behaviour; other rule sets can be compiled from
// CUE by package rulespec.
package queryir
