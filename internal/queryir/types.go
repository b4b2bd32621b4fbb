package queryir

import (
	"sort"
)

// Query is the normalized request evaluated by the engine.
//
// A zero Query selects every row in load order.
type Query struct {
	// Filters maps a column name to an equality or set-membership constraint.
	Filters map[string]FilterValue

	// Ranges maps a column name to operator → bound constraints.
	Ranges map[string]RangeSpec

	// Sort orders the result (nil = table load order).
	Sort *Sort

	// Limit caps the page size. Zero or negative means no limit.
	Limit int

	// Offset skips rows after filtering and sorting.
	Offset int

	// Search is an optional free-text term matched against every string
	// column (case-insensitive substring).
	Search string
}

// FilterValue is a single scalar or a set of scalars (OR match).
type FilterValue struct {
	Values []any
	Set    bool
}

// Scalar creates a single-value filter.
func Scalar(v any) FilterValue {
	return FilterValue{Values: []any{v}}
}

// Set creates a set filter. Rows match when any member matches.
func Set(vs ...any) FilterValue {
	return FilterValue{Values: vs, Set: true}
}

// RangeOp is a range comparison operator.
type RangeOp string

const (
	OpLT     RangeOp = "lt"
	OpLTE    RangeOp = "lte"
	OpGT     RangeOp = "gt"
	OpGTE    RangeOp = "gte"
	OpAfter  RangeOp = "after"
	OpBefore RangeOp = "before"
)

// RangeOps lists the accepted operators in canonical evaluation order.
var RangeOps = []RangeOp{OpGT, OpGTE, OpLT, OpLTE, OpAfter, OpBefore}

// Valid reports whether op is one of RangeOps.
func (op RangeOp) Valid() bool {
	for _, o := range RangeOps {
		if o == op {
			return true
		}
	}
	return false
}

// RangeSpec maps operators to bounds for one column.
type RangeSpec map[RangeOp]any

// Ops returns the operators present in canonical order. Unknown operators
// sort after the known ones, alphabetically.
func (r RangeSpec) Ops() []RangeOp {
	ops := make([]RangeOp, 0, len(r))
	for op := range r {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		ri, rj := opRank(ops[i]), opRank(ops[j])
		if ri != rj {
			return ri < rj
		}
		return ops[i] < ops[j]
	})
	return ops
}

func opRank(op RangeOp) int {
	for i, o := range RangeOps {
		if o == op {
			return i
		}
	}
	return len(RangeOps)
}

// SortOrder is a sort direction.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// SortOrders lists the accepted directions.
var SortOrders = []SortOrder{Asc, Desc}

// Sort orders results by one column.
type Sort struct {
	Field string
	Order SortOrder
}

// Columns returns every column the query references through filters,
// ranges or sort, sorted and de-duplicated.
func (q Query) Columns() []string {
	seen := make(map[string]bool)
	for name := range q.Filters {
		seen[name] = true
	}
	for name := range q.Ranges {
		seen[name] = true
	}
	if q.Sort != nil && q.Sort.Field != "" {
		seen[q.Sort.Field] = true
	}
	cols := make([]string, 0, len(seen))
	for name := range seen {
		cols = append(cols, name)
	}
	sort.Strings(cols)
	return cols
}

// SortedFilterKeys returns filter column names in sorted order.
func (q Query) SortedFilterKeys() []string {
	keys := make([]string, 0, len(q.Filters))
	for k := range q.Filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedRangeKeys returns range column names in sorted order.
func (q Query) SortedRangeKeys() []string {
	keys := make([]string, 0, len(q.Ranges))
	for k := range q.Ranges {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the maps so callers can rewrite the query
// without touching the original.
func (q Query) Clone() Query {
	out := q
	if q.Filters != nil {
		out.Filters = make(map[string]FilterValue, len(q.Filters))
		for k, v := range q.Filters {
			vals := make([]any, len(v.Values))
			copy(vals, v.Values)
			out.Filters[k] = FilterValue{Values: vals, Set: v.Set}
		}
	}
	if q.Ranges != nil {
		out.Ranges = make(map[string]RangeSpec, len(q.Ranges))
		for k, spec := range q.Ranges {
			cp := make(RangeSpec, len(spec))
			for op, bound := range spec {
				cp[op] = bound
			}
			out.Ranges[k] = cp
		}
	}
	if q.Sort != nil {
		s := *q.Sort
		out.Sort = &s
	}
	return out
}
