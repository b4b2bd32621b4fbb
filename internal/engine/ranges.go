package engine

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// applyRanges runs the range pass. Every operator on every column becomes
// one check; all checks are ANDed.
func (ev *evaluation) applyRanges(candidates *roaring.Bitmap, q queryir.Query) *roaring.Bitmap {
	var checks []columnCheck
	for _, name := range q.SortedRangeKeys() {
		col, idx, _ := ev.tbl.Column(name)
		spec := q.Ranges[name]
		for _, op := range spec.Ops() {
			bound, ok := ev.rangeBound(col, op, spec[op])
			if !ok {
				continue
			}
			checks = append(checks, columnCheck{
				col:   idx,
				match: rangePredicate(bound, ev.accept(op)),
			})
		}
	}
	return ev.narrow(candidates, checks)
}

// rangeBound converts a request bound into a cell value of the column's
// type. A bound that cannot be converted skips the operator with a warning.
func (ev *evaluation) rangeBound(col table.Column, op queryir.RangeOp, raw any) (table.Value, bool) {
	switch col.Type {
	case table.TypeDate:
		d, err := toDate(raw)
		if err != nil {
			ev.warn(Warning{
				Code:    WarnDateParseFailure,
				Column:  col.Name,
				Op:      string(op),
				Message: fmt.Sprintf("skipping %s on %s: %v", op, col.Name, err),
			})
			return nil, false
		}
		return d, true

	case table.TypeNumber:
		f, ok := toFloat(raw)
		if !ok {
			ev.warn(Warning{
				Code:    WarnInvalidBound,
				Column:  col.Name,
				Op:      string(op),
				Message: fmt.Sprintf("skipping %s on %s: bound %v is not a number", op, col.Name, raw),
			})
			return nil, false
		}
		return table.Number(f), true

	default:
		if raw == nil {
			ev.warn(Warning{
				Code:    WarnInvalidBound,
				Column:  col.Name,
				Op:      string(op),
				Message: fmt.Sprintf("skipping %s on %s: bound is null", op, col.Name),
			})
			return nil, false
		}
		return table.String(toText(raw)), true
	}
}

// accept returns the test applied to Compare(cell, bound) for op.
func (ev *evaluation) accept(op queryir.RangeOp) func(int) bool {
	switch op {
	case queryir.OpLT:
		return func(c int) bool { return c < 0 }
	case queryir.OpLTE:
		return func(c int) bool { return c <= 0 }
	case queryir.OpGT:
		return func(c int) bool { return c > 0 }
	case queryir.OpGTE:
		return func(c int) bool { return c >= 0 }
	case queryir.OpAfter:
		if ev.engine.inclusive {
			return func(c int) bool { return c >= 0 }
		}
		return func(c int) bool { return c > 0 }
	case queryir.OpBefore:
		if ev.engine.inclusive {
			return func(c int) bool { return c <= 0 }
		}
		return func(c int) bool { return c < 0 }
	default:
		// validate rejects unknown operators before we get here.
		return func(int) bool { return false }
	}
}

// rangePredicate never matches a null cell.
func rangePredicate(bound table.Value, accept func(int) bool) predicate {
	return func(cell table.Value) bool {
		if table.IsNull(cell) {
			return false
		}
		return accept(table.Compare(cell, bound))
	}
}
