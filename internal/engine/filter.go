package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// applyFilters runs the equality / membership pass.
func (ev *evaluation) applyFilters(candidates *roaring.Bitmap, q queryir.Query) *roaring.Bitmap {
	checks := make([]columnCheck, 0, len(q.Filters))
	for _, name := range q.SortedFilterKeys() {
		col, idx, _ := ev.tbl.Column(name)
		checks = append(checks, columnCheck{
			col:   idx,
			match: ev.filterPredicate(col, q.Filters[name]),
		})
	}
	return ev.narrow(candidates, checks)
}

// filterPredicate compiles a FilterValue for one column.
// Scalar and set filters share the same code path: a scalar is a set of one.
func (ev *evaluation) filterPredicate(col table.Column, fv queryir.FilterValue) predicate {
	switch col.Type {
	case table.TypeNumber:
		return ev.numberFilter(col, fv)
	case table.TypeDate:
		return ev.dateFilter(col, fv)
	default:
		return ev.stringFilter(col, fv)
	}
}

func (ev *evaluation) stringFilter(col table.Column, fv queryir.FilterValue) predicate {
	rule := ev.engine.rules.ColumnRule(col.Name)

	wanted := make([]string, 0, len(fv.Values))
	var variants []string
	for _, v := range fv.Values {
		text := toText(v)
		wanted = append(wanted, ev.fold.String(text))
		if rule.Match == queryir.MatchVariants {
			for _, variant := range rule.Expand(text) {
				variants = append(variants, ev.fold.String(variant))
			}
		}
	}

	fold := ev.fold
	if rule.Match == queryir.MatchVariants {
		return func(cell table.Value) bool {
			s, ok := cell.(table.String)
			if !ok {
				return false
			}
			folded := fold.String(string(s))
			for _, w := range wanted {
				if strings.Contains(folded, w) {
					return true
				}
			}
			return slices.Contains(variants, folded)
		}
	}

	return func(cell table.Value) bool {
		s, ok := cell.(table.String)
		if !ok {
			return false
		}
		return slices.Contains(wanted, fold.String(string(s)))
	}
}

func (ev *evaluation) numberFilter(col table.Column, fv queryir.FilterValue) predicate {
	wanted := make([]float64, 0, len(fv.Values))
	for _, v := range fv.Values {
		f, ok := toFloat(v)
		if !ok {
			ev.warn(Warning{
				Code:    WarnInvalidFilterValue,
				Column:  col.Name,
				Message: fmt.Sprintf("filter value %v is not a number", v),
			})
			continue
		}
		wanted = append(wanted, f)
	}

	return func(cell table.Value) bool {
		n, ok := cell.(table.Number)
		if !ok {
			return false
		}
		return slices.Contains(wanted, float64(n))
	}
}

func (ev *evaluation) dateFilter(col table.Column, fv queryir.FilterValue) predicate {
	wanted := make([]table.Date, 0, len(fv.Values))
	for _, v := range fv.Values {
		d, err := toDate(v)
		if err != nil {
			ev.warn(Warning{
				Code:    WarnDateParseFailure,
				Column:  col.Name,
				Message: fmt.Sprintf("filter value %v is not a date: %v", v, err),
			})
			continue
		}
		wanted = append(wanted, d)
	}

	return func(cell table.Value) bool {
		d, ok := cell.(table.Date)
		if !ok {
			return false
		}
		for _, w := range wanted {
			if d.Time().Equal(w.Time()) {
				return true
			}
		}
		return false
	}
}

// applySearch keeps rows where any string column contains the term,
// case-insensitively. An empty term keeps everything.
func (ev *evaluation) applySearch(candidates *roaring.Bitmap, term string) *roaring.Bitmap {
	term = strings.TrimSpace(term)
	if term == "" {
		return candidates
	}
	needle := ev.fold.String(term)

	var stringCols []int
	for i, col := range ev.tbl.Columns() {
		if col.Type == table.TypeString {
			stringCols = append(stringCols, i)
		}
	}

	out := roaring.New()
	it := candidates.Iterator()
	for it.HasNext() {
		id := it.Next()
		row := ev.tbl.Row(int(id))
		for _, c := range stringCols {
			if s, ok := row[c].(table.String); ok && strings.Contains(ev.fold.String(string(s)), needle) {
				out.Add(id)
				break
			}
		}
	}
	return out
}
