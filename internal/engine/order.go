package engine

import (
	"slices"

	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// sortRows orders rows in place by s. The sort is stable, so ties keep load
// order. Nulls sort last in both directions.
func (ev *evaluation) sortRows(rows []table.Row, s *queryir.Sort) {
	if s == nil {
		return
	}
	_, idx, ok := ev.tbl.Column(s.Field)
	if !ok {
		return
	}
	desc := s.Order == queryir.Desc

	slices.SortStableFunc(rows, func(a, b table.Row) int {
		av, bv := a[idx], b[idx]
		an, bn := table.IsNull(av), table.IsNull(bv)
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		case bn:
			return -1
		}
		c := table.Compare(av, bv)
		if desc {
			return -c
		}
		return c
	})
}

// paginate applies offset then limit. A limit of zero or less means no
// limit. The returned slice is never nil.
func paginate(rows []table.Row, offset, limit int) []table.Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(rows) {
		return []table.Row{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
