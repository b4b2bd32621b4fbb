package engine

import (
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// validate checks that a (rewritten) query only references existing columns
// and uses known sort directions and range operators.
//
// Checks run in a fixed order (filters, ranges, sort, each by column name)
// so the same bad query always reports the same error.
func validate(tbl *table.Table, q queryir.Query) error {
	for _, name := range q.SortedFilterKeys() {
		if !tbl.HasColumn(name) {
			return NewUnknownColumnError("filters", name, tbl.ColumnNames())
		}
	}

	for _, name := range q.SortedRangeKeys() {
		if !tbl.HasColumn(name) {
			return NewUnknownColumnError("ranges", name, tbl.ColumnNames())
		}
		for _, op := range q.Ranges[name].Ops() {
			if !op.Valid() {
				return NewInvalidRangeOperatorError(name, string(op), rangeOpNames())
			}
		}
	}

	if q.Sort != nil {
		if !tbl.HasColumn(q.Sort.Field) {
			return NewUnknownColumnError("sort", q.Sort.Field, tbl.ColumnNames())
		}
		switch q.Sort.Order {
		case "", queryir.Asc, queryir.Desc:
		default:
			return NewInvalidSortDirectionError(q.Sort.Field, string(q.Sort.Order), sortOrderNames())
		}
	}

	return nil
}

func rangeOpNames() []string {
	names := make([]string, len(queryir.RangeOps))
	for i, op := range queryir.RangeOps {
		names[i] = string(op)
	}
	return names
}

func sortOrderNames() []string {
	names := make([]string, len(queryir.SortOrders))
	for i, o := range queryir.SortOrders {
		names[i] = string(o)
	}
	return names
}
