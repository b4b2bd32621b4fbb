package loader

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/datatool/internal/table"
)

// rawTable is the text form every source is reduced to before inference.
type rawTable struct {
	header []string
	rows   [][]string
	// null marks cells that were SQL NULL. Nil for CSV sources, where an
	// empty cell is the only way to spell null.
	null [][]bool
}

// build infers column types and converts every cell.
func (r *rawTable) build(path string) (*table.Table, error) {
	if len(r.header) == 0 {
		return nil, malformed(path, nil, "no header row")
	}

	names := make([]string, len(r.header))
	seen := make(map[string]bool, len(r.header))
	for i, h := range r.header {
		name := norm.NFC.String(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if name == "" {
			return nil, malformed(path, nil, "column %d has an empty name", i+1)
		}
		if seen[name] {
			return nil, malformed(path, nil, "duplicate column %q", name)
		}
		seen[name] = true
		names[i] = name
	}

	columns := make([]table.Column, len(names))
	for i, name := range names {
		columns[i] = table.Column{Name: name, Type: r.inferType(i)}
	}

	rows := make([]table.Row, len(r.rows))
	for i, rec := range r.rows {
		row := make(table.Row, len(columns))
		for j, col := range columns {
			if r.isNull(i, j) {
				row[j] = table.Null{}
				continue
			}
			cell := rec[j]
			if col.Type == table.TypeString {
				cell = norm.NFC.String(cell)
			}
			row[j] = table.ParseValue(cell, col.Type)
		}
		rows[i] = row
	}

	tbl, err := table.New(columns, rows)
	if err != nil {
		return nil, malformed(path, err, "building table")
	}
	return tbl, nil
}

func (r *rawTable) isNull(row, col int) bool {
	if r.null != nil && r.null[row][col] {
		return true
	}
	return strings.TrimSpace(r.rows[row][col]) == ""
}

// inferType picks the narrowest type that every non-null cell of the
// column satisfies. An all-null column is a string column.
func (r *rawTable) inferType(col int) table.ColumnType {
	number, date := true, true
	seen := false
	for i, rec := range r.rows {
		if r.isNull(i, col) {
			continue
		}
		seen = true
		cell := strings.TrimSpace(rec[col])
		if number {
			if _, err := table.ParseNumber(cell); err != nil {
				number = false
			}
		}
		if date {
			if _, err := table.ParseDate(cell); err != nil {
				date = false
			}
		}
		if !number && !date {
			return table.TypeString
		}
	}
	switch {
	case !seen:
		return table.TypeString
	case number:
		return table.TypeNumber
	case date:
		return table.TypeDate
	default:
		return table.TypeString
	}
}
