package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/datatool/internal/table"
)

// ImportTable writes tbl into a new SQLite table called name.
//
// Column affinities follow the column types: numbers become REAL, strings
// and dates become TEXT (dates as YYYY-MM-DD so they order correctly as
// text). Null cells become SQL NULL. If replace is true an existing table of
// the same name is dropped first; otherwise it is an error.
//
// The whole import runs in one transaction.
func (s *Store) ImportTable(ctx context.Context, name string, tbl *table.Table, replace bool) error {
	if s.readOnly {
		return fmt.Errorf("import table %q: store is read-only", name)
	}
	if name == "" {
		return fmt.Errorf("import table: empty table name")
	}
	cols := tbl.Columns()
	if len(cols) == 0 {
		return fmt.Errorf("import table %q: table has no columns", name)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import table %q: begin: %w", name, err)
	}
	defer tx.Rollback()

	if replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+QuoteIdent(name)); err != nil {
			return fmt.Errorf("import table %q: drop: %w", name, err)
		}
	}

	defs := make([]string, len(cols))
	marks := make([]string, len(cols))
	for i, col := range cols {
		defs[i] = QuoteIdent(col.Name) + " " + affinity(col.Type)
		marks[i] = "?"
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", QuoteIdent(name), strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("import table %q: create: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", QuoteIdent(name), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("import table %q: prepare: %w", name, err)
	}
	defer stmt.Close()

	args := make([]any, len(cols))
	for i := 0; i < tbl.Len(); i++ {
		for j, v := range tbl.Row(i) {
			args[j] = Param(v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("import table %q: row %d: %w", name, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import table %q: commit: %w", name, err)
	}
	return nil
}

// Param converts a cell value to a SQL parameter with the same encoding
// ImportTable uses.
func Param(v table.Value) any {
	switch val := v.(type) {
	case table.String:
		return string(val)
	case table.Number:
		return float64(val)
	case table.Date:
		return val.String()
	default:
		return nil
	}
}

func affinity(t table.ColumnType) string {
	if t == table.TypeNumber {
		return "REAL"
	}
	return "TEXT"
}
