package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/datatool/internal/table"
)

// ErrTableNotFound is returned when the requested table does not exist.
var ErrTableNotFound = errors.New("table not found")

// RawTable is a table as SQLite returned it, before type inference.
//
// Cells are rendered to text the way they would appear in a CSV export;
// Null marks SQL NULL so it can be told apart from an empty string.
type RawTable struct {
	Name    string
	Columns []string
	Rows    [][]string
	Null    [][]bool
}

// Tables returns the user tables in the database, sorted by name.
//
// Returns an empty slice (not nil) if the database has no tables.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	return names, nil
}

// ReadTable reads every row of the named table in rowid order.
//
// Returns ErrTableNotFound (wrapped) if the table does not exist.
func (s *Store) ReadTable(ctx context.Context, name string) (*RawTable, error) {
	names, err := s.Tables(ctx)
	if err != nil {
		return nil, err
	}
	found := false
	for _, n := range names {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("read table %q: %w", name, ErrTableNotFound)
	}

	// rowid order is insertion order, which is the order the table was
	// written in.
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid ASC", QuoteIdent(name)))
	if err != nil {
		return nil, fmt.Errorf("query table %q: %w", name, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %q: %w", name, err)
	}

	raw := &RawTable{Name: name, Columns: cols, Rows: [][]string{}, Null: [][]bool{}}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row of %q: %w", name, err)
		}

		text := make([]string, len(cols))
		null := make([]bool, len(cols))
		for i, cell := range cells {
			text[i], null[i] = cellText(cell)
		}
		raw.Rows = append(raw.Rows, text)
		raw.Null = append(raw.Null, null)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %q: %w", name, err)
	}

	return raw, nil
}

// cellText renders a scanned SQLite value as text.
func cellText(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", true
	case int64:
		return strconv.FormatInt(val, 10), false
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), false
	case []byte:
		return string(val), false
	case string:
		return val, false
	case bool:
		return strconv.FormatBool(val), false
	case time.Time:
		if val.Equal(val.Truncate(24 * time.Hour)) {
			return val.UTC().Format(table.DateLayout), false
		}
		return val.UTC().Format(time.RFC3339), false
	default:
		return fmt.Sprint(val), false
	}
}
