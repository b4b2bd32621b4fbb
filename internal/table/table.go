package table

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Column describes one named, typed column.
type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Row holds one value per column, in column order.
type Row []Value

// Table is an immutable, ordered set of rows over a fixed column list.
//
// Use New to construct one; the zero value behaves like Empty().
type Table struct {
	columns []Column
	index   map[string]int
	rows    []Row

	source string // where the rows came from (path, DSN, ...)
	note   string // loader diagnostic, set when the source was unavailable
}

// New builds a Table from columns and rows.
//
// Column names must be non-empty and unique, and every row must have exactly
// one value per column. Nil cells are replaced with Null. The slices are
// copied, so callers may reuse their buffers afterwards.
func New(columns []Column, rows []Row) (*Table, error) {
	index := make(map[string]int, len(columns))
	cols := make([]Column, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column %q", col.Name)
		}
		if !col.Type.Valid() {
			return nil, fmt.Errorf("column %q has invalid type %q", col.Name, col.Type)
		}
		index[col.Name] = i
		cols[i] = col
	}

	copied := make([]Row, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(cols))
		}
		r := make(Row, len(row))
		for j, v := range row {
			if v == nil {
				v = Null{}
			}
			r[j] = v
		}
		copied[i] = r
	}

	return &Table{columns: cols, index: index, rows: copied}, nil
}

// Empty returns a table with zero rows and zero columns.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// WithSource returns a shallow copy of t annotated with its source and an
// optional diagnostic note. Rows are shared, which is safe because neither
// copy mutates them.
func (t *Table) WithSource(source, note string) *Table {
	c := *t
	c.source = source
	c.note = note
	return &c
}

// Source returns where the table was loaded from, if known.
func (t *Table) Source() string {
	return t.source
}

// Note returns the loader diagnostic, empty when the load succeeded.
func (t *Table) Note() string {
	return t.note
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns a copy of the column list.
func (t *Table) Columns() []Column {
	out := make([]Column, len(t.columns))
	copy(out, t.columns)
	return out
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name and returns it with its position.
func (t *Table) Column(name string) (Column, int, bool) {
	i, ok := t.index[name]
	if !ok {
		return Column{}, -1, false
	}
	return t.columns[i], i, true
}

// HasColumn reports whether name is one of the table's columns.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Row returns the i-th row. The returned Row must be treated as read-only.
func (t *Table) Row(i int) Row {
	return t.rows[i]
}

// Value returns the cell at (row, col).
func (t *Table) Value(row, col int) Value {
	return t.rows[row][col]
}

// Record renders a row in column order for output.
func (t *Table) Record(r Row) Record {
	rec := Record{
		names:  t.ColumnNames(),
		values: make([]any, len(r)),
	}
	for i, v := range r {
		rec.values[i] = Render(v)
	}
	return rec
}

// Record is a rendered row that keeps column order when marshalled.
type Record struct {
	names  []string
	values []any
}

// NewRecord builds a Record from parallel name and value slices.
func NewRecord(names []string, values []any) Record {
	return Record{names: names, values: values}
}

// Get returns the rendered value for a column.
func (r Record) Get(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Names returns the record's column names in order.
func (r Record) Names() []string {
	return r.names
}

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

// MarshalJSON implements json.Marshaler, emitting keys in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
