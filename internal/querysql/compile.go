package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/store"
	"github.com/roach88/datatool/internal/table"
)

// SQLCompiler compiles a canonical query to parameterized SQL for SQLite.
//
// The SQL selects the same rows, in the same order, that the engine returns
// for a table imported with store.ImportTable. It is used by the explain
// command and to cross-check the engine.
//
// CRITICAL: ALL queries end in a rowid tiebreaker so ordering is
// deterministic and matches the engine's stable sort.
// CRITICAL: All values are parameterized (never interpolated); identifiers
// are quoted with store.QuoteIdent.
type SQLCompiler struct {
	// Table is the SQLite table name.
	Table string

	// Columns is the schema of the table.
	Columns []table.Column

	// Rules supplies column match strategies and filter aliases.
	Rules queryir.Rules

	// InclusiveAfterBefore mirrors engine.Options.
	InclusiveAfterBefore bool
}

// NewSQLCompiler creates a compiler for a table with the default rules.
func NewSQLCompiler(tableName string, columns []table.Column) *SQLCompiler {
	return &SQLCompiler{
		Table:   tableName,
		Columns: columns,
		Rules:   queryir.DefaultRules(),
	}
}

// Compile converts q to a SELECT returning the requested page.
// Returns (sql, params, error).
//
// Errors are *engine.QueryError, the same ones the engine reports for q.
func (c *SQLCompiler) Compile(q queryir.Query) (string, []any, error) {
	q = c.Rules.Rewrite(q)
	where, params, err := c.compileWhere(q)
	if err != nil {
		return "", nil, err
	}

	order, err := c.compileOrder(q.Sort)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(c.selectList())
	sb.WriteString(" FROM ")
	sb.WriteString(store.QuoteIdent(c.Table))
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)

	switch {
	case q.Limit > 0:
		sb.WriteString(" LIMIT ?")
		params = append(params, q.Limit)
		if q.Offset > 0 {
			sb.WriteString(" OFFSET ?")
			params = append(params, q.Offset)
		}
	case q.Offset > 0:
		// SQLite needs a LIMIT before OFFSET; -1 means unbounded.
		sb.WriteString(" LIMIT -1 OFFSET ?")
		params = append(params, q.Offset)
	}

	return sb.String(), params, nil
}

// CompileCount converts q to a SELECT COUNT(*) of the rows matching its
// filters, ranges and search, i.e. the engine's total_count.
func (c *SQLCompiler) CompileCount(q queryir.Query) (string, []any, error) {
	q = c.Rules.Rewrite(q)
	where, params, err := c.compileWhere(q)
	if err != nil {
		return "", nil, err
	}
	if _, err := c.compileOrder(q.Sort); err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM " + store.QuoteIdent(c.Table) + where, params, nil
}

// selectList lists the columns explicitly so output order is the table's.
func (c *SQLCompiler) selectList() string {
	if len(c.Columns) == 0 {
		return "*"
	}
	parts := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		parts[i] = store.QuoteIdent(col.Name)
	}
	return strings.Join(parts, ", ")
}

func (c *SQLCompiler) column(clause, name string) (table.Column, error) {
	for _, col := range c.Columns {
		if col.Name == name {
			return col, nil
		}
	}
	return table.Column{}, engine.NewUnknownColumnError(clause, name, c.columnNames())
}

func (c *SQLCompiler) columnNames() []string {
	names := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		names[i] = col.Name
	}
	return names
}

// compileWhere builds the WHERE clause (with leading space) or "".
// Conditions are emitted filters first, then ranges, then search, each in
// column-name order, so the same query always renders the same SQL.
func (c *SQLCompiler) compileWhere(q queryir.Query) (string, []any, error) {
	var conds []string
	var params []any

	for _, name := range q.SortedFilterKeys() {
		col, err := c.column("filters", name)
		if err != nil {
			return "", nil, err
		}
		sql, p := c.compileFilter(col, q.Filters[name])
		conds = append(conds, sql)
		params = append(params, p...)
	}

	for _, name := range q.SortedRangeKeys() {
		col, err := c.column("ranges", name)
		if err != nil {
			return "", nil, err
		}
		spec := q.Ranges[name]
		for _, op := range spec.Ops() {
			cmp, err := c.comparator(name, op)
			if err != nil {
				return "", nil, err
			}
			bound, ok := rangeParam(col, spec[op])
			if !ok {
				// The engine skips this operator with a warning.
				continue
			}
			conds = append(conds, fmt.Sprintf("%s %s ?", store.QuoteIdent(col.Name), cmp))
			params = append(params, bound)
		}
	}

	if term := strings.TrimSpace(q.Search); term != "" {
		sql, p := c.compileSearch(term)
		conds = append(conds, sql)
		params = append(params, p...)
	}

	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), params, nil
}

// compileFilter renders one equality / membership filter.
func (c *SQLCompiler) compileFilter(col table.Column, fv queryir.FilterValue) (string, []any) {
	ident := store.QuoteIdent(col.Name)

	switch col.Type {
	case table.TypeNumber, table.TypeDate:
		var params []any
		for _, v := range fv.Values {
			if p, ok := rangeParam(col, v); ok {
				params = append(params, p)
			}
		}
		if len(params) == 0 {
			return "0 = 1", nil
		}
		return membership(ident, params), params
	}

	rule := c.Rules.ColumnRule(col.Name)
	if rule.Match != queryir.MatchVariants {
		params := make([]any, len(fv.Values))
		for i, v := range fv.Values {
			params[i] = strings.ToLower(textOf(v))
		}
		return membership("lower("+ident+")", params), params
	}

	// Substring containment OR equality with one of the variants, per value.
	var alts []string
	var params []any
	for _, v := range fv.Values {
		text := textOf(v)
		variants := rule.Expand(text)
		alts = append(alts, fmt.Sprintf("instr(lower(%s), ?) > 0", ident))
		params = append(params, strings.ToLower(text))
		if len(variants) > 0 {
			vp := make([]any, len(variants))
			for i, variant := range variants {
				vp[i] = strings.ToLower(variant)
			}
			alts = append(alts, membership("lower("+ident+")", vp))
			params = append(params, vp...)
		}
	}
	return "(" + strings.Join(alts, " OR ") + ")", params
}

// compileSearch matches the term against every string column.
func (c *SQLCompiler) compileSearch(term string) (string, []any) {
	needle := strings.ToLower(term)
	var alts []string
	var params []any
	for _, col := range c.Columns {
		if col.Type != table.TypeString {
			continue
		}
		alts = append(alts, fmt.Sprintf("instr(lower(%s), ?) > 0", store.QuoteIdent(col.Name)))
		params = append(params, needle)
	}
	if len(alts) == 0 {
		return "0 = 1", nil
	}
	return "(" + strings.Join(alts, " OR ") + ")", params
}

// comparator maps a range operator to its SQL comparison.
func (c *SQLCompiler) comparator(column string, op queryir.RangeOp) (string, error) {
	switch op {
	case queryir.OpLT:
		return "<", nil
	case queryir.OpLTE:
		return "<=", nil
	case queryir.OpGT:
		return ">", nil
	case queryir.OpGTE:
		return ">=", nil
	case queryir.OpAfter:
		if c.InclusiveAfterBefore {
			return ">=", nil
		}
		return ">", nil
	case queryir.OpBefore:
		if c.InclusiveAfterBefore {
			return "<=", nil
		}
		return "<", nil
	default:
		names := make([]string, len(queryir.RangeOps))
		for i, o := range queryir.RangeOps {
			names[i] = string(o)
		}
		return "", engine.NewInvalidRangeOperatorError(column, string(op), names)
	}
}

// compileOrder renders ORDER BY. Nulls sort last in both directions and
// rowid breaks ties, matching the engine's stable sort over load order.
func (c *SQLCompiler) compileOrder(s *queryir.Sort) (string, error) {
	const tiebreak = "rowid ASC"
	if s == nil {
		return tiebreak, nil
	}
	col, err := c.column("sort", s.Field)
	if err != nil {
		return "", err
	}

	dir := "ASC"
	switch s.Order {
	case "", queryir.Asc:
	case queryir.Desc:
		dir = "DESC"
	default:
		names := make([]string, len(queryir.SortOrders))
		for i, o := range queryir.SortOrders {
			names[i] = string(o)
		}
		return "", engine.NewInvalidSortDirectionError(s.Field, string(s.Order), names)
	}

	ident := store.QuoteIdent(col.Name)
	return fmt.Sprintf("%s IS NULL ASC, %s COLLATE BINARY %s, %s", ident, ident, dir, tiebreak), nil
}

// membership renders "expr = ?" or "expr IN (?, ...)".
func membership(expr string, params []any) string {
	if len(params) == 1 {
		return expr + " = ?"
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(params)), ", ")
	return expr + " IN (" + marks + ")"
}

// rangeParam converts a request value to the SQL parameter the column's
// stored encoding compares against. Returns false when the value cannot be
// converted.
func rangeParam(col table.Column, v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch col.Type {
	case table.TypeNumber:
		switch n := v.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		f, err := table.ParseNumber(textOf(v))
		if err != nil {
			return nil, false
		}
		return f, true
	case table.TypeDate:
		s, ok := v.(string)
		if !ok {
			return nil, false
		}
		t, err := table.ParseDate(s)
		if err != nil {
			return nil, false
		}
		return store.Param(table.NewDate(t)), true
	default:
		return textOf(v), true
	}
}

func textOf(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return table.Text(valueOf(v))
}

// valueOf lifts a non-string request scalar into a cell value so it renders
// the same way table cells do.
func valueOf(v any) table.Value {
	switch n := v.(type) {
	case float64:
		return table.Number(n)
	case int:
		return table.Number(n)
	case int64:
		return table.Number(n)
	case bool:
		if n {
			return table.String("true")
		}
		return table.String("false")
	default:
		return table.String(fmt.Sprint(n))
	}
}
