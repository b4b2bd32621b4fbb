package querysql

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/store"
	"github.com/roach88/datatool/internal/testutil"
)

const selectAll = `SELECT "id", "name", "department", "role", "project_hours", "join_date" FROM "employees"`

func newCompiler() *SQLCompiler {
	return NewSQLCompiler("employees", testutil.EmployeeColumns)
}

func TestCompile_NoClauses(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{})
	require.NoError(t, err)

	assert.Equal(t, selectAll+` ORDER BY rowid ASC`, sql)
	assert.Empty(t, params)
}

func TestCompile_StringFilter(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{"department": queryir.Scalar("Engineering")},
	})
	require.NoError(t, err)

	assert.Equal(t, selectAll+` WHERE lower("department") = ? ORDER BY rowid ASC`, sql)

	// Verify parameterized query (no interpolation)
	assert.NotContains(t, sql, "ngineering")
	assert.Equal(t, []any{"engineering"}, params)
}

func TestCompile_SetFilter(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{"department": queryir.Set("HR", "Sales")},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE lower("department") IN (?, ?)`)
	assert.Equal(t, []any{"hr", "sales"}, params)
}

func TestCompile_RoleVariants(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{"role": queryir.Scalar("Manager")},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE (instr(lower("role"), ?) > 0 OR lower("role") IN (?, ?, ?, ?))`)
	assert.Equal(t, []any{"manager", "manager", "manager manager", "manager executive", "manager specialist"}, params)
}

func TestCompile_NumberAndDateFilters(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{
			"project_hours": queryir.Set(15, "22", "lots"),
			"join_date":     queryir.Scalar("2023-01-01T10:00:00Z"),
		},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE "join_date" = ? AND "project_hours" IN (?, ?)`)
	assert.Equal(t, []any{"2023-01-01", float64(15), float64(22)}, params)
}

func TestCompile_UnmatchableFilter(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{"project_hours": queryir.Scalar("lots")},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, "WHERE 0 = 1")
	assert.Empty(t, params)
}

func TestCompile_Ranges(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Ranges: map[string]queryir.RangeSpec{
			"project_hours": {queryir.OpLTE: 20, queryir.OpGTE: 10},
			"join_date":     {queryir.OpAfter: "2020-01-01", queryir.OpBefore: "bogus"},
		},
	})
	require.NoError(t, err)

	// join_date before "bogus" is skipped, like the engine does.
	assert.Contains(t, sql, `WHERE "join_date" > ? AND "project_hours" >= ? AND "project_hours" <= ?`)
	assert.Equal(t, []any{"2020-01-01", float64(10), float64(20)}, params)
}

func TestCompile_InclusiveAfterBefore(t *testing.T) {
	c := newCompiler()
	c.InclusiveAfterBefore = true

	sql, _, err := c.Compile(queryir.Query{
		Ranges: map[string]queryir.RangeSpec{
			"join_date": {queryir.OpAfter: "2020-01-01", queryir.OpBefore: "2021-01-01"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `"join_date" >= ? AND "join_date" <= ?`)
}

func TestCompile_AliasRewrite(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Filters: map[string]queryir.FilterValue{"join_date_after": queryir.Scalar("2022-01-01")},
	})
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE "join_date" > ?`)
	assert.Equal(t, []any{"2022-01-01"}, params)
}

func TestCompile_Search(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{Search: " Smith "})
	require.NoError(t, err)

	assert.Contains(t, sql, `WHERE (instr(lower("name"), ?) > 0 OR instr(lower("department"), ?) > 0 OR instr(lower("role"), ?) > 0)`)
	assert.Equal(t, []any{"smith", "smith", "smith"}, params)
}

func TestCompile_SortAndPagination(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{
		Sort:   &queryir.Sort{Field: "join_date", Order: queryir.Desc},
		Limit:  2,
		Offset: 1,
	})
	require.NoError(t, err)

	assert.Equal(t, selectAll+` ORDER BY "join_date" IS NULL ASC, "join_date" COLLATE BINARY DESC, rowid ASC LIMIT ? OFFSET ?`, sql)
	assert.Equal(t, []any{2, 1}, params)
}

func TestCompile_OffsetWithoutLimit(t *testing.T) {
	sql, params, err := newCompiler().Compile(queryir.Query{Offset: 3})
	require.NoError(t, err)

	assert.Contains(t, sql, "LIMIT -1 OFFSET ?")
	assert.Equal(t, []any{3}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	queries := []queryir.Query{
		{},
		{Filters: map[string]queryir.FilterValue{"name": queryir.Scalar("x")}},
		{Sort: &queryir.Sort{Field: "name"}},
		{Limit: 1},
	}
	for _, q := range queries {
		sql, _, err := newCompiler().Compile(q)
		require.NoError(t, err)
		assert.Contains(t, sql, "rowid ASC")
	}
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query queryir.Query
		code  engine.ErrorCode
	}{
		{"unknown filter column", queryir.Query{Filters: map[string]queryir.FilterValue{"salary": queryir.Scalar(1)}}, engine.ErrCodeUnknownColumn},
		{"unknown range column", queryir.Query{Ranges: map[string]queryir.RangeSpec{"age": {queryir.OpGT: 1}}}, engine.ErrCodeUnknownColumn},
		{"unknown sort column", queryir.Query{Sort: &queryir.Sort{Field: "salary"}}, engine.ErrCodeUnknownColumn},
		{"bad sort order", queryir.Query{Sort: &queryir.Sort{Field: "name", Order: "up"}}, engine.ErrCodeInvalidSortDirection},
		{"bad range op", queryir.Query{Ranges: map[string]queryir.RangeSpec{"id": {"near": 1}}}, engine.ErrCodeInvalidRangeOperator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newCompiler().Compile(tt.query)
			require.Error(t, err)
			assert.Equal(t, tt.code, engine.CodeOf(err))

			_, _, err = newCompiler().CompileCount(tt.query)
			assert.Equal(t, tt.code, engine.CodeOf(err))
		})
	}
}

func TestCompileCount(t *testing.T) {
	sql, params, err := newCompiler().CompileCount(queryir.Query{
		Filters: map[string]queryir.FilterValue{"department": queryir.Scalar("Sales")},
		Sort:    &queryir.Sort{Field: "name"},
		Limit:   1,
	})
	require.NoError(t, err)

	assert.Equal(t, `SELECT COUNT(*) FROM "employees" WHERE lower("department") = ?`, sql)
	assert.Equal(t, []any{"sales"}, params)
}

// TestCompile_MatchesEngine runs the compiled SQL against the fixture
// imported into SQLite and checks it selects exactly what the engine does.
func TestCompile_MatchesEngine(t *testing.T) {
	ctx := context.Background()
	s, err := store.Open(filepath.Join(t.TempDir(), "employees.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	tbl := testutil.Employees(t)
	require.NoError(t, s.ImportTable(ctx, "employees", tbl, false))

	queries := map[string]queryir.Query{
		"identity":        {},
		"string filter":   {Filters: map[string]queryir.FilterValue{"department": queryir.Scalar("engineering")}},
		"set filter":      {Filters: map[string]queryir.FilterValue{"department": queryir.Set("ENGINEERING", "sales")}},
		"number filter":   {Filters: map[string]queryir.FilterValue{"project_hours": queryir.Set(8, "30")}},
		"date filter":     {Filters: map[string]queryir.FilterValue{"join_date": queryir.Scalar("2023-01-01")}},
		"role manager":    {Filters: map[string]queryir.FilterValue{"role": queryir.Scalar("manager")}},
		"role engineer":   {Filters: map[string]queryir.FilterValue{"role": queryir.Scalar("Engineer")}},
		"closed interval": {Ranges: map[string]queryir.RangeSpec{"project_hours": {queryir.OpGTE: 10, queryir.OpLTE: 20}}},
		"strict after":    {Ranges: map[string]queryir.RangeSpec{"join_date": {queryir.OpAfter: "2023-01-01"}}},
		"string range":    {Ranges: map[string]queryir.RangeSpec{"name": {queryir.OpGTE: "D", queryir.OpLT: "G"}}},
		"skipped bound":   {Ranges: map[string]queryir.RangeSpec{"join_date": {queryir.OpAfter: "nope"}}},
		"aliases": {Filters: map[string]queryir.FilterValue{
			"join_date_after":  queryir.Scalar("2021-01-01"),
			"join_date_before": queryir.Scalar("2023-01-01"),
		}},
		"search":           {Search: "eng"},
		"sort number desc": {Sort: &queryir.Sort{Field: "project_hours", Order: queryir.Desc}},
		"sort number asc":  {Sort: &queryir.Sort{Field: "project_hours", Order: queryir.Asc}},
		"sort date asc":    {Sort: &queryir.Sort{Field: "join_date"}},
		"sort string raw":  {Sort: &queryir.Sort{Field: "department", Order: queryir.Asc}},
		"page": {
			Filters: map[string]queryir.FilterValue{"department": queryir.Set("engineering", "sales")},
			Sort:    &queryir.Sort{Field: "id", Order: queryir.Asc},
			Limit:   2,
			Offset:  1,
		},
		"offset only": {Offset: 5},
	}

	c := newCompiler()
	for name, q := range queries {
		t.Run(name, func(t *testing.T) {
			res, err := engine.Evaluate(tbl, q)
			require.NoError(t, err)

			sql, params, err := c.Compile(q)
			require.NoError(t, err)
			assert.Equal(t, testutil.IDs(res.Rows), queryIDs(t, s, sql, params), sql)

			countSQL, countParams, err := c.CompileCount(q)
			require.NoError(t, err)
			var total int
			require.NoError(t, s.DB().QueryRowContext(ctx, countSQL, countParams...).Scan(&total))
			assert.Equal(t, res.TotalCount, total, countSQL)
		})
	}
}

func queryIDs(t *testing.T, s *store.Store, sql string, params []any) []int {
	t.Helper()
	rows, err := s.Query(context.Background(), sql, params...)
	require.NoError(t, err)
	defer rows.Close()

	cols, err := rows.Columns()
	require.NoError(t, err)

	ids := []int{}
	for rows.Next() {
		cells := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		require.NoError(t, rows.Scan(ptrs...))
		id, ok := cells[0].(float64)
		require.True(t, ok, "id should be REAL, got %T", cells[0])
		ids = append(ids, int(id))
	}
	require.NoError(t, rows.Err())
	return ids
}
