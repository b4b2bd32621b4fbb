package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/table"
)

func TestEmployees_Shape(t *testing.T) {
	tbl := Employees(t)

	assert.Equal(t, 8, tbl.Len())
	assert.Equal(t, EmployeeColumns, tbl.Columns())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, IDs(rowsOf(tbl)))
}

func TestEmployees_Nulls(t *testing.T) {
	tbl := Employees(t)

	assert.True(t, table.IsNull(tbl.Value(5, 4)), "Frank has no project_hours")
	assert.True(t, table.IsNull(tbl.Value(6, 5)), "Grace has no join_date")
}

func TestWriteEmployeesCSV(t *testing.T) {
	path := WriteEmployeesCSV(t)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, EmployeesCSV, string(data))
}

func rowsOf(tbl *table.Table) []table.Row {
	rows := make([]table.Row, tbl.Len())
	for i := range rows {
		rows[i] = tbl.Row(i)
	}
	return rows
}
