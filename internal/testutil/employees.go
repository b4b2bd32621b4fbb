package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/table"
)

// EmployeesCSV is the canonical test dataset in its on-disk form.
//
// Row 6 has no project_hours and row 7 has no join_date, so every package
// sees the same null handling. Row 3 spells its department in lower case.
const EmployeesCSV = `id,name,department,role,project_hours,join_date
1,Alice Johnson,Engineering,Engineering Manager,15,2021-03-15
2,Bob Smith,Sales,Sales Executive,22,2023-01-01
3,Carol White,engineering,Software Engineer,10,2022-07-20
4,Dan Brown,Marketing,Marketing Specialist,20,2020-11-05
5,Eve Davis,Sales,manager,8,2023-06-30
6,Frank Moore,Engineering,Data Engineer,,2019-02-11
7,Grace Lee,HR,HR Specialist,12,
8,Heidi Clark,Marketing,Content Writer,30,2024-01-10
`

// EmployeeColumns is the inferred schema of EmployeesCSV.
var EmployeeColumns = []table.Column{
	{Name: "id", Type: table.TypeNumber},
	{Name: "name", Type: table.TypeString},
	{Name: "department", Type: table.TypeString},
	{Name: "role", Type: table.TypeString},
	{Name: "project_hours", Type: table.TypeNumber},
	{Name: "join_date", Type: table.TypeDate},
}

// Employees builds the EmployeesCSV dataset directly, without a loader.
func Employees(t testing.TB) *table.Table {
	t.Helper()

	null := table.Null{}
	rows := []table.Row{
		{table.Number(1), table.String("Alice Johnson"), table.String("Engineering"), table.String("Engineering Manager"), table.Number(15), day(2021, 3, 15)},
		{table.Number(2), table.String("Bob Smith"), table.String("Sales"), table.String("Sales Executive"), table.Number(22), day(2023, 1, 1)},
		{table.Number(3), table.String("Carol White"), table.String("engineering"), table.String("Software Engineer"), table.Number(10), day(2022, 7, 20)},
		{table.Number(4), table.String("Dan Brown"), table.String("Marketing"), table.String("Marketing Specialist"), table.Number(20), day(2020, 11, 5)},
		{table.Number(5), table.String("Eve Davis"), table.String("Sales"), table.String("manager"), table.Number(8), day(2023, 6, 30)},
		{table.Number(6), table.String("Frank Moore"), table.String("Engineering"), table.String("Data Engineer"), null, day(2019, 2, 11)},
		{table.Number(7), table.String("Grace Lee"), table.String("HR"), table.String("HR Specialist"), table.Number(12), null},
		{table.Number(8), table.String("Heidi Clark"), table.String("Marketing"), table.String("Content Writer"), table.Number(30), day(2024, 1, 10)},
	}

	tbl, err := table.New(EmployeeColumns, rows)
	require.NoError(t, err)
	return tbl.WithSource("testutil:employees", "")
}

// WriteEmployeesCSV writes EmployeesCSV into a temp dir and returns its path.
func WriteEmployeesCSV(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "employees.csv")
	require.NoError(t, os.WriteFile(path, []byte(EmployeesCSV), 0o644))
	return path
}

// IDs extracts the id column (column 0) of rows, for compact assertions.
func IDs(rows []table.Row) []int {
	out := make([]int, len(rows))
	for i, row := range rows {
		if n, ok := row[0].(table.Number); ok {
			out[i] = int(n)
		}
	}
	return out
}

func day(y int, m time.Month, d int) table.Date {
	return table.NewDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}
