package loader

import (
	"bytes"
	"context"
	"os"
	"strings"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/store"
	"github.com/roach88/datatool/internal/table"
	"github.com/roach88/datatool/internal/testutil"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func gzipped(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// assertEmployees checks a loaded table against the in-memory fixture.
func assertEmployees(t *testing.T, got *table.Table) {
	t.Helper()
	want := testutil.Employees(t)

	assert.Equal(t, want.Columns(), got.Columns())
	require.Equal(t, want.Len(), got.Len())
	for i := 0; i < want.Len(); i++ {
		assert.Equal(t, want.Row(i), got.Row(i), "row %d", i)
	}
}

func TestLoad_CSV(t *testing.T) {
	path := testutil.WriteEmployeesCSV(t)

	tbl, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)

	assertEmployees(t, tbl)
	assert.Equal(t, path, tbl.Source())
	assert.Empty(t, tbl.Note())
}

func TestLoad_CompressedCSV(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"employees.csv.gz", gzipped(t, testutil.EmployeesCSV)},
		{"employees.csv.zst", zstded(t, testutil.EmployeesCSV)},
		// detection is by content, not by name
		{"employees.data", gzipped(t, testutil.EmployeesCSV)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.name, tt.data)

			tbl, err := Load(context.Background(), path, Options{})
			require.NoError(t, err)
			assertEmployees(t, tbl)
		})
	}
}

func TestLoad_SQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "employees.db")

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.ImportTable(ctx, "employees", testutil.Employees(t), false))
	require.NoError(t, s.Close())

	t.Run("single table is picked automatically", func(t *testing.T) {
		tbl, err := Load(ctx, path, Options{})
		require.NoError(t, err)
		assertEmployees(t, tbl)
	})

	t.Run("explicit table", func(t *testing.T) {
		tbl, err := Load(ctx, path, Options{Table: "employees"})
		require.NoError(t, err)
		assertEmployees(t, tbl)
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := Load(ctx, path, Options{Table: "staff"})
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})
}

func TestLoad_SQLiteAmbiguous(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "many.sqlite")

	s, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.ImportTable(ctx, "a", testutil.Employees(t), false))
	require.NoError(t, s.ImportTable(ctx, "b", testutil.Employees(t), false))
	require.NoError(t, s.Close())

	_, err = Load(ctx, path, Options{})
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
	assert.Contains(t, err.Error(), "a, b")
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		code string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.csv") },
			code: ErrCodeSourceNotFound,
		},
		{
			name: "directory",
			path: func(t *testing.T) string { return t.TempDir() },
			code: ErrCodeSourceMalformed,
		},
		{
			name: "empty file",
			path: func(t *testing.T) string { return writeFile(t, "empty.csv", nil) },
			code: ErrCodeSourceMalformed,
		},
		{
			name: "ragged rows",
			path: func(t *testing.T) string { return writeFile(t, "ragged.csv", []byte("a,b\n1,2\n3\n")) },
			code: ErrCodeSourceMalformed,
		},
		{
			name: "duplicate header",
			path: func(t *testing.T) string { return writeFile(t, "dup.csv", []byte("a,a\n1,2\n")) },
			code: ErrCodeSourceMalformed,
		},
		{
			name: "blank header",
			path: func(t *testing.T) string { return writeFile(t, "blank.csv", []byte("a, \n1,2\n")) },
			code: ErrCodeSourceMalformed,
		},
		{
			name: "truncated gzip",
			path: func(t *testing.T) string {
				data := gzipped(t, testutil.EmployeesCSV)
				return writeFile(t, "bad.csv.gz", data[:len(data)/2])
			},
			code: ErrCodeSourceMalformed,
		},
		{
			name: "sqlite without tables",
			path: func(t *testing.T) string { return writeFile(t, "empty.db", nil) },
			code: ErrCodeSourceMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Load(context.Background(), tt.path(t), Options{})
			require.Error(t, err)
			assert.Nil(t, tbl)
			assert.Equal(t, tt.code, CodeOf(err))

			var le *LoadError
			assert.ErrorAs(t, err, &le)
		})
	}
}

func TestLoad_HeaderOnly(t *testing.T) {
	path := writeFile(t, "header.csv", []byte("id,name\n"))

	tbl, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, []string{"id", "name"}, tbl.ColumnNames())
}

func TestLoad_TypeInference(t *testing.T) {
	csvText := "n,d,s,mixed,blank,padded\n" +
		"1,2024-01-02,x,1,, 7 \n" +
		"2.5,2024/01/03,y,2024-01-01,,8\n" +
		",,,,,\n"
	path := writeFile(t, "types.csv", []byte(csvText))

	tbl, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, []table.Column{
		{Name: "n", Type: table.TypeNumber},
		{Name: "d", Type: table.TypeDate},
		{Name: "s", Type: table.TypeString},
		{Name: "mixed", Type: table.TypeString},
		{Name: "blank", Type: table.TypeString},
		{Name: "padded", Type: table.TypeNumber},
	}, tbl.Columns())

	assert.Equal(t, table.Number(2.5), tbl.Value(1, 0))
	assert.Equal(t, "2024-01-03", table.Text(tbl.Value(1, 1)))
	assert.Equal(t, table.Number(7), tbl.Value(0, 5))
	for col := 0; col < 6; col++ {
		assert.True(t, table.IsNull(tbl.Value(2, col)), "column %d of the blank row", col)
	}
}

func TestLoad_NormalizesUnicode(t *testing.T) {
	// "Café" spelled with a combining acute accent.
	path := writeFile(t, "nfc.csv", []byte("\ufeffname\nCafe\u0301\n"))

	tbl, err := Load(context.Background(), path, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"name"}, tbl.ColumnNames(), "BOM is stripped from the header")
	assert.Equal(t, table.String("Caf\u00e9"), tbl.Value(0, 0))
}

func TestLoadOrEmpty(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		tbl := LoadOrEmpty(context.Background(), testutil.WriteEmployeesCSV(t), Options{})
		assert.Equal(t, 8, tbl.Len())
		assert.Empty(t, tbl.Note())
	})

	t.Run("failure", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing.csv")
		tbl := LoadOrEmpty(context.Background(), path, Options{})

		require.NotNil(t, tbl)
		assert.Equal(t, 0, tbl.Len())
		assert.Empty(t, tbl.Columns())
		assert.Equal(t, path, tbl.Source())
		assert.Contains(t, tbl.Note(), ErrCodeSourceNotFound)
	})
}

func TestLoadError_Unwrap(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "x.csv"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(testutil.EmployeesCSV), "inline")
	require.NoError(t, err)
	assert.Equal(t, 8, tbl.Len())
	assert.Equal(t, "inline", tbl.Source())
	assert.Equal(t, testutil.EmployeeColumns, tbl.Columns())

	_, err = ReadCSV(strings.NewReader(""), "inline")
	assert.True(t, IsMalformed(err))
}
