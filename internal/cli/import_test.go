package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCommand(t *testing.T) {
	csv := employeesCSV(t)
	db := filepath.Join(t.TempDir(), "people.db")

	out, _, err := execute(t, "import", "-d", csv, db, "--name", "staff")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ imported 8 rows (6 columns) into "+db+":staff")

	// The database is now a source in its own right.
	out, _, err = execute(t, "query", "-d", db, "--table", "staff", "--format", "json",
		`{"filters": {"department": "engineering"}, "sort": "id"}`)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 6}, rowIDs(decodeCLI(t, out).Data.Rows))
}

func TestImportCommand_Replace(t *testing.T) {
	csv := employeesCSV(t)
	db := filepath.Join(t.TempDir(), "people.db")

	_, _, err := execute(t, "import", "-d", csv, db)
	require.NoError(t, err)

	out, _, err := execute(t, "import", "-d", csv, db, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, ErrCodeWriteFailed, decodeCLI(t, out).Error.Code)

	_, _, err = execute(t, "import", "-d", csv, db, "--replace")
	require.NoError(t, err)
}

func TestImportCommand_MissingSource(t *testing.T) {
	db := filepath.Join(t.TempDir(), "people.db")
	_, _, err := execute(t, "import", "-d", filepath.Join(t.TempDir(), "none.csv"), db)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
