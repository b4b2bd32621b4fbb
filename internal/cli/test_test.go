package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingScenario = `name: passing
description: "Sales rows sorted by id"
csv: |
  id,department
  1,Sales
  2,HR
  3,sales
steps:
  - name: sales
    query: {department: Sales, sort_by: id}
    expect:
      total_count: 2
      column: id
      values: [1, 3]
`

const failingScenario = `name: failing
description: "Expects a row that is not there"
csv: |
  id,department
  1,Sales
steps:
  - name: hr
    query: {department: HR}
    expect:
      total_count: 1
`

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTestCommandMissingArg(t *testing.T) {
	_, _, err := execute(t, "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentPath(t *testing.T) {
	_, _, err := execute(t, "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario path not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTestCommandEmptyDir(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")

	out, _, err = execute(t, "test", dir, "--format", "json")
	require.NoError(t, err)
	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandPassAndFail(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "passing.yaml", passingScenario)
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✓ passing")
	assert.Contains(t, out, "✗ failing")
	assert.Contains(t, out, "Test Summary: 1 passed, 1 failed, 2 total")

	out, _, err = execute(t, "test", dir, "--filter", "pass*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All scenarios passed")
	assert.NotContains(t, out, "failing")
}

func TestTestCommandJSONFailure(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "failing.yaml", failingScenario)

	out, _, err := execute(t, "test", dir, "--format", "json")
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandBrokenScenario(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "broken.yaml", "name: broken\nsteps: [\n")

	out, _, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "✗ broken.yaml")
	assert.Contains(t, out, "failed to load scenario")
}

func TestTestCommandGoldenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scenario := writeScenario(t, dir, "passing.yaml", passingScenario)
	golden := goldenFilePath(scenario)

	out, _, err := execute(t, "test", scenario, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing (golden updated)")

	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scenario": "passing"`)
	assert.Contains(t, string(data), `"department": "sales"`)

	out, _, err = execute(t, "test", scenario)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ passing")

	// A stale golden file fails the scenario.
	require.NoError(t, os.WriteFile(golden, []byte("{}\n"), 0o644))
	out, _, err = execute(t, "test", scenario)
	require.Error(t, err)
	assert.Contains(t, out, "does not match golden file")
}

func TestFindScenarioFiles(t *testing.T) {
	dir := t.TempDir()
	writeScenario(t, dir, "a.yaml", passingScenario)
	writeScenario(t, dir, "b.yml", passingScenario)
	writeScenario(t, dir, "notes.txt", "ignored")
	writeScenario(t, dir, "nested/role-one.yaml", passingScenario)
	writeScenario(t, dir, "golden/a.yaml", passingScenario)

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	rel := make([]string, len(files))
	for i, f := range files {
		r, err := filepath.Rel(dir, f)
		require.NoError(t, err)
		rel[i] = filepath.ToSlash(r)
	}
	assert.ElementsMatch(t, []string{"a.yaml", "b.yml", "nested/role-one.yaml"}, rel)

	files, err = findScenarioFiles(dir, "role-*")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, strings.HasSuffix(files[0], "role-one.yaml"))

	_, err = findScenarioFiles(dir, "[")
	assert.Error(t, err)

	files, err = findScenarioFiles(filepath.Join(dir, "a.yaml"), "")
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "employees.golden"),
		goldenFilePath(filepath.Join("scenarios", "employees.yaml")))
}
