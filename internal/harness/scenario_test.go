package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesPaths(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/custom_rules.yaml")
	require.NoError(t, err)

	assert.Equal(t, "custom_rules", s.Name)
	assert.Equal(t, filepath.Join("testdata", "employees.csv"), s.Data)
	assert.Equal(t, filepath.Join("testdata", "rules", "partial_department.cue"), s.Rules)
	assert.Len(t, s.Steps, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_MissingData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: x
description: y
data: missing.csv
steps:
  - name: all
    query: {}
`), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data file not found")
}

func TestParseScenario_Expectations(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: x
description: y
csv: "id\n1\n"
steps:
  - name: all
    query: {limit: 1}
    expect:
      total_count: 1
      count: 1
      column: id
      values: [1]
      warnings: []
`))
	require.NoError(t, err)

	e := s.Steps[0].Expect
	require.NotNil(t, e.TotalCount)
	assert.Equal(t, 1, *e.TotalCount)
	require.NotNil(t, e.Count)
	assert.Equal(t, []any{1}, e.Values)
	assert.NotNil(t, e.Warnings)
	assert.Empty(t, e.Warnings)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: x\ndescription: y\ncsv: a\nstep: []\n",
			want: "field step not found",
		},
		{
			name: "missing name",
			yaml: "description: y\ncsv: a\nsteps: [{name: s, query: {}}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: x\ncsv: a\nsteps: [{name: s, query: {}}]\n",
			want: "description is required",
		},
		{
			name: "no source",
			yaml: "name: x\ndescription: y\nsteps: [{name: s, query: {}}]\n",
			want: "one of data or csv is required",
		},
		{
			name: "two sources",
			yaml: "name: x\ndescription: y\ncsv: a\ndata: b.csv\nsteps: [{name: s, query: {}}]\n",
			want: "mutually exclusive",
		},
		{
			name: "table without data",
			yaml: "name: x\ndescription: y\ncsv: a\ntable: t\nsteps: [{name: s, query: {}}]\n",
			want: "table requires data",
		},
		{
			name: "no steps",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: []\n",
			want: "steps list is required",
		},
		{
			name: "unnamed step",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{query: {}}]\n",
			want: "steps[0]: name is required",
		},
		{
			name: "duplicate step",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{name: s, query: {}}, {name: s, query: {}}]\n",
			want: "duplicate step name",
		},
		{
			name: "values without column",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{name: s, query: {}, expect: {values: [1]}}]\n",
			want: "values requires column",
		},
		{
			name: "column without values",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{name: s, query: {}, expect: {column: id}}]\n",
			want: "column requires values",
		},
		{
			name: "error combined",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{name: s, query: {}, expect: {error: E, total_count: 1}}]\n",
			want: "error cannot be combined",
		},
		{
			name: "negative count",
			yaml: "name: x\ndescription: y\ncsv: a\nsteps: [{name: s, query: {}, expect: {count: -1}}]\n",
			want: "count must be non-negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
