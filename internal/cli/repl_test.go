package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datatool/internal/config"
	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/testutil"
)

// scriptedReader replays lines, then returns end.
type scriptedReader struct {
	lines   []string
	end     error
	history []string
}

func (s *scriptedReader) Prompt(string) (string, error) {
	if len(s.lines) == 0 {
		return "", s.end
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedReader) AppendHistory(item string) {
	s.history = append(s.history, item)
}

func testSession(path string) *session {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rules := queryir.DefaultRules()
	return &session{
		cfg:       &config.Config{Data: config.DataConfig{Path: path}},
		logger:    logger,
		rules:     rules,
		engine:    engine.New(engine.Options{Rules: rules, Logger: logger}),
		formatter: &OutputFormatter{Format: "text", Writer: io.Discard},
	}
}

func testCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	return cmd
}

func TestREPL_Loop(t *testing.T) {
	out := &bytes.Buffer{}
	r := &repl{sess: testSession(""), tbl: testutil.Employees(t), out: out}
	in := &scriptedReader{
		lines: []string{
			"",
			".help",
			`{"filters": {"department": "hr"}}`,
			`{"sort": "salary"}`,
			`not json`,
			".bogus",
			".exit",
			`{"never": "run"}`,
		},
		end: io.EOF,
	}

	require.NoError(t, r.loop(testCommand(), in))

	text := out.String()
	assert.Contains(t, text, ".schema   print columns and types")
	assert.Contains(t, text, "Grace Lee")
	assert.Contains(t, text, "(1 of 1 rows)")
	assert.Contains(t, text, "UNKNOWN_COLUMN")
	assert.Contains(t, text, "valid: id, name, department, role, project_hours, join_date")
	assert.Contains(t, text, "body is not a JSON object")
	assert.Contains(t, text, "Unknown command .bogus")
	assert.NotContains(t, text, "never")

	// Blank lines are not recorded.
	assert.Len(t, in.history, 6)
	assert.Len(t, in.lines, 1)
}

func TestREPL_EndsOnEOFAndAbort(t *testing.T) {
	for _, end := range []error{io.EOF, liner.ErrPromptAborted} {
		r := &repl{sess: testSession(""), tbl: testutil.Employees(t), out: io.Discard}
		require.NoError(t, r.loop(testCommand(), &scriptedReader{end: end}))
	}

	r := &repl{sess: testSession(""), tbl: testutil.Employees(t), out: io.Discard}
	err := r.loop(testCommand(), &scriptedReader{end: os.ErrClosed})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestREPL_SchemaAndReload(t *testing.T) {
	path := testutil.WriteEmployeesCSV(t)
	out := &bytes.Buffer{}
	r := &repl{sess: testSession(path), tbl: testutil.Employees(t), out: out}

	r.exec(testCommand(), ".schema")
	assert.Contains(t, out.String(), "testutil:employees: 8 rows")

	require.NoError(t, os.WriteFile(path, []byte("id,name\n1,Solo\n"), 0o644))
	r.exec(testCommand(), ".reload")
	assert.Contains(t, out.String(), "(1 rows)")
	assert.Equal(t, 1, r.tbl.Len())

	require.NoError(t, os.Remove(path))
	r.exec(testCommand(), ".reload")
	assert.Contains(t, out.String(), "Error:")
	assert.Equal(t, 1, r.tbl.Len())
}
