package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

const replPrompt = "datatool> "

const replHelp = `Enter a JSON request body to run it, e.g.
  {"filters": {"department": "Sales"}, "sort": "-join_date", "limit": 5}

Commands:
  .schema   print columns and types
  .reload   reload the data source
  .help     show this help
  .exit     leave (also .quit or Ctrl-D)`

// lineReader is the subset of *liner.State the REPL needs.
type lineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// repl evaluates lines against one table.
type repl struct {
	sess *session
	tbl  *table.Table
	out  io.Writer
}

// NewREPLCommand creates the repl command.
func NewREPLCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Interactive query shell",
		Long: `Start an interactive shell over the data source. Each line is a JSON
request body; results print as a table. Type .help for commands.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := newSession(cmd, rootOpts)
			if err != nil {
				return err
			}
			tbl, err := sess.loadTable(cmd.Context())
			if err != nil {
				return err
			}

			state := liner.NewLiner()
			defer state.Close()
			state.SetCtrlCAborts(true)

			history := historyFile()
			if history != "" {
				if f, err := os.Open(history); err == nil {
					_, _ = state.ReadHistory(f)
					f.Close()
				}
			}

			r := &repl{sess: sess, tbl: tbl, out: cmd.OutOrStdout()}
			fmt.Fprintf(r.out, "Loaded %s (%d rows). Type .help for commands.\n", tbl.Source(), tbl.Len())
			loopErr := r.loop(cmd, state)

			if history != "" {
				if f, err := os.Create(history); err == nil {
					if _, err := state.WriteHistory(f); err != nil {
						sess.logger.Debug("history not saved", "path", history, "error", err)
					}
					f.Close()
				}
			}
			return loopErr
		},
	}
}

// loop reads lines until EOF, Ctrl-C or .exit.
func (r *repl) loop(cmd *cobra.Command, in lineReader) error {
	for {
		line, err := in.Prompt(replPrompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read input", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		in.AppendHistory(line)

		if r.exec(cmd, line) {
			return nil
		}
	}
}

// exec runs one line and reports whether the shell should exit.
func (r *repl) exec(cmd *cobra.Command, line string) bool {
	switch line {
	case ".exit", ".quit":
		return true
	case ".help":
		fmt.Fprintln(r.out, replHelp)
	case ".schema":
		fmt.Fprintln(r.out, SchemaResult{Source: r.tbl.Source(), Rows: r.tbl.Len(), Columns: r.tbl.Columns()})
	case ".reload":
		if err := r.sess.reload(cmd.Context(), r); err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
		}
	default:
		if strings.HasPrefix(line, ".") {
			fmt.Fprintf(r.out, "Unknown command %s (try .help)\n", line)
			return false
		}
		r.query(line)
	}
	return false
}

// Publish implements publisher for .reload.
func (r *repl) Publish(tbl *table.Table) {
	r.tbl = tbl
	fmt.Fprintf(r.out, "Reloaded %s (%d rows)\n", tbl.Source(), tbl.Len())
}

func (r *repl) query(line string) {
	q, err := queryir.NormalizeJSON([]byte(line))
	if err != nil {
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	res, err := r.sess.engine.Evaluate(r.tbl, q)
	if err != nil {
		var qe *engine.QueryError
		if errors.As(err, &qe) && len(qe.Valid) > 0 {
			fmt.Fprintf(r.out, "Error: %v\n  valid: %s\n", err, strings.Join(qe.Valid, ", "))
			return
		}
		fmt.Fprintf(r.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(r.out, newQueryOutput(res))
}

// historyFile is where shell history persists, or "" without a home
// directory.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".datatool_history")
}
