package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/querysql"
)

// ExplainOptions holds flags for the explain command.
type ExplainOptions struct {
	*RootOptions
	File string
}

// ExplainResult is the SQL equivalent of a query.
type ExplainResult struct {
	SQL         string `json:"sql"`
	Params      []any  `json:"params"`
	CountSQL    string `json:"count_sql"`
	CountParams []any  `json:"count_params"`
}

func (r ExplainResult) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s;\n-- params: %v\n", r.SQL, r.Params)
	fmt.Fprintf(&buf, "%s;\n-- params: %v", r.CountSQL, r.CountParams)
	return buf.String()
}

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExplainOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "explain [request-json | -]",
		Short: "Print the SQLite SQL equivalent of a query",
		Long: `Compile a query to parameterized SQLite SQL over the source's columns.

The statement selects the same rows, in the same order, as the engine does
for the same data imported with "datatool import". A second statement
computes total_count.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExplain(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the request from a file")

	return cmd
}

func runExplain(opts *ExplainOptions, cmd *cobra.Command, args []string) error {
	sess, err := newSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}

	body, err := readBody(cmd, args, opts.File)
	if err != nil {
		return sess.formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error(), nil, err)
	}
	q, err := sess.parseQuery(body)
	if err != nil {
		return err
	}

	tbl, err := sess.loadTable(cmd.Context())
	if err != nil {
		return err
	}

	name := sess.cfg.Data.Table
	if name == "" {
		name = tableNameFor(sess.cfg.Data.Path)
	}
	compiler := querysql.NewSQLCompiler(name, tbl.Columns())
	compiler.Rules = sess.rules
	compiler.InclusiveAfterBefore = sess.cfg.Query.InclusiveAfterBefore

	sql, params, err := compiler.Compile(q)
	if err != nil {
		return sess.queryFailure(err)
	}
	countSQL, countParams, err := compiler.CompileCount(q)
	if err != nil {
		return sess.queryFailure(err)
	}

	return sess.formatter.Success(ExplainResult{
		SQL:         sql,
		Params:      nonNil(params),
		CountSQL:    countSQL,
		CountParams: nonNil(countParams),
	})
}

func nonNil(params []any) []any {
	if params == nil {
		return []any{}
	}
	return params
}

// tableNameFor derives a table name from a source path:
// "data/employees.csv.gz" becomes "employees".
func tableNameFor(path string) string {
	base := filepath.Base(path)
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "data"
	}
	return b.String()
}
