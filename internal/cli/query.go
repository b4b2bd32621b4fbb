package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/table"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	File string
}

// QueryOutput is the payload of the query command.
type QueryOutput struct {
	Columns    []table.Column   `json:"columns"`
	Rows       []table.Record   `json:"rows"`
	TotalCount int              `json:"total_count"`
	Warnings   []engine.Warning `json:"warnings,omitempty"`
	Note       string           `json:"note,omitempty"`
}

// newQueryOutput converts an engine result.
func newQueryOutput(res *engine.Result) QueryOutput {
	return QueryOutput{
		Columns:    res.Columns(),
		Rows:       res.Records(),
		TotalCount: res.TotalCount,
		Warnings:   res.Warnings,
		Note:       res.Note,
	}
}

// String renders the rows as an aligned table followed by a row count,
// warnings and the source note.
func (o QueryOutput) String() string {
	var buf strings.Builder
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	names := make([]string, len(o.Columns))
	for i, c := range o.Columns {
		names[i] = c.Name
	}
	if len(names) > 0 {
		fmt.Fprintln(tw, strings.Join(names, "\t"))
	}
	for _, rec := range o.Rows {
		cells := make([]string, len(names))
		for i, name := range names {
			v, _ := rec.Get(name)
			cells[i] = cellString(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(&buf, "(%d of %d rows)", len(o.Rows), o.TotalCount)
	for _, w := range o.Warnings {
		fmt.Fprintf(&buf, "\nwarning: %s", w)
	}
	if o.Note != "" {
		fmt.Fprintf(&buf, "\nnote: %s", o.Note)
	}
	return buf.String()
}

func cellString(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [request-json | -]",
		Short: "Run one query against the data source",
		Long: `Run one query against the data source and print the matching rows.

The request is the same JSON body POST /query accepts. Pass it as an
argument, with --file, or on stdin with "-". No request returns every row.

Exit codes:
  0 - Query succeeded (possibly with warnings)
  1 - Request or query rejected
  2 - Command error (bad config, missing source, etc.)

Examples:
  datatool query -d employees.csv '{"filters": {"department": "Sales"}}'
  datatool query -d people.db --table staff '{"sort": "-join_date", "limit": 5}'
  echo '{"search": "ann"}' | datatool query -d employees.csv -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the request from a file")

	return cmd
}

func runQuery(opts *QueryOptions, cmd *cobra.Command, args []string) error {
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

	if fp, err := queryir.Fingerprint(q); err == nil {
		sess.formatter.VerboseLog("query %s against %s", fp[:16], tbl.Source())
	}
	res, err := sess.engine.Evaluate(tbl, q)
	if err != nil {
		return sess.queryFailure(err)
	}
	for _, w := range res.Warnings {
		sess.formatter.VerboseLog("warning: %s", w)
	}

	return sess.formatter.Success(newQueryOutput(res))
}
