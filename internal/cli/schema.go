package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/table"
)

// SchemaResult describes the loaded source.
type SchemaResult struct {
	Source  string         `json:"source"`
	Rows    int            `json:"rows"`
	Columns []table.Column `json:"columns"`
}

func (r SchemaResult) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %d rows\n", r.Source, r.Rows)
	tw := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, c := range r.Columns {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Name, c.Type)
	}
	tw.Flush()
	return strings.TrimRight(buf.String(), "\n")
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the source's columns and inferred types",
		Long: `Load the data source and print each column with its inferred type
(string, number or date) and the row count.`,
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
			return sess.formatter.Success(SchemaResult{
				Source:  tbl.Source(),
				Rows:    tbl.Len(),
				Columns: tbl.Columns(),
			})
		},
	}
}
