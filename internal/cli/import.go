package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/store"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Name    string // destination table name
	Replace bool   // drop an existing table first
}

// ImportResult summarizes an import.
type ImportResult struct {
	Database string `json:"database"`
	Table    string `json:"table"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
}

func (r ImportResult) String() string {
	return fmt.Sprintf("✓ imported %d rows (%d columns) into %s:%s", r.Rows, r.Columns, r.Database, r.Table)
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <database>",
		Short: "Copy the data source into a SQLite table",
		Long: `Load the data source (typically a CSV) with type inference and write it
into a SQLite database, creating the database if needed. The result can
be served directly with --data <database> --table <name>.

Examples:
  datatool import -d employees.csv people.db
  datatool import -d employees.csv.gz people.db --name staff --replace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "destination table (default: source file name)")
	cmd.Flags().BoolVar(&opts.Replace, "replace", false, "replace an existing table")

	return cmd
}

func runImport(opts *ImportOptions, cmd *cobra.Command, dbPath string) error {
	sess, err := newSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}

	tbl, err := sess.loadTable(cmd.Context())
	if err != nil {
		return err
	}

	name := opts.Name
	if name == "" {
		name = tableNameFor(sess.cfg.Data.Path)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return sess.formatter.Fail(ExitCommandError, ErrCodeWriteFailed,
			fmt.Sprintf("failed to open database: %v", err), nil, err)
	}
	defer st.Close()

	if err := st.ImportTable(cmd.Context(), name, tbl, opts.Replace); err != nil {
		return sess.formatter.Fail(ExitCommandError, ErrCodeWriteFailed,
			fmt.Sprintf("failed to import table: %v", err), map[string]any{"table": name}, err)
	}
	sess.logger.Info("table imported", "database", dbPath, "table", name, "rows", tbl.Len())

	return sess.formatter.Success(ImportResult{
		Database: dbPath,
		Table:    name,
		Rows:     tbl.Len(),
		Columns:  len(tbl.Columns()),
	})
}
