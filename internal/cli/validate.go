package cli

import (
	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	File string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Columns []string `json:"columns"`
}

func (r ValidationResult) String() string {
	return "✓ query is valid"
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate [request-json | -]",
		Short: "Check a query against the source schema without running it",
		Long: `Check a query against the data source's columns without evaluating it.

Reports unknown columns, invalid sort directions and invalid range
operators exactly as the server would, after alias rewriting.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read the request from a file")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command, args []string) error {
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
	sess.formatter.VerboseLog("Validating against %d column(s) of %s", len(tbl.Columns()), tbl.Source())

	if err := sess.engine.Validate(tbl, q); err != nil {
		return sess.queryFailure(err)
	}

	return sess.formatter.Success(ValidationResult{Valid: true, Columns: sess.rules.Rewrite(q).Columns()})
}
