package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/datatool/internal/config"
	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/loader"
	"github.com/roach88/datatool/internal/queryir"
	"github.com/roach88/datatool/internal/rulespec"
	"github.com/roach88/datatool/internal/table"
)

// flagKeys maps config keys to the flag that overrides them.
var flagKeys = map[string]string{
	"data.path":                    "data",
	"data.table":                   "table",
	"query.rules":                  "rules",
	"query.inclusive_after_before": "inclusive",
	"log.level":                    "log-level",
	"log.format":                   "log-format",
	"server.addr":                  "addr",
	"server.shutdown_timeout":      "shutdown-timeout",
	"ratelimit.rpm":                "rpm",
	"ratelimit.burst":              "burst",
}

// session is the state shared by every command: resolved config, logger
// and a query engine built from the configured rules.
type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	engine    *engine.Engine
	rules     queryir.Rules
	formatter *OutputFormatter
}

// newSession resolves configuration for cmd. Errors are already written
// through the formatter and carry an exit code.
func newSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	flags := make(map[string]*pflag.Flag, len(flagKeys))
	for key, name := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			flags[key] = f
		}
	}

	cfg, err := config.Load(config.Options{File: opts.Config, Flags: flags})
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log, opts.Verbose)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil, err)
	}

	rules := queryir.DefaultRules()
	if cfg.Query.Rules != "" {
		rules, err = rulespec.LoadFile(cfg.Query.Rules)
		if err != nil {
			return nil, formatter.Fail(ExitCommandError, ErrCodeRules,
				fmt.Sprintf("failed to load rules: %v", err), nil, err)
		}
		logger.Debug("rules loaded", "path", cfg.Query.Rules,
			"columns", len(rules.Columns), "aliases", len(rules.Aliases))
	}

	return &session{
		cfg:    cfg,
		logger: logger,
		rules:  rules,
		engine: engine.New(engine.Options{
			Rules:                rules,
			InclusiveAfterBefore: cfg.Query.InclusiveAfterBefore,
			Logger:               logger,
		}),
		formatter: formatter,
	}, nil
}

// loadTable loads the configured source, failing on any load error.
func (s *session) loadTable(ctx context.Context) (*table.Table, error) {
	tbl, err := loader.Load(ctx, s.cfg.Data.Path, s.sourceOptions())
	if err != nil {
		return nil, s.formatter.Fail(ExitCommandError, ErrCodeSource, err.Error(),
			map[string]any{"path": s.cfg.Data.Path, "code": loader.CodeOf(err)}, err)
	}
	return tbl, nil
}

// newLogger builds the process logger: slog on w, text unless configured
// as json; --verbose forces debug.
func newLogger(w io.Writer, cfg config.LogConfig, verbose bool) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(w, handlerOpts)
	case "text", "":
		handler = slog.NewTextHandler(w, handlerOpts)
	default:
		return nil, errors.New("log format must be text or json")
	}
	return slog.New(handler), nil
}

// readBody returns the request body for query-like commands: the single
// argument, the --file flag, or stdin when the argument is "-". No body at
// all is the empty query.
func readBody(cmd *cobra.Command, args []string, file string) ([]byte, error) {
	switch {
	case file != "" && len(args) > 0:
		return nil, errors.New("pass the query as an argument or with --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		return data, nil
	case len(args) == 0:
		return nil, nil
	case args[0] == "-":
		return io.ReadAll(cmd.InOrStdin())
	default:
		return []byte(args[0]), nil
	}
}

// parseQuery normalizes a body, reporting failures through the formatter.
func (s *session) parseQuery(body []byte) (queryir.Query, error) {
	q, err := queryir.NormalizeJSON(body)
	if err != nil {
		details := map[string]any{}
		var reqErr *queryir.RequestError
		if errors.As(err, &reqErr) && reqErr.Field != "" {
			details["field"] = reqErr.Field
		}
		return q, s.formatter.Fail(ExitFailure, ErrCodeRequest, err.Error(), details, err)
	}
	return q, nil
}

// queryFailure reports an engine rejection.
func (s *session) queryFailure(err error) error {
	var qe *engine.QueryError
	if errors.As(err, &qe) {
		details := qe.Details()
		details["code"] = string(qe.Code)
		return s.formatter.Fail(ExitFailure, ErrCodeQuery, qe.Error(), details, err)
	}
	return s.formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil, err)
}
