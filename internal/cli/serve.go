package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/roach88/datatool/internal/api"
	"github.com/roach88/datatool/internal/loader"
	"github.com/roach88/datatool/internal/table"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query API over HTTP",
		Long: `Load the data source and serve POST /query, GET /schema, GET /health and
GET /metrics.

A source that cannot be loaded is replaced by an empty table: the server
still starts, queries return zero rows, and the response metadata carries
the load failure. Send SIGHUP to reload the source; a failed reload keeps
the current table. SIGINT/SIGTERM shut down gracefully.

Example:
  datatool serve -d employees.csv --addr :8000
  DATATOOL_DATA_PATH=people.db DATATOOL_DATA_TABLE=staff datatool serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, cmd)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8000)")
	cmd.Flags().Duration("shutdown-timeout", 0, "graceful shutdown timeout (default 10s)")
	cmd.Flags().Int("rpm", 0, "requests per minute per client IP (0 disables)")
	cmd.Flags().Int("burst", 0, "rate limit burst size")

	return cmd
}

func runServe(opts *RootOptions, cmd *cobra.Command) error {
	sess, err := newSession(cmd, opts)
	if err != nil {
		return err
	}
	log := sess.logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tbl := loader.LoadOrEmpty(ctx, sess.cfg.Data.Path, sess.sourceOptions())
	log.Info("table loaded", "source", tbl.Source(), "rows", tbl.Len(), "columns", len(tbl.Columns()))

	gin.SetMode(gin.ReleaseMode)
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	srv, err := api.New(api.Options{
		Snapshot: table.NewSnapshot(tbl),
		Engine:   sess.engine,
		Logger:   log,
		Registry: reg,
		RateLimit: api.RateLimit{
			RPM:   sess.cfg.RateLimit.RPM,
			Burst: sess.cfg.RateLimit.Burst,
		},
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create server", err)
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				_ = sess.reload(ctx, srv)
			}
		}
	}()

	if err := srv.Run(ctx, sess.cfg.Server.Addr, sess.cfg.Server.ShutdownTimeout); err != nil {
		return WrapExitError(ExitCommandError, "server failed", err)
	}
	log.Info("server stopped")
	return nil
}

// publisher receives reloaded tables. *api.Server implements it.
type publisher interface {
	Publish(*table.Table)
}

// reload loads the source again and publishes it. On failure the current
// table stays in place and the error is logged.
func (s *session) reload(ctx context.Context, p publisher) error {
	start := time.Now()
	tbl, err := loader.Load(ctx, s.cfg.Data.Path, s.sourceOptions())
	if err != nil {
		s.logger.Error("reload failed, keeping current table",
			"path", s.cfg.Data.Path,
			"code", loader.CodeOf(err),
			"error", err,
		)
		return err
	}
	p.Publish(tbl)
	s.logger.Info("table reloaded",
		"source", tbl.Source(),
		"rows", tbl.Len(),
		"duration", time.Since(start),
	)
	return nil
}

func (s *session) sourceOptions() loader.Options {
	return loader.Options{Table: s.cfg.Data.Table, Logger: s.logger}
}
