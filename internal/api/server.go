package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/datatool/internal/engine"
	"github.com/roach88/datatool/internal/table"
)

// rateLimitTTL is how long an idle client's limiter is kept.
const rateLimitTTL = 15 * time.Minute

// maxBodyBytes caps POST /query bodies.
const maxBodyBytes = 1 << 20

// Options configures a Server. Only Snapshot is required.
type Options struct {
	// Snapshot holds the table being served. Reloads publish into it.
	Snapshot *table.Snapshot

	// Engine evaluates queries. Nil means engine.New with default options.
	Engine *engine.Engine

	// Logger receives request and error logs. Nil discards them.
	Logger *slog.Logger

	// Clock times queries and stamps error envelopes. Nil means wall clock.
	Clock Clock

	// IDs generates request IDs. Nil means UUIDv7Generator.
	IDs IDGenerator

	// Registry receives the server's metrics and backs GET /metrics.
	// Nil means a fresh registry.
	Registry *prometheus.Registry

	// RateLimit limits requests per client IP. Zero RPM disables it.
	RateLimit RateLimit
}

// Server is the HTTP front end of the query engine.
type Server struct {
	snapshot  *table.Snapshot
	engine    *engine.Engine
	logger    *slog.Logger
	clock     Clock
	ids       IDGenerator
	metrics   *Metrics
	validator *RequestValidator
	router    *gin.Engine
}

// New builds a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Snapshot == nil {
		return nil, errors.New("api: snapshot is required")
	}

	s := &Server{
		snapshot: opts.Snapshot,
		engine:   opts.Engine,
		logger:   opts.Logger,
		clock:    opts.Clock,
		ids:      opts.IDs,
	}
	if s.engine == nil {
		s.engine = engine.New(engine.Options{Logger: opts.Logger})
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.ids == nil {
		s.ids = UUIDv7Generator{}
	}

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s.metrics = NewMetrics(reg)
	s.metrics.TableRows.Set(float64(s.snapshot.Load().Len()))

	validator, err := NewRequestValidator()
	if err != nil {
		return nil, err
	}
	s.validator = validator

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID(s.ids))
	router.Use(s.metrics.middleware())
	router.Use(s.accessLog())

	router.GET("/", s.handleRoot)
	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	limited := router.Group("/")
	if opts.RateLimit.RPM > 0 {
		limiter := NewRateLimiter(opts.RateLimit.RPM, opts.RateLimit.Burst, rateLimitTTL)
		limited.Use(limiter.middleware(s))
	}
	limited.GET("/schema", s.handleSchema)
	limited.POST("/query", s.handleQuery)

	router.NoRoute(func(c *gin.Context) {
		s.writeError(c, http.StatusNotFound, "NOT_FOUND", "not found", nil)
	})

	s.router = router
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish swaps in a new table for subsequent requests.
// In-flight requests finish against the table they started with.
func (s *Server) Publish(tbl *table.Table) {
	s.snapshot.Store(tbl)
	s.metrics.TableRows.Set(float64(tbl.Len()))
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully,
// waiting at most shutdownTimeout for in-flight requests.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// accessLog logs one line per request at DEBUG, or WARN for 5xx.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		s.logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"request_id", requestIDFrom(c),
		)
	}
}

// writeError sends the standard error envelope.
func (s *Server) writeError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.JSON(status, ErrorResponse{
		Success:   false,
		Error:     message,
		Details:   details,
		Code:      code,
		Timestamp: s.clock.Now().UTC().Format(time.RFC3339),
		RequestID: requestIDFrom(c),
	})
}
