package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
//
// Collectors are registered on a caller-supplied registry rather than the
// global default, so tests (and several servers in one process) do not
// collide.
type Metrics struct {
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal *prometheus.CounterVec
	// RequestDuration is the latency of HTTP requests.
	RequestDuration *prometheus.HistogramVec
	// QueriesTotal counts evaluated queries by outcome (ok, or an error code).
	QueriesTotal *prometheus.CounterVec
	// QueryMatches observes total_count per successful query.
	QueryMatches prometheus.Histogram
	// WarningsTotal counts recovered query problems by warning code.
	WarningsTotal *prometheus.CounterVec
	// TableRows reports the row count of the current snapshot.
	TableRows prometheus.Gauge
}

// NewMetrics creates and registers the collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datatool_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "datatool_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datatool_queries_total",
				Help: "Total number of evaluated queries by outcome",
			},
			[]string{"outcome"},
		),
		QueryMatches: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "datatool_query_matches",
				Help:    "Rows matched per query before pagination",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
		),
		WarningsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "datatool_query_warnings_total",
				Help: "Recovered query problems (skipped operators etc.) by code",
			},
			[]string{"code"},
		),
		TableRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "datatool_table_rows",
				Help: "Rows in the currently served table snapshot",
			},
		),
	}
}

// middleware records request count and latency.
// The path label is the route pattern, never the raw URL, to keep
// cardinality bounded.
func (m *Metrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		m.RequestTotal.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status())).Inc()
		m.RequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}
