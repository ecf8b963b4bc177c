package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	activeRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_active_requests",
			Help: "Number of currently active HTTP requests",
		},
	)

	interpreterCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interpreter_calls_total",
			Help: "Total calls to the external interpretation service",
		},
		[]string{"outcome"},
	)

	editsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edits_applied_total",
			Help: "Total applied content edits",
		},
		[]string{"access_type"},
	)
)

// RecordInterpreterCall counts one interpreter round trip by outcome
// (understood, not_understood, error).
func RecordInterpreterCall(outcome string) {
	interpreterCalls.WithLabelValues(outcome).Inc()
}

// RecordEditApplied counts one applied edit by access type
func RecordEditApplied(accessType string) {
	editsApplied.WithLabelValues(accessType).Inc()
}

// Metrics returns a gin middleware that collects Prometheus metrics
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint itself
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		activeRequests.Inc()

		c.Next()

		activeRequests.Dec()
		duration := time.Since(start).Seconds()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}
