// Package metrics provides Prometheus instrumentation for the round engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts applied trade events, partitioned by action.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zts_events_total",
		Help: "Total number of trade events applied",
	}, []string{"action"})

	// MalformedEventsTotal counts events rejected during normalization.
	MalformedEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zts_malformed_events_total",
		Help: "Trade events rejected as malformed",
	})

	// EventLatency tracks end-to-end apply latency per action.
	EventLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zts_event_latency_seconds",
		Help:    "Event apply latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"action"})

	// RoundsCompleted counts completed rounds across all players.
	RoundsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zts_rounds_completed_total",
		Help: "Rounds completed (End events processed)",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zts_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zts_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zts_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
