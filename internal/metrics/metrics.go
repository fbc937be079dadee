// Package metrics provides Prometheus instrumentation for the cargo engine.
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
	// FormulaEvaluations counts formula evaluations by outcome:
	// ok, normalize_failed, eval_failed.
	FormulaEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cargo_formula_evaluations_total",
		Help: "Total formula evaluations by outcome",
	}, []string{"outcome"})

	// Recalculations counts profile recalculations, partitioned by trigger.
	Recalculations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cargo_recalculations_total",
		Help: "Total profile recalculations",
	}, []string{"trigger"})

	// Actualizations counts one-way transitions to the Realized bucket.
	Actualizations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cargo_actualizations_total",
		Help: "Profiles actualized (moved to Realized)",
	})

	// MarketRefreshes counts simulated spot-price refresh sweeps.
	MarketRefreshes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cargo_market_refreshes_total",
		Help: "Simulated market data refreshes",
	})

	// ImportedProfiles counts profiles merged through bulk import.
	ImportedProfiles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cargo_imported_profiles_total",
		Help: "Profiles merged via bulk import",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cargo_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cargo_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cargo_http_request_duration_seconds",
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
