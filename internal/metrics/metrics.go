// Package metrics provides Prometheus instrumentation for the reconciliation
// service.
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
	// ReconcileRuns counts completed reconciliation runs by outcome.
	ReconcileRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cropwatcher_reconcile_runs_total",
		Help: "Total reconciliation runs",
	}, []string{"outcome"})

	// ItemsAnalyzed counts catalog items that produced an analysis result.
	ItemsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cropwatcher_items_analyzed_total",
		Help: "Catalog items resolved to a quote and classified",
	})

	// AlertsEmitted counts alerts handed to the notification sink.
	AlertsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cropwatcher_alerts_emitted_total",
		Help: "Price alerts persisted, partitioned by status",
	}, []string{"status"})

	// AlertDeliveryFailures counts failed alert batch writes.
	AlertDeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cropwatcher_alert_delivery_failures_total",
		Help: "Alert batches the notification sink rejected",
	})

	// QuoteRefreshes counts cache refreshes by source composition.
	QuoteRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cropwatcher_quote_refreshes_total",
		Help: "Quote snapshot refreshes",
	}, []string{"source"})

	// FeedFailures counts external feed fetches that fell back to baseline.
	FeedFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cropwatcher_feed_failures_total",
		Help: "External price feed fetches that failed",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cropwatcher_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cropwatcher_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency for every handled request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
