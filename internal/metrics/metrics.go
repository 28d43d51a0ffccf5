// Package metrics provides Prometheus instrumentation for the dashboard.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchesTotal counts market data fetches by source and outcome (ok, empty, error).
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfscope_fetches_total",
		Help: "Total market data fetches",
	}, []string{"source", "outcome"})

	// FetchLatency tracks market data fetch latency in seconds.
	FetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etfscope_fetch_latency_seconds",
		Help:    "Market data fetch latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"source"})

	// AnalysesTotal counts analyses by outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfscope_analyses_total",
		Help: "Total instrument analyses",
	}, []string{"outcome"})

	// ChartsRendered counts rendered charts by kind.
	ChartsRendered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfscope_charts_rendered_total",
		Help: "Total charts rendered",
	}, []string{"kind"})

	// TelegramMessagesTotal counts outgoing Telegram messages by kind and outcome.
	TelegramMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfscope_telegram_messages_total",
		Help: "Total Telegram messages sent",
	}, []string{"kind", "outcome"})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "etfscope_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "etfscope_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request metrics. The chi route pattern is used as the
// path label to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
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
