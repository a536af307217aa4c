package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapnet_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snapnet_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	SweepPurgedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snapnet_sweep_purged_total",
			Help: "Total number of expired entities purged by the sweep.",
		},
		[]string{"kind"},
	)
	SweepFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapnet_sweep_failures_total",
			Help: "Total number of per-entity purge failures left for retry.",
		},
	)
	StreaksResetTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapnet_streaks_reset_total",
			Help: "Total number of streaks reset after a lapsed window.",
		},
	)
	StreaksFlaggedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapnet_streaks_flagged_total",
			Help: "Total number of streaks newly flagged at risk.",
		},
	)
	WSActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "snapnet_ws_active_connections",
			Help: "Number of active websocket connections.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		SweepPurgedTotal,
		SweepFailuresTotal,
		StreaksResetTotal,
		StreaksFlaggedTotal,
		WSActiveConnections,
	)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latencies per chi route pattern
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
