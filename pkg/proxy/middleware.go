package proxy

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hlproxy_requests_total",
		Help: "Total inbound requests by route and status",
	}, []string{"route", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hlproxy_request_duration_seconds",
		Help:    "Inbound request duration in seconds by route",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"route"})
)

// RequestIDHeader is echoed back on every response. A client-supplied ID is
// kept so CLI invocations can correlate their own logs with the proxy's.
const RequestIDHeader = "X-Request-ID"

// statusRecorder captures the status code written by the next handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestID ensures each request carries an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
			r.Header.Set(RequestIDHeader, id)
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// accessLog logs one structured line per request and records the request
// metrics. The cache outcome is read back from the annotation header the
// handler set.
func accessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := routeLabel(r.URL.Path)
			requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			requestDuration.WithLabelValues(route).Observe(duration.Seconds())

			event := logger.Info()
			if rec.status >= 500 {
				event = logger.Error()
			} else if rec.status >= 400 {
				event = logger.Warn()
			}
			event.
				Str("request_id", w.Header().Get(RequestIDHeader)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Int64("duration_ms", duration.Milliseconds())
			if cacheStatus := w.Header().Get(CacheStatusHeader); cacheStatus != "" {
				event = event.Str("cache", cacheStatus)
			}
			event.Msg("HTTP request")
		})
	}
}

// routeLabel collapses paths into a bounded metric label set.
func routeLabel(path string) string {
	switch strings.TrimSuffix(path, "/") {
	case "/info":
		return "info"
	case "/exchange":
		return "exchange"
	case "/health":
		return "health"
	case "/cache/stats":
		return "cache_stats"
	case "/cache/clear":
		return "cache_clear"
	case "/metrics":
		return "metrics"
	default:
		return "passthrough"
	}
}
