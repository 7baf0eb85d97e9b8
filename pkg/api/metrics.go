package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus metrics of the API and the stores it serves.
// It implements prefs.MetricsRecorder.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// Store metrics
	readsTotal     *prometheus.CounterVec
	commitsTotal   *prometheus.CounterVec
	commitDuration *prometheus.HistogramVec
	committedKeys  *prometheus.CounterVec
	decodeErrors   *prometheus.CounterVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

var _ prefs.MetricsRecorder = (*Metrics)(nil)

// NewMetrics creates all metrics on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binprefs_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "binprefs_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		readsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_reads_total",
				Help: "Total number of key lookups by cache result",
			},
			[]string{"store", "cache"},
		),

		commitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_commits_total",
				Help: "Total number of commits",
			},
			[]string{"store", "status"},
		),

		commitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "binprefs_commit_duration_seconds",
				Help:    "Commit duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"store"},
		),

		committedKeys: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_committed_keys_total",
				Help: "Total number of keys written or removed by commits",
			},
			[]string{"store"},
		),

		decodeErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_decode_errors_total",
				Help: "Total number of stored values that failed to decode",
			},
			[]string{"store"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "binprefs_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry holding every metric
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func status(success bool) string {
	if success {
		return statusSuccess
	}
	return statusError
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *Metrics) RecordRead(store string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.readsTotal.WithLabelValues(store, result).Inc()
}

func (m *Metrics) RecordCommit(store string, n int, elapsed time.Duration, err error) {
	m.commitsTotal.WithLabelValues(store, status(err == nil)).Inc()
	m.commitDuration.WithLabelValues(store).Observe(elapsed.Seconds())
	m.committedKeys.WithLabelValues(store).Add(float64(n))
}

func (m *Metrics) RecordDecodeError(store string) {
	m.decodeErrors.WithLabelValues(store).Inc()
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	m.authRequestsTotal.WithLabelValues(status(success)).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// Capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware instruments the authentication middleware
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
