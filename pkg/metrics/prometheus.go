package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the global Prometheus metrics container for routerd.
type Metrics struct {
	// HTTP operator API metrics.
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Order pipeline metrics.
	ClassificationsTotal *prometheus.CounterVec
	PipelineDuration     *prometheus.HistogramVec

	// Provider (geocode/matrix/AI) metrics.
	ProviderCallsTotal    *prometheus.CounterVec
	ProviderCallDuration  *prometheus.HistogramVec
	ProviderCacheHitTotal *prometheus.CounterVec

	// Route generation metrics.
	RouteStopsTotal    *prometheus.HistogramVec
	RouteExcludedTotal *prometheus.HistogramVec
	RouteBuildDuration *prometheus.HistogramVec

	// System metrics.
	MemoryUsage *prometheus.GaugeVec
	Goroutines  prometheus.Gauge

	// Service information.
	ServiceInfo *prometheus.GaugeVec
}

var defaultMetrics *Metrics

// InitMetrics initializes the global metrics registry.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of operator API requests",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of operator API requests",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of operator API requests being processed",
			},
		),

		ClassificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_classifications_total",
				Help:      "Total number of orders classified by the ingest pipeline",
			},
			[]string{"classification"},
		),

		PipelineDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of one order's classification pipeline run",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"classification"},
		),

		ProviderCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_calls_total",
				Help:      "Total number of outbound geocode/matrix/AI provider calls",
			},
			[]string{"provider", "kind", "status"},
		),

		ProviderCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_call_duration_seconds",
				Help:      "Duration of outbound provider calls",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "kind"},
		),

		ProviderCacheHitTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "provider_cache_hits_total",
				Help:      "Total number of geocode/matrix cache lookups by outcome",
			},
			[]string{"kind", "outcome"},
		),

		RouteStopsTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_stops_total",
				Help:      "Number of stops in a generated route",
				Buckets:   []float64{1, 5, 10, 20, 30, 50, 75, 100},
			},
			[]string{},
		),

		RouteExcludedTotal: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_excluded_stops_total",
				Help:      "Number of stops excluded from a route by the jump filter",
				Buckets:   []float64{0, 1, 2, 5, 10, 20},
			},
			[]string{},
		),

		RouteBuildDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "route_build_duration_seconds",
				Help:      "Duration of one route's sweep/2-opt/jump-filter build",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{},
		),

		MemoryUsage: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "memory_usage_bytes",
				Help:      "Current memory usage",
			},
			[]string{"type"},
		),

		Goroutines: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "goroutines",
				Help:      "Current number of goroutines",
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics registry, initializing it with defaults if needed.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("logistics", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest records one operator API request's outcome and latency.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordClassification records one order's pipeline classification outcome.
func (m *Metrics) RecordClassification(classification string, duration time.Duration) {
	m.ClassificationsTotal.WithLabelValues(classification).Inc()
	m.PipelineDuration.WithLabelValues(classification).Observe(duration.Seconds())
}

// RecordProviderCall records one outbound geocode/matrix/AI provider call.
func (m *Metrics) RecordProviderCall(provider, kind string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	m.ProviderCallsTotal.WithLabelValues(provider, kind, status).Inc()
	m.ProviderCallDuration.WithLabelValues(provider, kind).Observe(duration.Seconds())
}

// RecordCacheLookup records a geocode/matrix cache lookup outcome ("hit" or "miss").
func (m *Metrics) RecordCacheLookup(kind, outcome string) {
	m.ProviderCacheHitTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordRouteBuild records the size and duration of one generated route.
func (m *Metrics) RecordRouteBuild(stops, excluded int, duration time.Duration) {
	m.RouteStopsTotal.WithLabelValues().Observe(float64(stops))
	m.RouteExcludedTotal.WithLabelValues().Observe(float64(excluded))
	m.RouteBuildDuration.WithLabelValues().Observe(duration.Seconds())
}

// SetServiceInfo sets the service version/environment info gauge.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts the HTTP server serving /metrics.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
