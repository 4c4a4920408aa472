package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for testbed runs. When disabled it
// is fully inert and every method is a no-op.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	deploysTotal      *prometheus.CounterVec
	deployDuration    prometheus.Histogram
	releasesTotal     *prometheus.CounterVec
	releaseDuration   prometheus.Histogram
	testGatesTotal    *prometheus.CounterVec
	keywordsTotal     *prometheus.CounterVec
	keywordDuration   *prometheus.HistogramVec
	activeRuns        prometheus.Gauge
	devicesRegistered prometheus.Gauge
}

// NewMetrics creates a metrics collector from the configuration.
func NewMetrics(cfg MetricsConfig) *Metrics {
	m := &Metrics{enabled: cfg.Enabled}
	if !cfg.Enabled {
		return m
	}

	ns := cfg.Namespace
	if ns == "" {
		ns = "bfrobot"
	}

	m.registry = prometheus.NewRegistry()

	m.deploysTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "deploys_total",
		Help:      "Total testbed deployments by status.",
	}, []string{"status"})

	m.deployDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "deploy_duration_seconds",
		Help:      "Duration of testbed deployments.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
	})

	m.releasesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "releases_total",
		Help:      "Total testbed releases by status.",
	}, []string{"status"})

	m.releaseDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "release_duration_seconds",
		Help:      "Duration of testbed releases.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	m.testGatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "test_gates_total",
		Help:      "Total per-test environment gate decisions by verdict.",
	}, []string{"verdict"})

	m.keywordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "keyword_invocations_total",
		Help:      "Total keyword invocations by keyword and status.",
	}, []string{"keyword", "status"})

	m.keywordDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "keyword_duration_seconds",
		Help:      "Duration of keyword invocations.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"keyword"})

	m.activeRuns = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "active_runs",
		Help:      "Number of runs with a deployed testbed.",
	})

	m.devicesRegistered = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      "devices_registered",
		Help:      "Number of devices registered for the current run.",
	})

	m.registry.MustRegister(
		m.deploysTotal,
		m.deployDuration,
		m.releasesTotal,
		m.releaseDuration,
		m.testGatesTotal,
		m.keywordsTotal,
		m.keywordDuration,
		m.activeRuns,
		m.devicesRegistered,
	)

	return m
}

// RecordDeploy records a deployment outcome and its duration.
func (m *Metrics) RecordDeploy(status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.deploysTotal.WithLabelValues(status).Inc()
	m.deployDuration.Observe(duration.Seconds())
}

// RecordRelease records a release outcome and its duration.
func (m *Metrics) RecordRelease(status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.releasesTotal.WithLabelValues(status).Inc()
	m.releaseDuration.Observe(duration.Seconds())
}

// RecordTestGate records a per-test gate verdict (run, skip, error).
func (m *Metrics) RecordTestGate(verdict string) {
	if !m.enabled {
		return
	}
	m.testGatesTotal.WithLabelValues(verdict).Inc()
}

// RecordKeyword records a keyword invocation.
func (m *Metrics) RecordKeyword(keyword, status string, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.keywordsTotal.WithLabelValues(keyword, status).Inc()
	m.keywordDuration.WithLabelValues(keyword).Observe(duration.Seconds())
}

// SetActiveRuns sets the active run gauge.
func (m *Metrics) SetActiveRuns(n int) {
	if !m.enabled {
		return
	}
	m.activeRuns.Set(float64(n))
}

// SetDevicesRegistered sets the registered device gauge.
func (m *Metrics) SetDevicesRegistered(n int) {
	if !m.enabled {
		return
	}
	m.devicesRegistered.Set(float64(n))
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts an HTTP server exposing the metrics endpoint. It
// returns immediately; the server runs until the process exits.
func (m *Metrics) StartServer(cfg MetricsConfig) {
	if !m.enabled || cfg.ListenAddress == "" {
		return
	}
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	go func() {
		_ = http.ListenAndServe(cfg.ListenAddress, mux)
	}()
}

// Timer measures a duration for metric observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the duration since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
