package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	positionSaves       *prometheus.CounterVec
	seedRuns            *prometheus.CounterVec
	overrideRowsSkipped prometheus.Counter
	activeSessions      prometheus.Gauge
}

const (
	ResultOK      = "ok"
	ResultError   = "error"
	ResultDropped = "dropped"
)

// New creates a fresh Metrics registry with HTTP and map persistence metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubmap",
		Name:      "http_requests_total",
		Help:      "Count of HTTP requests processed by clubmap",
	}, []string{"method", "path", "status"})

	httpRequestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "clubmap",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests served by clubmap",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	positionSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubmap",
		Name:      "position_saves_total",
		Help:      "Drag-release position writes by result",
	}, []string{"result"})

	seedRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "clubmap",
		Name:      "seed_runs_total",
		Help:      "Position seeding runs by result",
	}, []string{"result"})

	overrideRowsSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "clubmap",
		Name:      "override_rows_skipped_total",
		Help:      "Stored position rows skipped because their coordinates were unusable",
	})

	activeSessions := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "clubmap",
		Name:      "active_sessions",
		Help:      "Number of mounted map sessions",
	})

	registry.MustRegister(
		httpRequests,
		httpRequestDuration,
		positionSaves,
		seedRuns,
		overrideRowsSkipped,
		activeSessions,
	)

	return &Metrics{
		registry:            registry,
		httpRequests:        httpRequests,
		httpRequestDuration: httpRequestDuration,
		positionSaves:       positionSaves,
		seedRuns:            seedRuns,
		overrideRowsSkipped: overrideRowsSkipped,
		activeSessions:      activeSessions,
	}
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// IncPositionSave counts a position write with the given result.
func (m *Metrics) IncPositionSave(result string) {
	if m == nil {
		return
	}
	m.positionSaves.WithLabelValues(result).Inc()
}

func (m *Metrics) IncSeedRun(result string) {
	if m == nil {
		return
	}
	m.seedRuns.WithLabelValues(result).Inc()
}

func (m *Metrics) IncOverrideRowsSkipped() {
	if m == nil {
		return
	}
	m.overrideRowsSkipped.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
