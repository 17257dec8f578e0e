package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_backend_request_duration_seconds",
			Help:    "Knowledge-base backend round trip duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_backend_requests_total",
			Help: "Backend requests by endpoint and outcome",
		},
		[]string{"endpoint", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_fetch_cache_hits_total",
			Help: "Fetch cache hits",
		},
		[]string{"resource"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_fetch_cache_misses_total",
			Help: "Fetch cache misses",
		},
		[]string{"resource"},
	)

	StaleResultsDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_stale_results_dropped_total",
			Help: "Fetch results discarded because a newer request superseded them",
		},
		[]string{"resource"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_uploads_total",
			Help: "Document uploads by outcome",
		},
		[]string{"status"},
	)

	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "insight_upload_bytes_total",
			Help: "Bytes streamed to the backend by uploads",
		},
	)

	BackendUp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "insight_backend_up",
			Help: "1 when the last reachability probe of the backend succeeded",
		},
	)
)

// Registry holds every insight collector plus the Go runtime collectors.
var Registry = prometheus.NewRegistry()

var initOnce sync.Once

// Init registers the collectors. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		Registry.MustRegister(
			BackendRequestDuration,
			BackendRequestsTotal,
			CacheHits,
			CacheMisses,
			StaleResultsDropped,
			UploadsTotal,
			UploadBytes,
			BackendUp,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
