package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	ImagesProcessedTotal *prometheus.CounterVec
	ImageProcessDuration prometheus.Histogram
	RunsTotal            *prometheus.CounterVec
	RunDuration          prometheus.Histogram
	RunsInProgress       prometheus.Gauge

	initOnce sync.Once
)

// Init registers all collectors with the default registry. It is safe to call
// more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	ImagesProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_images_processed_total",
			Help: "Total number of source images attempted.",
		},
		[]string{"status", "kind"}, // status: success, failure
	)

	ImageProcessDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_image_process_duration_seconds",
			Help:    "Time spent producing the renditions of one image.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gallery_runs_total",
			Help: "Total number of gallery generation runs by final status.",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gallery_run_duration_seconds",
			Help:    "Duration of gallery generation runs.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	RunsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gallery_runs_in_progress",
			Help: "Number of generation runs currently executing.",
		},
	)
}
