package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	// registry is private so one-shot runs export only removal metrics
	registry = prometheus.NewRegistry()

	// ResultsTotal counts processed removals by file type and result code
	ResultsTotal *prometheus.CounterVec

	// RemovalDuration tracks how long Process takes per file type
	RemovalDuration *prometheus.HistogramVec

	// UnknownTypeTotal counts requests naming an unregistered file type
	UnknownTypeTotal prometheus.Counter

	// ValidationFailuresTotal counts requests rejected before touching the filesystem
	ValidationFailuresTotal *prometheus.CounterVec

	// HistoryErrorsTotal counts failed writes to the removal history database
	HistoryErrorsTotal prometheus.Counter

	// LastRemovalTimestamp records when a file was last actually deleted
	LastRemovalTimestamp prometheus.Gauge
)

// Init initializes and registers all metrics
// This function is safe to call multiple times (uses sync.Once)
func Init() {
	initOnce.Do(func() {
		ResultsTotal = NewCounterVec(
			"pcsd_remove_file_results_total",
			"Total removal requests processed, by file type and result code.",
			[]string{"type", "code"},
		)

		RemovalDuration = NewDurationHistogramVec(
			"pcsd_remove_file_duration_seconds",
			"Duration of removal processing in seconds.",
			[]string{"type"},
		)

		UnknownTypeTotal = NewCounter(
			"pcsd_remove_file_unknown_type_total",
			"Total removal requests for unknown file types.",
		)

		ValidationFailuresTotal = NewCounterVec(
			"pcsd_remove_file_validation_failures_total",
			"Total removal requests rejected by validation.",
			[]string{"type"},
		)

		HistoryErrorsTotal = NewCounter(
			"pcsd_remove_file_history_errors_total",
			"Total failures writing removal history.",
		)

		LastRemovalTimestamp = NewGauge(
			"pcsd_remove_file_last_deleted_timestamp_seconds",
			"Unix timestamp of the last successful deletion.",
		)

		registry.MustRegister(
			ResultsTotal,
			RemovalDuration,
			UnknownTypeTotal,
			ValidationFailuresTotal,
			HistoryErrorsTotal,
			LastRemovalTimestamp,
		)
	})
}

// RecordResult updates counters for one processed removal
func RecordResult(fileType, code string, elapsed time.Duration) {
	ResultsTotal.WithLabelValues(fileType, code).Inc()
	RemovalDuration.WithLabelValues(fileType).Observe(elapsed.Seconds())
	if code == "deleted" {
		LastRemovalTimestamp.Set(float64(time.Now().Unix()))
	}
}

// Gatherer exposes the removal metrics registry
func Gatherer() prometheus.Gatherer {
	return registry
}

// Handler serves the removal metrics for embedding into a daemon's HTTP mux
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer(), promhttp.HandlerOpts{})
}

// WriteTextfile writes the current metrics for the node_exporter textfile
// collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Gatherer())
}
