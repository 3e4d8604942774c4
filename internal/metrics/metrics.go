// Package metrics provides Prometheus metrics for the editor client and the dev WebDAV server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Remote store metrics
	remoteOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxide_remote_operations_total",
			Help: "Total number of remote store operations",
		},
		[]string{"operation", "status"},
	)

	remoteOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oxide_remote_operation_duration_seconds",
			Help:    "Remote store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	remoteBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxide_remote_bytes_total",
			Help: "Bytes transferred to and from the remote store",
		},
		[]string{"direction"},
	)

	// Event bus metrics
	busEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxide_bus_events_total",
			Help: "Total number of events published on the bus",
		},
		[]string{"topic"},
	)

	busEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oxide_bus_events_dropped_total",
			Help: "Events dropped for slow channel subscribers",
		},
	)

	// Tree and document metrics
	snapshotEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oxide_snapshot_entries",
			Help: "Number of entries in the file tree snapshot",
		},
	)

	reconciliationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "oxide_snapshot_reconciliations_total",
			Help: "Total number of snapshot reconciliations",
		},
	)

	openDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "oxide_open_documents",
			Help: "Number of documents open in the editor",
		},
	)

	// Dev WebDAV server metrics
	davRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oxide_dav_requests_total",
			Help: "Total number of WebDAV requests served",
		},
		[]string{"method", "status"},
	)

	davRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oxide_dav_request_duration_seconds",
			Help:    "WebDAV request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRemoteOperation records one remote store call.
func RecordRemoteOperation(operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	remoteOperationsTotal.WithLabelValues(operation, status).Inc()
	remoteOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordBytes adds to the transferred byte counter; direction is "read" or "write".
func RecordBytes(direction string, n int64) {
	if n > 0 {
		remoteBytesTotal.WithLabelValues(direction).Add(float64(n))
	}
}

// RecordBusEvent records a published event.
func RecordBusEvent(topic string) {
	busEventsTotal.WithLabelValues(topic).Inc()
}

// RecordBusDrop records an event dropped for a slow channel subscriber.
func RecordBusDrop() {
	busEventsDropped.Inc()
}

// SetSnapshotEntries sets the snapshot size gauge.
func SetSnapshotEntries(n int) {
	snapshotEntries.Set(float64(n))
}

// RecordReconciliation records a snapshot reconciliation pass.
func RecordReconciliation() {
	reconciliationsTotal.Inc()
}

// SetOpenDocuments sets the open document gauge.
func SetOpenDocuments(n int) {
	openDocuments.Set(float64(n))
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request counts and durations for the WebDAV server.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		davRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rw.status)).Inc()
		davRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
