// Package metrics exposes Prometheus instrumentation for the image endpoints
// and the storage monitor. Metrics are served at /metrics.
package metrics

import (
	"errors"

	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slatehub_image_operations_total",
			Help: "Total number of image storage operations",
		},
		[]string{"operation", "result"}, // operation: upload, delete; result: ok, bad_request, not_found, error
	)

	ImageUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "slatehub_image_upload_bytes",
			Help:    "Size of accepted image uploads in bytes",
			Buckets: prometheus.ExponentialBuckets(16*1024, 4, 6), // 16KiB .. 16MiB
		},
	)

	StorageHealthy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slatehub_storage_healthy",
			Help: "1 if the image storage directory was available at the last check, 0 otherwise",
		},
	)
)

// ResultLabel classifies an error by its storage kind.
func ResultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, storage.ErrBadRequest):
		return "bad_request"
	case errors.Is(err, storage.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// SetStorageHealthy records the outcome of a storage health check.
func SetStorageHealthy(ok bool) {
	if ok {
		StorageHealthy.Set(1)
		return
	}
	StorageHealthy.Set(0)
}
