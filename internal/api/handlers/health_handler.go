package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "slatehub-api (mock)"

// StorageStatus reports the outcome of the latest scheduled storage check.
type StorageStatus interface {
	Healthy() (healthy, checked bool)
}

// HealthHandler reports whether the API and its image storage are usable.
type HealthHandler struct {
	store  storage.ImageStore
	status StorageStatus
}

// NewHealthHandler creates a new HealthHandler. status may be nil, in which
// case every request checks the store directly.
func NewHealthHandler(store storage.ImageStore, status StorageStatus) *HealthHandler {
	return &HealthHandler{store: store, status: status}
}

// Health always answers 200; a broken storage directory only degrades it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := models.HealthResponse{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: time.Now().UTC(),
		Storage:   models.StorageHealth{Path: h.store.Root()},
	}

	ok := h.storageHealthy(r)
	resp.Storage.Available = ok
	if !ok {
		resp.Status = "degraded"
	} else if usage, err := h.store.Usage(r.Context()); err == nil {
		resp.Storage.FreeBytes = usage.Free
		resp.Storage.TotalBytes = usage.Total
	} else {
		log.Debug().Err(err).Msg("Could not read storage disk usage")
	}

	writeJSON(w, http.StatusOK, resp)
}

// storageHealthy prefers the monitor's last result and only checks the store
// itself before the first scheduled check has run.
func (h *HealthHandler) storageHealthy(r *http.Request) bool {
	if h.status != nil {
		if ok, checked := h.status.Healthy(); checked {
			return ok
		}
	}
	ok, err := h.store.HealthCheck(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("Storage health check failed")
	}
	return ok
}
