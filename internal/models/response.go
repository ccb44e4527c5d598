package models

import "time"

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StorageHealth reports the image directory state inside HealthResponse.
type StorageHealth struct {
	Available  bool   `json:"available"`
	Path       string `json:"path"`
	FreeBytes  uint64 `json:"free_bytes,omitempty"`
	TotalBytes uint64 `json:"total_bytes,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string        `json:"status"` // "healthy" or "degraded"
	Service   string        `json:"service"`
	Timestamp time.Time     `json:"timestamp"`
	Storage   StorageHealth `json:"storage"`
}
