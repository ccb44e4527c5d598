package models

import "time"

// Event represents a loggable action or alert in the system.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "image.upload", "storage.unavailable"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	PersonID  *string   `json:"person_id,omitempty"` // Nullable for system-wide events
	CreatedAt time.Time `json:"created_at"`
}
