package models

import "time"

// Image is the metadata record for an uploaded image.
type Image struct {
	ID          string    `json:"id"`
	PersonID    string    `json:"person_id"`
	Filename    string    `json:"filename"` // Name the client uploaded it under
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"` // On-disk name inside the storage directory
	CreatedAt   time.Time `json:"created_at"`
}

// ImageUploadResponse is returned after a successful upload.
type ImageUploadResponse struct {
	Image Image  `json:"image"`
	URL   string `json:"url"`
}
