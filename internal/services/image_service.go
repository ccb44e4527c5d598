package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/isdelr/slatehub-api/internal/metrics"
	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// ImageServiceProvider defines the interface for image services.
type ImageServiceProvider interface {
	UploadImage(ctx context.Context, personID, filename, contentType string, data []byte) (models.Image, error)
	GetImage(ctx context.Context, storageName string) ([]byte, string, error)
	DeleteImage(ctx context.Context, storageName string) error
	ListImagesForPerson(ctx context.Context, personID string) ([]models.Image, error)
	ImageURL(storageName string) string
}

// ImageService stores image bytes through the storage helper and keeps their
// metadata in the database.
type ImageService struct {
	db           *sql.DB
	store        storage.ImageStore
	eventService EventServiceProvider
}

// NewImageService creates a new ImageService.
func NewImageService(db *sql.DB, store storage.ImageStore, eventService EventServiceProvider) *ImageService {
	return &ImageService{
		db:           db,
		store:        store,
		eventService: eventService,
	}
}

// UploadImage validates and stores the bytes, then records the image.
func (s *ImageService) UploadImage(ctx context.Context, personID, filename, contentType string, data []byte) (models.Image, error) {
	storageName, err := s.store.Upload(ctx, data, contentType, filename)
	if err != nil {
		if errors.Is(err, storage.ErrStorage) {
			if ok, hcErr := s.store.HealthCheck(ctx); hcErr == nil && !ok {
				err = fmt.Errorf("%w: %w", storage.ErrStorageUnhealthy, err)
			}
		}
		metrics.ImageOperations.WithLabelValues("upload", metrics.ResultLabel(err)).Inc()
		return models.Image{}, err
	}

	image := models.Image{
		ID:          uuid.New().String(),
		PersonID:    personID,
		Filename:    filename,
		ContentType: storage.ContentTypeFor(storageName),
		Size:        int64(len(data)),
		StoragePath: storageName,
		CreatedAt:   time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO images (id, person_id, filename, content_type, size, storage_path, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		image.ID, image.PersonID, image.Filename, image.ContentType, image.Size, image.StoragePath, image.CreatedAt)
	if err != nil {
		// Don't leave an unreferenced file behind.
		if delErr := s.store.Delete(context.WithoutCancel(ctx), storageName); delErr != nil {
			log.Warn().Err(delErr).Str("storage_name", storageName).Msg("Failed to remove image after insert failure")
		}
		metrics.ImageOperations.WithLabelValues("upload", "error").Inc()
		return models.Image{}, fmt.Errorf("%w: failed to record image: %w", storage.ErrStorage, err)
	}

	metrics.ImageOperations.WithLabelValues("upload", "ok").Inc()
	metrics.ImageUploadBytes.Observe(float64(image.Size))

	msg := fmt.Sprintf("Image '%s' uploaded as %s.", filename, storageName)
	if err := s.eventService.CreateEvent(ctx, "image.upload", "info", msg, &personID); err != nil {
		log.Warn().Err(err).Str("image_id", image.ID).Msg("Failed to record upload event")
	}
	return image, nil
}

// GetImage returns the bytes and content type of a stored image.
func (s *ImageService) GetImage(ctx context.Context, storageName string) ([]byte, string, error) {
	return s.store.Get(ctx, storageName)
}

// DeleteImage removes the file and its record. Both steps tolerate the image
// already being gone.
func (s *ImageService) DeleteImage(ctx context.Context, storageName string) error {
	if err := s.store.Delete(ctx, storageName); err != nil {
		metrics.ImageOperations.WithLabelValues("delete", metrics.ResultLabel(err)).Inc()
		return err
	}

	var personID sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT person_id FROM images WHERE storage_path = ?", storageName).Scan(&personID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: failed to look up image: %w", storage.ErrStorage, err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM images WHERE storage_path = ?", storageName); err != nil {
		metrics.ImageOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("%w: failed to delete image record: %w", storage.ErrStorage, err)
	}
	metrics.ImageOperations.WithLabelValues("delete", "ok").Inc()

	if personID.Valid {
		msg := fmt.Sprintf("Image %s was deleted.", storageName)
		if err := s.eventService.CreateEvent(ctx, "image.delete", "warn", msg, &personID.String); err != nil {
			log.Warn().Err(err).Str("storage_name", storageName).Msg("Failed to record delete event")
		}
	}
	return nil
}

// ListImagesForPerson returns a person's images, newest first.
func (s *ImageService) ListImagesForPerson(ctx context.Context, personID string) ([]models.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, person_id, filename, content_type, size, storage_path, created_at
		FROM images WHERE person_id = ? ORDER BY created_at DESC, rowid DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list images: %w", storage.ErrStorage, err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		var image models.Image
		var filename sql.NullString
		if err := rows.Scan(&image.ID, &image.PersonID, &filename, &image.ContentType, &image.Size, &image.StoragePath, &image.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: failed to scan image: %w", storage.ErrStorage, err)
		}
		image.Filename = filename.String
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to list images: %w", storage.ErrStorage, err)
	}
	return images, nil
}

// ImageURL returns the API path an image is served from.
func (s *ImageService) ImageURL(storageName string) string {
	return s.store.URL(storageName)
}
