package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// Multipart framing and the other form fields fit comfortably in this.
	uploadOverhead   = 1 << 20
	defaultPersonID  = "person:current_user_id"
	imageFormField   = "image"
	personFormField  = "person_id"
	imageCacheHeader = "public, max-age=31536000, immutable"
)

// ImageHandler handles HTTP requests for uploaded images.
type ImageHandler struct {
	service services.ImageServiceProvider
}

// NewImageHandler creates a new ImageHandler.
func NewImageHandler(service services.ImageServiceProvider) *ImageHandler {
	return &ImageHandler{service: service}
}

// Upload accepts a multipart form with the image in the "image" field.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const limit = storage.MaxImageSize + uploadOverhead
	if r.ContentLength > limit {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload too large", "Image too large (max 10MB)")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "Payload too large", "Image too large (max 10MB)")
			return
		}
		writeInvalidBody(w, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(imageFormField)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Bad request", "Missing image file in form field \"image\"")
		return
	}
	defer file.Close()

	// One byte past the limit is enough for the store to reject it.
	data, err := io.ReadAll(io.LimitReader(file, storage.MaxImageSize+1))
	if err != nil {
		log.Error().Err(err).Msg("Failed to read uploaded image")
		writeError(w, http.StatusBadRequest, "Bad request", "Could not read uploaded image")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == storage.ContentTypeUnknown {
		contentType = mimetype.Detect(data).String()
	}

	personID := r.FormValue(personFormField)
	if personID == "" {
		personID = defaultPersonID
	}

	image, err := h.service.UploadImage(r.Context(), personID, header.Filename, contentType, data)
	if err != nil {
		log.Warn().Err(err).Str("person_id", personID).Str("content_type", contentType).Msg("Image upload rejected")
		writeStorageError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.ImageUploadResponse{
		Image: image,
		URL:   h.service.ImageURL(image.StoragePath),
	})
}

// Get serves the bytes of a stored image.
func (h *ImageHandler) Get(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	data, contentType, err := h.service.GetImage(r.Context(), filename)
	if err != nil {
		writeStorageError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", imageCacheHeader)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Debug().Err(err).Str("filename", filename).Msg("Client went away while serving image")
	}
}

// Delete removes a stored image. Unknown images are not an error.
func (h *ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if err := h.service.DeleteImage(r.Context(), filename); err != nil {
		writeStorageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListForPerson returns the images recorded for a person.
func (h *ImageHandler) ListForPerson(w http.ResponseWriter, r *http.Request) {
	personID := chi.URLParam(r, "personID")
	images, err := h.service.ListImagesForPerson(r.Context(), personID)
	if err != nil {
		log.Error().Err(err).Str("person_id", personID).Msg("Failed to list images")
		writeError(w, http.StatusInternalServerError, "Storage error", "Failed to list images")
		return
	}

	writeJSON(w, http.StatusOK, images)
}
