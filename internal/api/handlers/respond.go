package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/storage"
	"github.com/rs/zerolog/log"
)

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError sends an ErrorResponse.
func writeError(w http.ResponseWriter, status int, errText, message string) {
	writeJSON(w, status, models.ErrorResponse{Error: errText, Message: message})
}

// writeStorageError maps a storage error kind to its HTTP status.
func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrBadRequest):
		writeError(w, http.StatusBadRequest, "Bad request", err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err.Error())
	default:
		log.Error().Err(err).Msg("Storage operation failed")
		writeError(w, http.StatusInternalServerError, "Storage error", "The image could not be processed.")
	}
}

var errTrailingData = errors.New("request body must contain a single JSON value")

// decodeOptionalJSON decodes the request body into dst. An empty body leaves
// dst untouched.
func decodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errTrailingData
	}
	return nil
}

func writeInvalidBody(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
}

// NotFound is the router's fallback for unknown paths.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Not found", "No route matches "+r.URL.Path)
}

// MethodNotAllowed is the router's fallback for known paths with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported on "+r.URL.Path)
}

// TooManyRequests is sent when a client exceeds the auth rate limit.
func TooManyRequests(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusTooManyRequests, "Too many requests", "Slow down and try again shortly.")
}
