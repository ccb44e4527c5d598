package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/rs/zerolog/log"
)

// ProfileHandler serves the mock profile endpoints.
type ProfileHandler struct {
	people services.PersonServiceProvider
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(people services.PersonServiceProvider) *ProfileHandler {
	return &ProfileHandler{people: people}
}

// Update merges the payload's display fields into the current user.
func (h *ProfileHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeInvalidBody(w, err)
		return
	}

	log.Info().Bool("name_set", req.Name != nil).Bool("stage_name_set", req.StageName != nil).Msg("Mock update_profile called")
	writeJSON(w, http.StatusOK, h.people.UpdateProfile(req))
}

// GetPublic returns the public profile for a username.
func (h *ProfileHandler) GetPublic(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	log.Info().Str("username", username).Msg("Mock get_public_profile called")

	user, err := h.people.PublicProfile(username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found", "A user with that username does not exist.")
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Failed to get public profile")
		writeError(w, http.StatusInternalServerError, "Profile error", "The profile could not be loaded.")
		return
	}

	writeJSON(w, http.StatusOK, user)
}
