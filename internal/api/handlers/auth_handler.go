package handlers

import (
	"net/http"
	"time"

	"github.com/isdelr/slatehub-api/internal/auth"
	"github.com/isdelr/slatehub-api/internal/models"
	"github.com/isdelr/slatehub-api/internal/services"
	"github.com/rs/zerolog/log"
)

// AuthHandler serves the mock authentication endpoints. Nothing here checks
// credentials.
type AuthHandler struct {
	people        services.PersonServiceProvider
	issuer        *auth.Issuer
	secureCookies bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(people services.PersonServiceProvider, issuer *auth.Issuer, secureCookies bool) *AuthHandler {
	return &AuthHandler{people: people, issuer: issuer, secureCookies: secureCookies}
}

// Register simulates creating a new user.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeInvalidBody(w, err)
		return
	}

	person, user, err := h.people.Register(req)
	if err != nil {
		log.Error().Err(err).Msg("Failed to register user")
		writeError(w, http.StatusInternalServerError, "Registration failed", "The account could not be created.")
		return
	}
	log.Info().Str("username", user.Username).Bool("password_set", person.PasswordHash != "").Msg("Mock register called")

	h.respondWithToken(w, http.StatusCreated, user)
}

// Login simulates authenticating a user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeInvalidBody(w, err)
		return
	}

	user := h.people.Login(req)
	log.Info().Str("username", user.Username).Msg("Mock login called")

	h.respondWithToken(w, http.StatusOK, user)
}

// Me returns the user named by the request's token, or the static current
// user when there is no usable token.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	var username string
	if token := auth.TokenFromRequest(r); token != "" {
		if name, ok := h.issuer.Username(token); ok {
			username = name
		} else {
			log.Debug().Msg("Ignoring unreadable token on /api/auth/me")
		}
	}
	log.Info().Str("username", username).Msg("Mock '/api/auth/me' endpoint called")

	writeJSON(w, http.StatusOK, h.people.CurrentUser(username))
}

// Logout simulates invalidating a session by clearing the token cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	log.Info().Msg("Mock '/api/auth/logout' endpoint called")

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: "Logged out successfully"})
}

// CheckUsername reports whether a username is still free.
func (h *AuthHandler) CheckUsername(w http.ResponseWriter, r *http.Request) {
	var req models.CheckUsernameRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeInvalidBody(w, err)
		return
	}

	var username string
	if req.Username != nil {
		username = *req.Username
	}
	available := h.people.UsernameAvailable(username)
	log.Info().Str("username", username).Bool("available", available).Msg("Mock check-username called")

	writeJSON(w, http.StatusOK, models.AvailabilityResponse{Available: available})
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user models.MockUser) {
	token, err := h.issuer.Issue(user)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		writeError(w, http.StatusInternalServerError, "Token error", "Failed to generate token")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    token,
		Expires:  time.Now().Add(auth.TokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, status, models.AuthResponse{Token: token, User: user})
}
