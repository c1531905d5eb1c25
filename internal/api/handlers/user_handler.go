package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/kwekker/kwekker-be/internal/services"
)

// UserHandler handles HTTP requests for user lookup and the provisioning
// webhook.
type UserHandler struct {
	service services.UserServiceProvider
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider) *UserHandler {
	return &UserHandler{service: service}
}

// Get handles retrieving a user's public profile by username.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.service.GetUserByUsername(username)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			http.Error(w, "User not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("username", username).Msg("Failed to get user")
		http.Error(w, "Failed to retrieve user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Profile())
}

// ProcessNewUser handles the identity provider's new-user webhook: it loads
// the subject's upstream profile and provisions a matching local user.
func (h *UserHandler) ProcessNewUser(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("userId")
	if subjectID == "" {
		http.Error(w, "Missing userId parameter", http.StatusBadRequest)
		return
	}

	user, err := h.service.ProvisionFromProvider(r.Context(), subjectID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUpstreamUserNotFound):
			log.Warn().Str("subject_id", subjectID).Msg("Webhook for unknown upstream user")
			http.Error(w, "Auth0 user not found", http.StatusBadRequest)
		case errors.Is(err, services.ErrUserAlreadyExists):
			log.Warn().Err(err).Str("subject_id", subjectID).Msg("Webhook for already provisioned user")
			http.Error(w, "User already exists", http.StatusBadRequest)
		default:
			log.Error().Err(err).Str("subject_id", subjectID).Msg("Failed to provision user")
			http.Error(w, "Failed to provision user", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user.Profile())
}
