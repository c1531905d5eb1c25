package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/kwekker/kwekker-be/internal/auth"
	"github.com/kwekker/kwekker-be/internal/models"
	"github.com/kwekker/kwekker-be/internal/services"
	"github.com/kwekker/kwekker-be/internal/ws"
)

var validate = validator.New()

// KwekHandler handles HTTP requests for kweks.
type KwekHandler struct {
	service services.KwekServiceProvider
	hub     *ws.Hub
}

// NewKwekHandler creates a new KwekHandler. hub may be nil when no live feed
// is attached.
func NewKwekHandler(service services.KwekServiceProvider, hub *ws.Hub) *KwekHandler {
	return &KwekHandler{service: service, hub: hub}
}

// GetAll handles the request to list kweks, optionally filtered by the owner's
// username.
func (h *KwekHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	kweks, err := h.service.GetAllKweks(username)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list kweks")
		http.Error(w, "Failed to retrieve kweks", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(kweks)
}

// Get handles the request to get a single kwek by its id.
func (h *KwekHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Kwek not found", http.StatusNotFound)
		return
	}

	kwek, err := h.service.GetKwekByID(id)
	if err != nil {
		if errors.Is(err, services.ErrKwekNotFound) {
			http.Error(w, "Kwek not found", http.StatusNotFound)
			return
		}
		log.Error().Err(err).Int64("kwek_id", id).Msg("Failed to get kwek")
		http.Error(w, "Failed to retrieve kwek", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(kwek)
}

// Create handles the request to post a new kwek.
func (h *KwekHandler) Create(w http.ResponseWriter, r *http.Request) {
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve subject claim from context")
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return
	}

	input, ok := decodeKwekInput(w, r)
	if !ok {
		return
	}

	kwek, err := h.service.CreateKwek(subject, input.Text)
	if err != nil {
		if errors.Is(err, services.ErrCallerNotProvisioned) {
			log.Error().Err(err).Msg("Authenticated subject has no local user")
			http.Error(w, "Caller is not provisioned", http.StatusInternalServerError)
			return
		}
		log.Error().Err(err).Msg("Failed to create kwek")
		http.Error(w, "Failed to create kwek", http.StatusInternalServerError)
		return
	}

	if h.hub != nil {
		h.hub.BroadcastKwekCreated(kwek)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Location", fmt.Sprintf("/kweks/%d", kwek.ID))
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(kwek)
}

// Update handles the request to replace a kwek's text. Only the owner may
// update.
func (h *KwekHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, subject, ok := h.idAndSubject(w, r)
	if !ok {
		return
	}

	input, ok := decodeKwekInput(w, r)
	if !ok {
		return
	}

	if err := h.service.UpdateKwek(id, subject, input.Text); err != nil {
		h.writeMutationError(w, err, id, "update")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles the request to remove a kwek. Only the owner may delete.
func (h *KwekHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, subject, ok := h.idAndSubject(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteKwek(id, subject); err != nil {
		h.writeMutationError(w, err, id, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *KwekHandler) idAndSubject(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Kwek not found", http.StatusNotFound)
		return 0, "", false
	}
	subject, ok := auth.SubjectFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve subject claim from context")
		http.Error(w, "Could not retrieve user from token", http.StatusInternalServerError)
		return 0, "", false
	}
	return id, subject, true
}

func (h *KwekHandler) writeMutationError(w http.ResponseWriter, err error, id int64, action string) {
	switch {
	case errors.Is(err, services.ErrKwekNotFound):
		http.Error(w, "Kwek not found", http.StatusNotFound)
	case errors.Is(err, services.ErrNotKwekOwner):
		http.Error(w, "Kwek belongs to another user", http.StatusForbidden)
	case errors.Is(err, services.ErrCallerNotProvisioned):
		log.Error().Err(err).Int64("kwek_id", id).Msg("Authenticated subject has no local user")
		http.Error(w, "Caller is not provisioned", http.StatusInternalServerError)
	default:
		log.Error().Err(err).Int64("kwek_id", id).Str("action", action).Msg("Kwek mutation failed")
		http.Error(w, "Failed to "+action+" kwek", http.StatusInternalServerError)
	}
}

// decodeKwekInput parses and validates the request payload, writing a 400 on
// failure.
func decodeKwekInput(w http.ResponseWriter, r *http.Request) (models.KwekInput, bool) {
	var input models.KwekInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return models.KwekInput{}, false
	}
	if err := validate.Struct(input); err != nil {
		http.Error(w, "Text must be between 1 and 256 characters", http.StatusBadRequest)
		return models.KwekInput{}, false
	}
	return input, true
}
