package handlers

import (
	"net/http"
	"strings"

	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// RecipientHandler handles recipient profile endpoints
type RecipientHandler struct {
	service *services.RecipientService
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(service *services.RecipientService) *RecipientHandler {
	return &RecipientHandler{service: service}
}

// CreateRecipient handles POST /api/recipients
func (h *RecipientHandler) CreateRecipient(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRecipientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	recipient, err := h.service.CreateProfile(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, recipient)
}

// GetRecipient handles GET /api/recipients/{id}
func (h *RecipientHandler) GetRecipient(w http.ResponseWriter, r *http.Request) {
	recipient, err := h.service.GetRecipient(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, recipient)
}

// ListRecipients handles GET /api/recipients?blood_type=A-,O-&urgency=high
func (h *RecipientHandler) ListRecipients(w http.ResponseWriter, r *http.Request) {
	var filter repositories.RecipientFilter

	if raw := r.URL.Query().Get("blood_type"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			// "+" arrives as a space in unescaped query strings
			part = strings.TrimSpace(strings.ReplaceAll(part, " ", "+"))
			bt, err := entities.ParseBloodType(part)
			if err != nil {
				respondWithAppError(w, r, apperrors.NewValidationError(err.Error()))
				return
			}
			filter.BloodTypes = append(filter.BloodTypes, bt)
		}
	}
	if raw := r.URL.Query().Get("urgency"); raw != "" {
		urgency, err := entities.ParseUrgency(raw)
		if err != nil {
			respondWithAppError(w, r, apperrors.NewValidationError(err.Error()))
			return
		}
		filter.Urgency = urgency
	}

	recipients, err := h.service.ListRecipients(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"count":      len(recipients),
	})
}

// UpdateRecipient handles PATCH /api/recipients/{id}
func (h *RecipientHandler) UpdateRecipient(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateRecipientInput
	if !decodeJSON(w, r, &input) {
		return
	}

	recipient, err := h.service.UpdateProfile(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, recipient)
}
