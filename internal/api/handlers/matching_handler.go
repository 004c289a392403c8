package handlers

import (
	"net/http"

	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// MatchingHandler exposes candidate matching and the compatibility table
type MatchingHandler struct {
	service *services.MatchingService
}

// NewMatchingHandler creates a new matching handler
func NewMatchingHandler(service *services.MatchingService) *MatchingHandler {
	return &MatchingHandler{service: service}
}

// GetAllMatches handles GET /api/matches
func (h *MatchingHandler) GetAllMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.GetAllMatches(r.Context())
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}

// GetCompatibleRecipients handles GET /api/compatible-recipients?blood_type=O-
func (h *MatchingHandler) GetCompatibleRecipients(w http.ResponseWriter, r *http.Request) {
	bt, ok, err := queryBloodType(r, "blood_type")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if !ok {
		respondWithError(w, http.StatusBadRequest, "blood_type is required")
		return
	}

	recipients, err := h.service.GetCompatibleRecipients(r.Context(), bt)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"recipients": recipients,
		"count":      len(recipients),
	})
}

// CheckCompatibility handles GET /api/compatibility?donor=O-&recipient=AB+
func (h *MatchingHandler) CheckCompatibility(w http.ResponseWriter, r *http.Request) {
	donor, okDonor, err := queryBloodType(r, "donor")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	recipient, okRecipient, err := queryBloodType(r, "recipient")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if !okDonor || !okRecipient {
		respondWithAppError(w, r, apperrors.NewValidationError("donor and recipient blood types are required"))
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"donor":      donor,
		"recipient":  recipient,
		"compatible": rules.IsCompatible(donor, recipient),
	})
}
