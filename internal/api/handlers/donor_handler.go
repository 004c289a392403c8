package handlers

import (
	"net/http"

	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
)

// DonorHandler handles donor profile endpoints
type DonorHandler struct {
	service  *services.DonorService
	matching *services.MatchingService
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(service *services.DonorService, matching *services.MatchingService) *DonorHandler {
	return &DonorHandler{
		service:  service,
		matching: matching,
	}
}

// CreateDonor handles POST /api/donors
func (h *DonorHandler) CreateDonor(w http.ResponseWriter, r *http.Request) {
	var input services.CreateDonorInput
	if !decodeJSON(w, r, &input) {
		return
	}

	donor, err := h.service.CreateProfile(r.Context(), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, donor)
}

// GetDonor handles GET /api/donors/{id}
func (h *DonorHandler) GetDonor(w http.ResponseWriter, r *http.Request) {
	donor, err := h.service.GetDonor(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, donor)
}

// ListDonors handles GET /api/donors?blood_type=O-&available=true
func (h *DonorHandler) ListDonors(w http.ResponseWriter, r *http.Request) {
	bt, _, err := queryBloodType(r, "blood_type")
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	donors, err := h.service.ListDonors(r.Context(), repositories.DonorFilter{
		BloodType:     bt,
		AvailableOnly: queryBool(r, "available"),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"donors": donors,
		"count":  len(donors),
	})
}

// UpdateDonor handles PATCH /api/donors/{id}. An If-Match header takes
// precedence over a version in the body.
func (h *DonorHandler) UpdateDonor(w http.ResponseWriter, r *http.Request) {
	var input services.UpdateDonorInput
	if !decodeJSON(w, r, &input) {
		return
	}
	version, err := ifMatchVersion(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if version > 0 {
		input.Version = version
	}

	donor, err := h.service.UpdateProfile(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, donor)
}

// RefreshAvailability handles POST /api/donors/{id}/availability/refresh
func (h *DonorHandler) RefreshAvailability(w http.ResponseWriter, r *http.Request) {
	donor, changed, err := h.service.CheckAndUpdateDonorAvailability(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"donor":   donor,
		"changed": changed,
	})
}

// GetCompatibleRecipients handles GET /api/donors/{id}/compatible-recipients
func (h *DonorHandler) GetCompatibleRecipients(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.matching.GetCompatibleRecipientsForDonor(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"matches": candidates,
		"count":   len(candidates),
	})
}
