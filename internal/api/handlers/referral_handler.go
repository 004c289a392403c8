package handlers

import (
	"net/http"
	"strconv"

	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
)

// ReferralHandler handles referral lifecycle endpoints
type ReferralHandler struct {
	service *services.ReferralService
}

// NewReferralHandler creates a new referral handler
func NewReferralHandler(service *services.ReferralService) *ReferralHandler {
	return &ReferralHandler{service: service}
}

type createReferralRequest struct {
	DonorID     string `json:"donor_id"`
	RecipientID string `json:"recipient_id"`
	HospitalID  string `json:"hospital_id"`
}

type updateStatusRequest struct {
	Status  string `json:"status"`
	Version int    `json:"version"`
}

// CreateReferral handles POST /api/referrals
func (h *ReferralHandler) CreateReferral(w http.ResponseWriter, r *http.Request) {
	var req createReferralRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	referral, err := h.service.CreateReferral(r.Context(), req.DonorID, req.RecipientID, req.HospitalID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithReferral(w, http.StatusCreated, referral)
}

// GetReferral handles GET /api/referrals/{id}
func (h *ReferralHandler) GetReferral(w http.ResponseWriter, r *http.Request) {
	referral, err := h.service.GetReferral(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithReferral(w, http.StatusOK, referral)
}

// ListReferrals handles GET /api/referrals?status=&donor_id=&recipient_id=&hospital_id=
func (h *ReferralHandler) ListReferrals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	referrals, err := h.service.ListReferrals(r.Context(), repositories.ReferralFilter{
		Status:      entities.ReferralStatus(q.Get("status")),
		DonorID:     q.Get("donor_id"),
		RecipientID: q.Get("recipient_id"),
		HospitalID:  q.Get("hospital_id"),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"referrals": referrals,
		"count":     len(referrals),
	})
}

// UpdateReferralStatus handles PATCH /api/referrals/{id}/status. The caller
// may guard the change with the version it last read, either as an If-Match
// header or a "version" field.
func (h *ReferralHandler) UpdateReferralStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, err := ifMatchVersion(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	if version == 0 {
		version = req.Version
	}

	id := r.PathValue("id")
	status := entities.ReferralStatus(req.Status)

	var referral *entities.Referral
	if version > 0 {
		referral, err = h.service.UpdateReferralStatusVersion(r.Context(), id, status, version)
	} else {
		referral, err = h.service.UpdateReferralStatus(r.Context(), id, status)
	}
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithReferral(w, http.StatusOK, referral)
}

// ScheduleTransfusion handles POST /api/referrals/{id}/schedule
func (h *ReferralHandler) ScheduleTransfusion(w http.ResponseWriter, r *http.Request) {
	var input services.ScheduleInput
	if !decodeJSON(w, r, &input) {
		return
	}

	referral, err := h.service.ScheduleTransfusion(r.Context(), r.PathValue("id"), input)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithReferral(w, http.StatusOK, referral)
}

// respondWithReferral exposes the referral version as an ETag for If-Match
func respondWithReferral(w http.ResponseWriter, statusCode int, referral *entities.Referral) {
	w.Header().Set("ETag", strconv.Quote(strconv.Itoa(referral.Version)))
	respondWithJSON(w, statusCode, referral)
}
