package handlers

import (
	"net/http"

	"github.com/zatekoja/bloodlink/internal/application/services"
)

// NotificationHandler handles in-app notification endpoints
type NotificationHandler struct {
	service *services.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

type markReadRequest struct {
	UserID string `json:"user_id"`
}

// ListUserNotifications handles GET /api/users/{id}/notifications?unread=true
func (h *NotificationHandler) ListUserNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	notifications, err := h.service.ListForUser(r.Context(), userID, queryBool(r, "unread"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	unread, err := h.service.UnreadCount(r.Context(), userID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
		"unread":        unread,
	})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	var req markReadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondWithError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := h.service.MarkRead(r.Context(), r.PathValue("id"), req.UserID); err != nil {
		respondWithAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
