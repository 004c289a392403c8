package services

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// NotificationService exposes a user's in-app notifications. Notifications
// are created by the other services; only the read flag changes here.
type NotificationService struct {
	repo repositories.NotificationRepository
}

// NewNotificationService creates a new notification service
func NewNotificationService(repo repositories.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// ListForUser retrieves a user's notifications, newest first
func (s *NotificationService) ListForUser(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags a notification as read on behalf of userID. Notifications
// owned by someone else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperrors.NotFoundf("notification", id)
	}
	if n.Read {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// UnreadCount returns how many unread notifications a user has
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.repo.ListByUser(ctx, userID, true)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}
