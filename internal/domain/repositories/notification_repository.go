package repositories

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	// Create appends a notification
	Create(ctx context.Context, notification *entities.Notification) error

	// GetByID retrieves a notification by ID
	GetByID(ctx context.Context, id string) (*entities.Notification, error)

	// ListByUser retrieves a user's notifications, newest first
	ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error)

	// MarkRead flips the read flag
	MarkRead(ctx context.Context, id string) error
}
