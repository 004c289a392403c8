package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, notification *entities.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if notification.ID == "" {
		notification.ID = r.s.newID()
	}
	if _, exists := r.s.data.notifications[notification.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("notification with id %s already exists", notification.ID))
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = r.s.now()
	}
	r.s.data.notifications[notification.ID] = cloneNotification(*notification)
	return nil
}

func (r notificationRepo) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.data.notifications[id]
	if !ok {
		return nil, apperrors.NotFoundf("notification", id)
	}
	out := cloneNotification(n)
	return &out, nil
}

func (r notificationRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	notifications := make([]*entities.Notification, 0)
	for _, n := range r.s.data.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out := cloneNotification(n)
		notifications = append(notifications, &out)
	}
	sort.SliceStable(notifications, func(i, j int) bool {
		if !notifications[i].CreatedAt.Equal(notifications[j].CreatedAt) {
			return notifications[i].CreatedAt.After(notifications[j].CreatedAt)
		}
		return notifications[i].ID < notifications[j].ID
	})
	return notifications, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.data.notifications[id]
	if !ok {
		return apperrors.NotFoundf("notification", id)
	}
	n.Read = true
	r.s.data.notifications[id] = n
	return nil
}
