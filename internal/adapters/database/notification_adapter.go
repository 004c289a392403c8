package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// NotificationAdapter implements the NotificationRepository interface
type NotificationAdapter struct {
	s *Store
}

var notificationColumns = []interface{}{
	"id", "user_id", "message", "read", "type", "metadata", "created_at",
}

// Create appends a notification
func (a *NotificationAdapter) Create(ctx context.Context, notification *entities.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = a.s.now()
	}

	var metadata interface{}
	if len(notification.Metadata) > 0 {
		data, err := json.Marshal(notification.Metadata)
		if err != nil {
			return apperrors.NewInternalError("failed to encode notification metadata", err)
		}
		metadata = string(data)
	}

	record := goqu.Record{
		"id":         notification.ID,
		"user_id":    notification.UserID,
		"message":    notification.Message,
		"read":       notification.Read,
		"type":       nullString(string(notification.Type)),
		"metadata":   metadata,
		"created_at": notification.CreatedAt,
	}

	_, err := a.s.exec(ctx, a.s.dialect.Insert("notifications").Prepared(true).Rows(record), "create notification")
	return err
}

// GetByID retrieves a notification by ID
func (a *NotificationAdapter) GetByID(ctx context.Context, id string) (*entities.Notification, error) {
	query, args, err := a.s.dialect.From("notifications").Prepared(true).
		Select(notificationColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	notification, err := scanNotification(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("notification", id)
	}
	return notification, err
}

// ListByUser retrieves a user's notifications, newest first
func (a *NotificationAdapter) ListByUser(ctx context.Context, userID string, unreadOnly bool) ([]*entities.Notification, error) {
	ds := a.s.dialect.From("notifications").Prepared(true).
		Select(notificationColumns...).
		Where(goqu.Ex{"user_id": userID})
	if unreadOnly {
		ds = ds.Where(goqu.Ex{"read": false})
	}

	query, args, err := ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list notifications", err)
	}
	defer rows.Close()

	notifications := make([]*entities.Notification, 0)
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate notifications", err)
	}

	return notifications, nil
}

// MarkRead flips the read flag
func (a *NotificationAdapter) MarkRead(ctx context.Context, id string) error {
	ds := a.s.dialect.Update("notifications").Prepared(true).
		Set(goqu.Record{"read": true}).
		Where(goqu.Ex{"id": id})

	rowsAffected, err := a.s.exec(ctx, ds, "mark notification read")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("notification", id)
	}
	return nil
}

func scanNotification(row rowScanner) (*entities.Notification, error) {
	notification := &entities.Notification{}
	var notificationType sql.NullString
	var metadata []byte

	err := row.Scan(
		&notification.ID,
		&notification.UserID,
		&notification.Message,
		&notification.Read,
		&notificationType,
		&metadata,
		&notification.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan notification", err)
	}

	notification.Type = entities.NotificationType(notificationType.String)
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &notification.Metadata); err != nil {
			return nil, apperrors.NewInternalError("failed to decode notification metadata", err)
		}
	}

	return notification, nil
}
