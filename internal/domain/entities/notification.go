package entities

import "time"

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationReferralCreated       NotificationType = "referral_created"
	NotificationReferralCompleted     NotificationType = "referral_completed"
	NotificationReferralStatusChanged NotificationType = "referral_status_changed"
	NotificationAppointmentBooked     NotificationType = "appointment_booked"
	NotificationAppointmentCancelled  NotificationType = "appointment_cancelled"
)

// Notification is an in-app message addressed to a user account.
// Notifications are append-only; only Read ever changes.
type Notification struct {
	ID        string            `json:"id" db:"id"`
	UserID    string            `json:"user_id" db:"user_id"`
	Message   string            `json:"message" db:"message"`
	Read      bool              `json:"read" db:"read"`
	Type      NotificationType  `json:"type,omitempty" db:"type"`
	Metadata  map[string]string `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
}
