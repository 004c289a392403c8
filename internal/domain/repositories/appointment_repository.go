package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// AppointmentRepository stores donation appointments. At most one
// non-cancelled appointment may hold a hospital slot: callers check with
// FindActiveBySlot inside a transaction, and the PostgreSQL schema backs it
// with a partial unique index.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID returns a NOT_FOUND error for unknown ids
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	Update(ctx context.Context, appointment *entities.Appointment) error

	// ListByUser returns a user's appointments, latest date first and by
	// slot within a day
	ListByUser(ctx context.Context, userID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// FindActiveBySlot returns the non-cancelled appointment occupying the
	// slot, or nil when the slot is free
	FindActiveBySlot(ctx context.Context, hospitalID string, date time.Time, timeSlot string) (*entities.Appointment, error)
}

// AppointmentFilter narrows ListByUser. From and To bound the appointment
// date inclusively.
type AppointmentFilter struct {
	Status entities.AppointmentStatus
	From   *time.Time
	To     *time.Time
}
