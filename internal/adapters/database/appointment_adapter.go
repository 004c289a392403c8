package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	s *Store
}

var appointmentColumns = []interface{}{
	"id", "user_id", "hospital_id", "date", "time_slot", "status", "notes",
	"created_at", "updated_at",
}

// Create creates a new appointment. The partial unique index on
// (hospital_id, date, time_slot) for non-cancelled rows backs the slot check.
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	if appointment.ID == "" {
		appointment.ID = uuid.New().String()
	}
	appointment.Date = entities.SlotDate(appointment.Date)
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = a.s.now()
	}
	if appointment.UpdatedAt.IsZero() {
		appointment.UpdatedAt = appointment.CreatedAt
	}

	record := goqu.Record{
		"id":          appointment.ID,
		"user_id":     appointment.UserID,
		"hospital_id": appointment.HospitalID,
		"date":        appointment.Date,
		"time_slot":   appointment.TimeSlot,
		"status":      string(appointment.Status),
		"notes":       nullString(appointment.Notes),
		"created_at":  appointment.CreatedAt,
		"updated_at":  appointment.UpdatedAt,
	}

	_, err := a.s.exec(ctx, a.s.dialect.Insert("appointments").Prepared(true).Rows(record), "create appointment")
	return err
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.s.dialect.From("appointments").Prepared(true).
		Select(appointmentColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("appointment", id)
	}
	return appointment, err
}

// Update updates an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	appointment.Date = entities.SlotDate(appointment.Date)
	appointment.UpdatedAt = a.s.now()

	record := goqu.Record{
		"date":       appointment.Date,
		"time_slot":  appointment.TimeSlot,
		"status":     string(appointment.Status),
		"notes":      nullString(appointment.Notes),
		"updated_at": appointment.UpdatedAt,
	}

	ds := a.s.dialect.Update("appointments").Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": appointment.ID})

	rowsAffected, err := a.s.exec(ctx, ds, "update appointment")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("appointment", appointment.ID)
	}
	return nil
}

// ListByUser retrieves appointments for a user, latest date first
func (a *AppointmentAdapter) ListByUser(ctx context.Context, userID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.s.dialect.From("appointments").Prepared(true).
		Select(appointmentColumns...).
		Where(goqu.Ex{"user_id": userID})

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("date").Gte(*filter.From))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("date").Lte(*filter.To))
	}

	query, args, err := ds.Order(goqu.C("date").Desc(), goqu.C("time_slot").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*entities.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

// FindActiveBySlot returns the non-cancelled appointment holding the slot
func (a *AppointmentAdapter) FindActiveBySlot(ctx context.Context, hospitalID string, date time.Time, timeSlot string) (*entities.Appointment, error) {
	query, args, err := a.s.dialect.From("appointments").Prepared(true).
		Select(appointmentColumns...).
		Where(
			goqu.Ex{
				"hospital_id": hospitalID,
				"date":        entities.SlotDate(date),
				"time_slot":   timeSlot,
			},
			goqu.C("status").Neq(string(entities.AppointmentStatusCancelled)),
		).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return appointment, err
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var status string
	var notes sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.UserID,
		&appointment.HospitalID,
		&appointment.Date,
		&appointment.TimeSlot,
		&status,
		&notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan appointment", err)
	}

	appointment.Status = entities.AppointmentStatus(status)
	switch appointment.Status {
	case entities.AppointmentStatusScheduled, entities.AppointmentStatusCompleted, entities.AppointmentStatusCancelled:
	default:
		return nil, corrupt("appointment", appointment.ID, "status", status)
	}
	appointment.Notes = notes.String
	appointment.Date = entities.SlotDate(appointment.Date)

	return appointment, nil
}
