package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

// AppointmentService handles donation slot booking
type AppointmentService struct {
	base
	store repositories.Store
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(store repositories.Store, opts ...Option) *AppointmentService {
	return &AppointmentService{
		base:  newBase(opts),
		store: store,
	}
}

// BookAppointmentInput is the payload for booking a donation slot
type BookAppointmentInput struct {
	UserID     string `json:"user_id" validate:"required"`
	HospitalID string `json:"hospital_id" validate:"required"`
	Date       string `json:"date" validate:"required,datetime=2006-01-02"`
	TimeSlot   string `json:"time_slot" validate:"required,max=32"`
	Notes      string `json:"notes" validate:"max=500"`
}

// Book reserves a slot at a hospital. A slot holds at most one
// non-cancelled appointment; a second booking fails with CONFLICT.
func (s *AppointmentService) Book(ctx context.Context, input BookAppointmentInput) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Book")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("hospital.id", input.HospitalID),
		attribute.String("appointment.time_slot", input.TimeSlot),
	)

	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	date, err := parseDate(input.Date)
	if err != nil {
		return nil, err
	}
	if date.Before(entities.SlotDate(s.now())) {
		return nil, apperrors.NewValidationError("cannot book appointment in the past")
	}

	var appointment *entities.Appointment
	err = s.store.Atomic(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByID(ctx, input.UserID); err != nil {
			return err
		}
		hospital, err := tx.Hospitals().GetByID(ctx, input.HospitalID)
		if err != nil {
			return err
		}

		taken, err := tx.Appointments().FindActiveBySlot(ctx, hospital.ID, date, input.TimeSlot)
		if err != nil {
			return err
		}
		if taken != nil {
			return apperrors.NewConflictError(fmt.Sprintf(
				"slot %s on %s at %s is already booked", input.TimeSlot, date.Format("2006-01-02"), hospital.Name))
		}

		now := s.now()
		appointment = &entities.Appointment{
			UserID:     input.UserID,
			HospitalID: hospital.ID,
			Date:       date,
			TimeSlot:   input.TimeSlot,
			Status:     entities.AppointmentStatusScheduled,
			Notes:      input.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Appointments().Create(ctx, appointment); err != nil {
			return err
		}

		return s.notify(ctx, tx, input.UserID, entities.NotificationAppointmentBooked,
			fmt.Sprintf("Your appointment at %s on %s, %s is confirmed.",
				hospital.Name, date.Format("2 January 2006"), input.TimeSlot),
			map[string]string{"appointment_id": appointment.ID, "hospital_id": hospital.ID})
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().
		Str("appointment_id", appointment.ID).
		Str("hospital_id", appointment.HospitalID).
		Msg("appointment booked")
	return appointment, nil
}

// Cancel releases a scheduled appointment's slot
func (s *AppointmentService) Cancel(ctx context.Context, id string) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Cancel")
	defer span.End()

	var appointment *entities.Appointment
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		var err error
		appointment, err = s.close(ctx, tx, id, entities.AppointmentStatusCancelled)
		if err != nil {
			return err
		}
		return s.notify(ctx, tx, appointment.UserID, entities.NotificationAppointmentCancelled,
			fmt.Sprintf("Your appointment on %s, %s has been cancelled.",
				appointment.Date.Format("2 January 2006"), appointment.TimeSlot),
			map[string]string{"appointment_id": appointment.ID, "hospital_id": appointment.HospitalID})
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return appointment, nil
}

// Complete marks a scheduled appointment as attended. When the user is a
// donor the donation is recorded on their profile.
func (s *AppointmentService) Complete(ctx context.Context, id string) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "AppointmentService.Complete")
	defer span.End()

	var (
		appointment *entities.Appointment
		donorID     string
	)
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		var err error
		appointment, err = s.close(ctx, tx, id, entities.AppointmentStatusCompleted)
		if err != nil {
			return err
		}

		donor, err := tx.Donors().GetByUserID(ctx, appointment.UserID)
		if apperrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		now := s.now()
		donor.LastDonationDate = &now
		donor.IsAvailable = rules.ComputeAvailability(donor.LastDonationDate, now)
		donorID = donor.ID
		return tx.Donors().Update(ctx, donor)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	if donorID != "" {
		s.publish(ctx, providers.EventChannelDonors,
			entities.NewDonorEvent(entities.DonorEventAvailability, donorID, s.now()))
	}
	return appointment, nil
}

// ListByUser retrieves a user's appointments, latest date first
func (s *AppointmentService) ListByUser(ctx context.Context, userID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return s.store.Appointments().ListByUser(ctx, userID, filter)
}

func (s *AppointmentService) close(ctx context.Context, tx repositories.Store, id string, status entities.AppointmentStatus) (*entities.Appointment, error) {
	appointment, err := tx.Appointments().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status != entities.AppointmentStatusScheduled {
		return nil, apperrors.NewInvalidTransitionError(fmt.Sprintf(
			"appointment %s is %s and cannot become %s", id, appointment.Status, status))
	}
	appointment.Status = status
	appointment.UpdatedAt = s.now()
	if err := tx.Appointments().Update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}
