package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type appointmentRepo struct{ s *Store }

func (r appointmentRepo) Create(ctx context.Context, appointment *entities.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if appointment.ID == "" {
		appointment.ID = r.s.newID()
	}
	if _, exists := r.s.data.appointments[appointment.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("appointment with id %s already exists", appointment.ID))
	}
	appointment.Date = entities.SlotDate(appointment.Date)
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = r.s.now()
	}
	if appointment.UpdatedAt.IsZero() {
		appointment.UpdatedAt = appointment.CreatedAt
	}
	r.s.data.appointments[appointment.ID] = *appointment
	return nil
}

func (r appointmentRepo) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.data.appointments[id]
	if !ok {
		return nil, apperrors.NotFoundf("appointment", id)
	}
	return &a, nil
}

func (r appointmentRepo) Update(ctx context.Context, appointment *entities.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.appointments[appointment.ID]; !ok {
		return apperrors.NotFoundf("appointment", appointment.ID)
	}
	appointment.Date = entities.SlotDate(appointment.Date)
	appointment.UpdatedAt = r.s.now()
	r.s.data.appointments[appointment.ID] = *appointment
	return nil
}

func (r appointmentRepo) ListByUser(ctx context.Context, userID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	appointments := make([]*entities.Appointment, 0)
	for _, a := range r.s.data.appointments {
		if a.UserID != userID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.From != nil && a.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && a.Date.After(*filter.To) {
			continue
		}
		out := a
		appointments = append(appointments, &out)
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		if !appointments[i].Date.Equal(appointments[j].Date) {
			return appointments[i].Date.After(appointments[j].Date)
		}
		return appointments[i].TimeSlot < appointments[j].TimeSlot
	})
	return appointments, nil
}

func (r appointmentRepo) FindActiveBySlot(ctx context.Context, hospitalID string, date time.Time, timeSlot string) (*entities.Appointment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	day := entities.SlotDate(date)
	for _, a := range r.s.data.appointments {
		if a.HospitalID == hospitalID && a.Date.Equal(day) && a.TimeSlot == timeSlot &&
			a.Status != entities.AppointmentStatusCancelled {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}
