package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// Appointment represents a donation slot booked by a donor at a hospital.
// Date carries the calendar day only; TimeSlot is a label such as "09:00-10:00".
type Appointment struct {
	ID         string            `json:"id" db:"id"`
	UserID     string            `json:"user_id" db:"user_id"`
	HospitalID string            `json:"hospital_id" db:"hospital_id"`
	Date       time.Time         `json:"date" db:"date"`
	TimeSlot   string            `json:"time_slot" db:"time_slot"`
	Status     AppointmentStatus `json:"status" db:"status"`
	Notes      string            `json:"notes,omitempty" db:"notes"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at" db:"updated_at"`
}

// SlotDate truncates t to the UTC calendar day used for slot collision checks
func SlotDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
