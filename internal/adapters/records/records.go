// Package records converts untyped JSON records, as exported from the legacy
// browser store, into typed entities. Every record is decoded and validated
// on its own; malformed ones are rejected with a reason instead of being
// carried forward with missing fields.
package records

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

type userRecord struct {
	ID        string    `json:"id" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	Name      string    `json:"name"`
	Role      string    `json:"role" validate:"required,oneof=donor recipient hospital admin"`
	CreatedAt Timestamp `json:"createdAt"`
}

type donorRecord struct {
	ID               string    `json:"id" validate:"required"`
	UserID           string    `json:"userId" validate:"required"`
	Name             string    `json:"name" validate:"required"`
	Age              int       `json:"age" validate:"gte=18,lte=120"`
	BloodType        string    `json:"bloodType" validate:"required,bloodtype"`
	Email            string    `json:"email" validate:"omitempty,email"`
	Phone            string    `json:"phone"`
	Address          string    `json:"address"`
	LastDonationDate Timestamp `json:"lastDonationDate"`
	CreatedAt        Timestamp `json:"createdAt"`
	UpdatedAt        Timestamp `json:"updatedAt"`
}

type recipientRecord struct {
	ID                 string    `json:"id" validate:"required"`
	UserID             string    `json:"userId" validate:"required"`
	Name               string    `json:"name" validate:"required"`
	BloodType          string    `json:"bloodType" validate:"required,bloodtype"`
	Urgency            string    `json:"urgency" validate:"required,urgency"`
	HospitalPreference string    `json:"hospitalPreference"`
	Email              string    `json:"email" validate:"omitempty,email"`
	Phone              string    `json:"phone"`
	MedicalNotes       string    `json:"medicalNotes"`
	CreatedAt          Timestamp `json:"createdAt"`
	UpdatedAt          Timestamp `json:"updatedAt"`
}

type hospitalRecord struct {
	ID         string    `json:"id" validate:"required"`
	Name       string    `json:"name" validate:"required"`
	Location   string    `json:"location"`
	Phone      string    `json:"phone"`
	BloodTypes []string  `json:"bloodTypes" validate:"dive,bloodtype"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type transfusionRecord struct {
	ScheduledDate Timestamp `json:"scheduledDate"`
	TimeSlot      string    `json:"timeSlot"`
	Notes         string    `json:"notes"`
}

type referralRecord struct {
	ID                 string             `json:"id" validate:"required"`
	DonorID            string             `json:"donorId" validate:"required"`
	RecipientID        string             `json:"recipientId" validate:"required"`
	HospitalID         string             `json:"hospitalId" validate:"required"`
	Status             string             `json:"status" validate:"required,oneof=pending matched scheduled completed cancelled"`
	DonorName          string             `json:"donorName"`
	DonorBloodType     string             `json:"donorBloodType" validate:"required,bloodtype"`
	RecipientName      string             `json:"recipientName"`
	HospitalName       string             `json:"hospitalName"`
	Notes              string             `json:"notes"`
	TransfusionDetails *transfusionRecord `json:"transfusionDetails"`
	CreatedAt          Timestamp          `json:"createdAt"`
	UpdatedAt          Timestamp          `json:"updatedAt"`
}

type appointmentRecord struct {
	ID         string    `json:"id" validate:"required"`
	UserID     string    `json:"userId" validate:"required"`
	HospitalID string    `json:"hospitalId" validate:"required"`
	Date       Timestamp `json:"date"`
	TimeSlot   string    `json:"timeSlot" validate:"required"`
	Status     string    `json:"status" validate:"required,oneof=scheduled completed cancelled"`
	Notes      string    `json:"notes"`
	CreatedAt  Timestamp `json:"createdAt"`
}

type notificationRecord struct {
	ID        string                 `json:"id" validate:"required"`
	UserID    string                 `json:"userId" validate:"required"`
	Message   string                 `json:"message" validate:"required"`
	Read      bool                   `json:"read"`
	Type      string                 `json:"type"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt Timestamp              `json:"createdAt"`
}

func decode(raw json.RawMessage, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("malformed record: %v", err))
	}
	return nil
}

func normalizeBloodType(s string) string {
	if bt, err := entities.ParseBloodType(s); err == nil {
		return string(bt)
	}
	return s
}

// DecodeUser converts a raw user record
func DecodeUser(raw json.RawMessage, now time.Time) (*entities.User, error) {
	var rec userRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	rec.Email = strings.ToLower(strings.TrimSpace(rec.Email))
	rec.Role = strings.ToLower(strings.TrimSpace(rec.Role))
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	created := rec.CreatedAt.Or(now)
	return &entities.User{
		ID:        rec.ID,
		Email:     rec.Email,
		Name:      rec.Name,
		Role:      entities.UserRole(rec.Role),
		CreatedAt: created,
		UpdatedAt: created,
	}, nil
}

// DecodeDonor converts a raw donor record. The stored availability flag is
// ignored and recomputed from the last donation date.
func DecodeDonor(raw json.RawMessage, now time.Time) (*entities.Donor, error) {
	var rec donorRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	rec.BloodType = normalizeBloodType(rec.BloodType)
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	last := rec.LastDonationDate.Ptr()
	if last != nil && last.After(now) {
		return nil, apperrors.NewValidationError("lastDonationDate is in the future")
	}

	created := rec.CreatedAt.Or(now)
	return &entities.Donor{
		ID:               rec.ID,
		UserID:           rec.UserID,
		Name:             rec.Name,
		Age:              rec.Age,
		BloodType:        entities.BloodType(rec.BloodType),
		Email:            rec.Email,
		Phone:            rec.Phone,
		Address:          rec.Address,
		LastDonationDate: last,
		IsAvailable:      rules.ComputeAvailability(last, now),
		Version:          1,
		CreatedAt:        created,
		UpdatedAt:        rec.UpdatedAt.Or(created),
	}, nil
}

// DecodeRecipient converts a raw recipient record, mapping both urgency
// vocabularies onto the canonical scale
func DecodeRecipient(raw json.RawMessage, now time.Time) (*entities.Recipient, error) {
	var rec recipientRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	rec.BloodType = normalizeBloodType(rec.BloodType)
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	urgency, _ := entities.ParseUrgency(rec.Urgency)
	created := rec.CreatedAt.Or(now)
	return &entities.Recipient{
		ID:                 rec.ID,
		UserID:             rec.UserID,
		Name:               rec.Name,
		BloodType:          entities.BloodType(rec.BloodType),
		Urgency:            urgency,
		HospitalPreference: rec.HospitalPreference,
		Email:              rec.Email,
		Phone:              rec.Phone,
		MedicalNotes:       rec.MedicalNotes,
		CreatedAt:          created,
		UpdatedAt:          rec.UpdatedAt.Or(created),
	}, nil
}

// DecodeHospital converts a raw hospital record
func DecodeHospital(raw json.RawMessage, now time.Time) (*entities.Hospital, error) {
	var rec hospitalRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	for i, bt := range rec.BloodTypes {
		rec.BloodTypes[i] = normalizeBloodType(bt)
	}
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	types := make([]entities.BloodType, 0, len(rec.BloodTypes))
	seen := make(map[string]bool, len(rec.BloodTypes))
	for _, bt := range rec.BloodTypes {
		if !seen[bt] {
			seen[bt] = true
			types = append(types, entities.BloodType(bt))
		}
	}

	created := rec.CreatedAt.Or(now)
	return &entities.Hospital{
		ID:         rec.ID,
		Name:       rec.Name,
		Location:   rec.Location,
		Phone:      rec.Phone,
		BloodTypes: types,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil
}

// DecodeReferral converts a raw referral record. Compatibility needs the
// donor and recipient, so Load checks it once they are in the store.
func DecodeReferral(raw json.RawMessage, now time.Time) (*entities.Referral, error) {
	var rec referralRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	rec.DonorBloodType = normalizeBloodType(rec.DonorBloodType)
	rec.Status = strings.ToLower(strings.TrimSpace(rec.Status))
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	created := rec.CreatedAt.Or(now)
	referral := &entities.Referral{
		ID:             rec.ID,
		DonorID:        rec.DonorID,
		RecipientID:    rec.RecipientID,
		HospitalID:     rec.HospitalID,
		Status:         entities.ReferralStatus(rec.Status),
		DonorName:      rec.DonorName,
		DonorBloodType: entities.BloodType(rec.DonorBloodType),
		RecipientName:  rec.RecipientName,
		HospitalName:   rec.HospitalName,
		Notes:          rec.Notes,
		Version:        1,
		CreatedAt:      created,
		UpdatedAt:      rec.UpdatedAt.Or(created),
	}
	if td := rec.TransfusionDetails; td != nil && td.ScheduledDate.Valid {
		referral.TransfusionDetails = &entities.TransfusionDetails{
			ScheduledDate: td.ScheduledDate.Time,
			TimeSlot:      td.TimeSlot,
			Notes:         td.Notes,
		}
	}
	return referral, nil
}

// DecodeAppointment converts a raw appointment record
func DecodeAppointment(raw json.RawMessage, now time.Time) (*entities.Appointment, error) {
	var rec appointmentRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	rec.Status = strings.ToLower(strings.TrimSpace(rec.Status))
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}
	if !rec.Date.Valid {
		return nil, apperrors.NewValidationError("date failed on required")
	}

	created := rec.CreatedAt.Or(now)
	return &entities.Appointment{
		ID:         rec.ID,
		UserID:     rec.UserID,
		HospitalID: rec.HospitalID,
		Date:       entities.SlotDate(rec.Date.Time),
		TimeSlot:   rec.TimeSlot,
		Status:     entities.AppointmentStatus(rec.Status),
		Notes:      rec.Notes,
		CreatedAt:  created,
		UpdatedAt:  created,
	}, nil
}

// DecodeNotification converts a raw notification record. Metadata values
// are flattened to strings.
func DecodeNotification(raw json.RawMessage, now time.Time) (*entities.Notification, error) {
	var rec notificationRecord
	if err := decode(raw, &rec); err != nil {
		return nil, err
	}
	if err := validate.Struct(rec); err != nil {
		return nil, err
	}

	var metadata map[string]string
	if len(rec.Metadata) > 0 {
		metadata = make(map[string]string, len(rec.Metadata))
		for k, v := range rec.Metadata {
			if v == nil {
				continue
			}
			metadata[k] = fmt.Sprint(v)
		}
	}

	return &entities.Notification{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Message:   rec.Message,
		Read:      rec.Read,
		Type:      entities.NotificationType(rec.Type),
		Metadata:  metadata,
		CreatedAt: rec.CreatedAt.Or(now),
	}, nil
}
