package entities

import (
	"fmt"
	"time"
)

// ReferralStatus represents the lifecycle state of a referral
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusMatched   ReferralStatus = "matched"
	ReferralStatusScheduled ReferralStatus = "scheduled"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusCancelled ReferralStatus = "cancelled"
)

// IsValid reports whether s is a known referral status
func (s ReferralStatus) IsValid() bool {
	switch s {
	case ReferralStatusPending, ReferralStatusMatched, ReferralStatusScheduled,
		ReferralStatusCompleted, ReferralStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed out of s
func (s ReferralStatus) IsTerminal() bool {
	return s == ReferralStatusCompleted || s == ReferralStatusCancelled
}

// ParseReferralStatus validates a raw status value
func ParseReferralStatus(s string) (ReferralStatus, error) {
	status := ReferralStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid referral status %q", s)
	}
	return status, nil
}

// TransfusionDetails is the scheduling sub-record of a referral
type TransfusionDetails struct {
	ScheduledDate time.Time `json:"scheduled_date"`
	TimeSlot      string    `json:"time_slot"`
	Notes         string    `json:"notes,omitempty"`
}

// Referral links a donor to a recipient at a hospital.
// The name and blood type fields are snapshots taken at creation time.
type Referral struct {
	ID                 string              `json:"id" db:"id"`
	DonorID            string              `json:"donor_id" db:"donor_id"`
	RecipientID        string              `json:"recipient_id" db:"recipient_id"`
	HospitalID         string              `json:"hospital_id" db:"hospital_id"`
	Status             ReferralStatus      `json:"status" db:"status"`
	DonorName          string              `json:"donor_name" db:"donor_name"`
	DonorBloodType     BloodType           `json:"donor_blood_type" db:"donor_blood_type"`
	RecipientName      string              `json:"recipient_name" db:"recipient_name"`
	HospitalName       string              `json:"hospital_name" db:"hospital_name"`
	Notes              string              `json:"notes,omitempty" db:"notes"`
	TransfusionDetails *TransfusionDetails `json:"transfusion_details,omitempty" db:"transfusion_details"`
	Version            int                 `json:"version" db:"version"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}
