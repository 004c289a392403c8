package entities

import "time"

// Recipient is a patient profile in need of blood, linked one-to-one to a user account
type Recipient struct {
	ID                 string    `json:"id" db:"id"`
	UserID             string    `json:"user_id" db:"user_id"`
	Name               string    `json:"name" db:"name"`
	BloodType          BloodType `json:"blood_type" db:"blood_type"`
	Urgency            Urgency   `json:"urgency" db:"urgency"`
	HospitalPreference string    `json:"hospital_preference" db:"hospital_preference"`
	Email              string    `json:"email" db:"email"`
	Phone              string    `json:"phone" db:"phone"`
	MedicalNotes       string    `json:"medical_notes" db:"medical_notes"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}
