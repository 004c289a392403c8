package entities

import "time"

// Donor is a blood donor profile linked one-to-one to a user account.
// IsAvailable is a cached copy of the availability rule evaluated against
// LastDonationDate; LastDonationDate is the source of truth.
type Donor struct {
	ID               string     `json:"id" db:"id"`
	UserID           string     `json:"user_id" db:"user_id"`
	Name             string     `json:"name" db:"name"`
	Age              int        `json:"age" db:"age"`
	BloodType        BloodType  `json:"blood_type" db:"blood_type"`
	Email            string     `json:"email" db:"email"`
	Phone            string     `json:"phone" db:"phone"`
	Address          string     `json:"address" db:"address"`
	LastDonationDate *time.Time `json:"last_donation_date" db:"last_donation_date"`
	IsAvailable      bool       `json:"is_available" db:"is_available"`
	Version          int        `json:"version" db:"version"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}
