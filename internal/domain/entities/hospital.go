package entities

import "time"

// Hospital is a facility where transfusions and donations take place
type Hospital struct {
	ID         string      `json:"id" db:"id"`
	Name       string      `json:"name" db:"name"`
	Location   string      `json:"location" db:"location"`
	Phone      string      `json:"phone" db:"phone"`
	BloodTypes []BloodType `json:"blood_types" db:"-"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// Serves reports whether the hospital stocks the given blood type
func (h *Hospital) Serves(bt BloodType) bool {
	for _, t := range h.BloodTypes {
		if t == bt {
			return true
		}
	}
	return false
}
