package entities

import (
	"time"
)

// UserRole is the account role assigned by the identity provider
type UserRole string

const (
	RoleDonor     UserRole = "donor"
	RoleRecipient UserRole = "recipient"
	RoleHospital  UserRole = "hospital"
	RoleAdmin     UserRole = "admin"
)

// User represents an account known to the system
type User struct {
	ID        string    `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Name      string    `json:"name" db:"name"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
