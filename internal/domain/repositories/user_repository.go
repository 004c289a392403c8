package repositories

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// UserRepository stores the accounts that own donor, recipient and hospital
// profiles. Emails are unique; a second account with the same email yields
// a CONFLICT error.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error

	// GetByID returns a NOT_FOUND error for unknown ids
	GetByID(ctx context.Context, id string) (*entities.User, error)

	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}
