package repositories

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// DonorRepository defines the interface for donor data operations
type DonorRepository interface {
	// Create creates a new donor
	Create(ctx context.Context, donor *entities.Donor) error

	// GetByID retrieves a donor by ID
	GetByID(ctx context.Context, id string) (*entities.Donor, error)

	// GetByUserID retrieves the donor profile owned by a user
	GetByUserID(ctx context.Context, userID string) (*entities.Donor, error)

	// List retrieves donors with filters
	List(ctx context.Context, filter DonorFilter) ([]*entities.Donor, error)

	// Update replaces a donor if donor.Version matches the stored version,
	// then increments donor.Version. A stale version yields a CONFLICT error.
	Update(ctx context.Context, donor *entities.Donor) error
}

// DonorFilter defines filters for listing donors
type DonorFilter struct {
	BloodType     entities.BloodType
	AvailableOnly bool
}
