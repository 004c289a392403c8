package repositories

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// RecipientRepository defines the interface for recipient data operations
type RecipientRepository interface {
	// Create creates a new recipient
	Create(ctx context.Context, recipient *entities.Recipient) error

	// GetByID retrieves a recipient by ID
	GetByID(ctx context.Context, id string) (*entities.Recipient, error)

	// GetByUserID retrieves the recipient profile owned by a user
	GetByUserID(ctx context.Context, userID string) (*entities.Recipient, error)

	// List retrieves recipients with filters
	List(ctx context.Context, filter RecipientFilter) ([]*entities.Recipient, error)

	// Update updates a recipient
	Update(ctx context.Context, recipient *entities.Recipient) error
}

// RecipientFilter defines filters for listing recipients
type RecipientFilter struct {
	BloodTypes []entities.BloodType
	Urgency    entities.Urgency
}
