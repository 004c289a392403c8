package repositories

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// HospitalRepository defines the interface for hospital data operations
type HospitalRepository interface {
	// Create creates a new hospital
	Create(ctx context.Context, hospital *entities.Hospital) error

	// GetByID retrieves a hospital by ID
	GetByID(ctx context.Context, id string) (*entities.Hospital, error)

	// List retrieves all hospitals ordered by name
	List(ctx context.Context) ([]*entities.Hospital, error)

	// Update updates a hospital
	Update(ctx context.Context, hospital *entities.Hospital) error
}
