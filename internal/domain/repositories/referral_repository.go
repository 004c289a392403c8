package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// ReferralRepository defines the interface for referral data operations.
// Referrals are never deleted.
type ReferralRepository interface {
	// Create creates a new referral
	Create(ctx context.Context, referral *entities.Referral) error

	// GetByID retrieves a referral by ID
	GetByID(ctx context.Context, id string) (*entities.Referral, error)

	// List retrieves referrals with filters, newest first
	List(ctx context.Context, filter ReferralFilter) ([]*entities.Referral, error)

	// Update replaces a referral if referral.Version matches the stored
	// version, then increments referral.Version
	Update(ctx context.Context, referral *entities.Referral) error

	// UpdateStatus sets the status of the referral at expectedVersion and
	// returns the updated record
	UpdateStatus(ctx context.Context, id string, expectedVersion int, status entities.ReferralStatus, at time.Time) (*entities.Referral, error)
}

// ReferralFilter defines filters for listing referrals
type ReferralFilter struct {
	Status      entities.ReferralStatus
	DonorID     string
	RecipientID string
	HospitalID  string
}
