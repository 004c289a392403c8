package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type donorRepo struct{ s *Store }

func (r donorRepo) Create(ctx context.Context, donor *entities.Donor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if donor.ID == "" {
		donor.ID = r.s.newID()
	}
	if _, exists := r.s.data.donors[donor.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("donor with id %s already exists", donor.ID))
	}
	for _, existing := range r.s.data.donors {
		if existing.UserID == donor.UserID {
			return apperrors.NewDuplicateProfileError(fmt.Sprintf("user %s already has a donor profile", donor.UserID))
		}
	}
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = r.s.now()
	}
	if donor.UpdatedAt.IsZero() {
		donor.UpdatedAt = donor.CreatedAt
	}
	if donor.Version == 0 {
		donor.Version = 1
	}
	r.s.data.donors[donor.ID] = cloneDonor(*donor)
	return nil
}

func (r donorRepo) GetByID(ctx context.Context, id string) (*entities.Donor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.data.donors[id]
	if !ok {
		return nil, apperrors.NotFoundf("donor", id)
	}
	out := cloneDonor(d)
	return &out, nil
}

func (r donorRepo) GetByUserID(ctx context.Context, userID string) (*entities.Donor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.data.donors {
		if d.UserID == userID {
			out := cloneDonor(d)
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("donor for user %s not found", userID))
}

func (r donorRepo) List(ctx context.Context, filter repositories.DonorFilter) ([]*entities.Donor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	donors := make([]*entities.Donor, 0, len(r.s.data.donors))
	for _, d := range r.s.data.donors {
		if filter.BloodType != "" && d.BloodType != filter.BloodType {
			continue
		}
		if filter.AvailableOnly && !d.IsAvailable {
			continue
		}
		out := cloneDonor(d)
		donors = append(donors, &out)
	}
	sortByCreated(donors,
		func(d *entities.Donor) time.Time { return d.CreatedAt },
		func(d *entities.Donor) string { return d.ID })
	return donors, nil
}

func (r donorRepo) Update(ctx context.Context, donor *entities.Donor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.donors[donor.ID]
	if !ok {
		return apperrors.NotFoundf("donor", donor.ID)
	}
	if stored.Version != donor.Version {
		return apperrors.NewConflictError(fmt.Sprintf("donor %s was modified concurrently (version %d, expected %d)", donor.ID, stored.Version, donor.Version))
	}
	donor.Version++
	donor.UpdatedAt = r.s.now()
	r.s.data.donors[donor.ID] = cloneDonor(*donor)
	return nil
}
