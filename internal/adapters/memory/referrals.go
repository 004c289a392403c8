package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type referralRepo struct{ s *Store }

func (r referralRepo) Create(ctx context.Context, referral *entities.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if referral.ID == "" {
		referral.ID = r.s.newID()
	}
	if _, exists := r.s.data.referrals[referral.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("referral with id %s already exists", referral.ID))
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = r.s.now()
	}
	if referral.UpdatedAt.IsZero() {
		referral.UpdatedAt = referral.CreatedAt
	}
	if referral.Version == 0 {
		referral.Version = 1
	}
	r.s.data.referrals[referral.ID] = cloneReferral(*referral)
	return nil
}

func (r referralRepo) GetByID(ctx context.Context, id string) (*entities.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ref, ok := r.s.data.referrals[id]
	if !ok {
		return nil, apperrors.NotFoundf("referral", id)
	}
	out := cloneReferral(ref)
	return &out, nil
}

func (r referralRepo) List(ctx context.Context, filter repositories.ReferralFilter) ([]*entities.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	referrals := make([]*entities.Referral, 0)
	for _, ref := range r.s.data.referrals {
		if filter.Status != "" && ref.Status != filter.Status {
			continue
		}
		if filter.DonorID != "" && ref.DonorID != filter.DonorID {
			continue
		}
		if filter.RecipientID != "" && ref.RecipientID != filter.RecipientID {
			continue
		}
		if filter.HospitalID != "" && ref.HospitalID != filter.HospitalID {
			continue
		}
		out := cloneReferral(ref)
		referrals = append(referrals, &out)
	}
	sort.SliceStable(referrals, func(i, j int) bool {
		if !referrals[i].CreatedAt.Equal(referrals[j].CreatedAt) {
			return referrals[i].CreatedAt.After(referrals[j].CreatedAt)
		}
		return referrals[i].ID < referrals[j].ID
	})
	return referrals, nil
}

func (r referralRepo) Update(ctx context.Context, referral *entities.Referral) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.referrals[referral.ID]
	if !ok {
		return apperrors.NotFoundf("referral", referral.ID)
	}
	if stored.Version != referral.Version {
		return staleReferral(referral.ID, stored.Version, referral.Version)
	}
	referral.Version++
	referral.UpdatedAt = r.s.now()
	r.s.data.referrals[referral.ID] = cloneReferral(*referral)
	return nil
}

func (r referralRepo) UpdateStatus(ctx context.Context, id string, expectedVersion int, status entities.ReferralStatus, at time.Time) (*entities.Referral, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.data.referrals[id]
	if !ok {
		return nil, apperrors.NotFoundf("referral", id)
	}
	if stored.Version != expectedVersion {
		return nil, staleReferral(id, stored.Version, expectedVersion)
	}
	stored.Status = status
	stored.UpdatedAt = at
	stored.Version++
	r.s.data.referrals[id] = stored

	out := cloneReferral(stored)
	return &out, nil
}

func staleReferral(id string, stored, expected int) error {
	return apperrors.NewConflictError(fmt.Sprintf("referral %s was modified concurrently (version %d, expected %d)", id, stored, expected))
}
