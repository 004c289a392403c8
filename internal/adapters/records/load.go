package records

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// LoadSummary counts what Load wrote and skipped per collection
type LoadSummary struct {
	Written map[string]int
	Skipped map[string]int
}

func newLoadSummary() *LoadSummary {
	return &LoadSummary{Written: map[string]int{}, Skipped: map[string]int{}}
}

// Total returns the number of written records
func (s *LoadSummary) Total() int {
	total := 0
	for _, n := range s.Written {
		total += n
	}
	return total
}

// Load writes the dataset into store in dependency order (users and
// hospitals before the profiles, referrals and appointments that point at
// them). Referrals pass the same compatibility gate as new ones. Records
// that fail it or that the store rejects are logged and skipped; only a
// cancelled context stops the load.
func Load(ctx context.Context, store repositories.Store, ds *Dataset) (*LoadSummary, error) {
	summary := newLoadSummary()

	steps := []struct {
		collection string
		count      int
		create     func(i int) error
		id         func(i int) string
	}{
		{"users", len(ds.Users),
			func(i int) error { return store.Users().Create(ctx, ds.Users[i]) },
			func(i int) string { return ds.Users[i].ID }},
		{"hospitals", len(ds.Hospitals),
			func(i int) error { return store.Hospitals().Create(ctx, ds.Hospitals[i]) },
			func(i int) string { return ds.Hospitals[i].ID }},
		{"donors", len(ds.Donors),
			func(i int) error { return store.Donors().Create(ctx, ds.Donors[i]) },
			func(i int) string { return ds.Donors[i].ID }},
		{"recipients", len(ds.Recipients),
			func(i int) error { return store.Recipients().Create(ctx, ds.Recipients[i]) },
			func(i int) string { return ds.Recipients[i].ID }},
		{"referrals", len(ds.Referrals),
			func(i int) error {
				if err := checkReferral(ctx, store, ds.Referrals[i]); err != nil {
					return err
				}
				return store.Referrals().Create(ctx, ds.Referrals[i])
			},
			func(i int) string { return ds.Referrals[i].ID }},
		{"appointments", len(ds.Appointments),
			func(i int) error { return store.Appointments().Create(ctx, ds.Appointments[i]) },
			func(i int) string { return ds.Appointments[i].ID }},
		{"notifications", len(ds.Notifications),
			func(i int) error { return store.Notifications().Create(ctx, ds.Notifications[i]) },
			func(i int) string { return ds.Notifications[i].ID }},
	}

	for _, step := range steps {
		for i := 0; i < step.count; i++ {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			if err := step.create(i); err != nil {
				summary.Skipped[step.collection]++
				log.Warn().Err(err).
					Str("collection", step.collection).
					Str("id", step.id(i)).
					Msg("skipping rejected record")
				continue
			}
			summary.Written[step.collection]++
		}
	}
	return summary, nil
}

// checkReferral resolves the parties an imported referral names against the
// records already loaded and rejects it when the donor cannot supply the
// recipient or its blood type snapshot disagrees with the donor
func checkReferral(ctx context.Context, store repositories.Store, referral *entities.Referral) error {
	donor, err := store.Donors().GetByID(ctx, referral.DonorID)
	if err != nil {
		return err
	}
	recipient, err := store.Recipients().GetByID(ctx, referral.RecipientID)
	if err != nil {
		return err
	}
	if _, err := store.Hospitals().GetByID(ctx, referral.HospitalID); err != nil {
		return err
	}

	if !rules.IsCompatible(donor.BloodType, recipient.BloodType) {
		return apperrors.NewIncompatibilityError(fmt.Sprintf(
			"donor blood type %s cannot be given to recipient blood type %s",
			donor.BloodType, recipient.BloodType))
	}
	if referral.DonorBloodType != donor.BloodType {
		return apperrors.NewValidationError(fmt.Sprintf(
			"donor blood type snapshot %s does not match donor %s (%s)",
			referral.DonorBloodType, donor.ID, donor.BloodType))
	}
	return nil
}
