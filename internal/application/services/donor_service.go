package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
	"github.com/zatekoja/bloodlink/pkg/retry"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

var conflictRetry = retry.Config{
	MaxAttempts:   3,
	InitialDelay:  10 * time.Millisecond,
	MaxDelay:      50 * time.Millisecond,
	BackoffFactor: 2,
	Jitter:        0.5,
	Retryable: func(err error) bool {
		return apperrors.IsType(err, apperrors.ErrorTypeConflict)
	},
}

// DonorService manages donor profiles and keeps their cached availability
// flag in line with the last donation date
type DonorService struct {
	base
	store repositories.Store
}

// NewDonorService creates a new donor service
func NewDonorService(store repositories.Store, opts ...Option) *DonorService {
	return &DonorService{
		base:  newBase(opts),
		store: store,
	}
}

// CreateDonorInput is the profile submitted when a user completes donor registration
type CreateDonorInput struct {
	UserID           string     `json:"user_id" validate:"required"`
	Name             string     `json:"name" validate:"required,max=200"`
	Age              int        `json:"age" validate:"gte=18,lte=65"`
	BloodType        string     `json:"blood_type" validate:"required,bloodtype"`
	Email            string     `json:"email" validate:"omitempty,email"`
	Phone            string     `json:"phone" validate:"max=32"`
	Address          string     `json:"address" validate:"max=500"`
	LastDonationDate *time.Time `json:"last_donation_date"`
}

// UpdateDonorInput holds the editable profile fields. Nil fields are left
// unchanged. Version, when set, must match the stored version.
type UpdateDonorInput struct {
	Name      *string `json:"name" validate:"omitempty,min=1,max=200"`
	Age       *int    `json:"age" validate:"omitempty,gte=18,lte=120"`
	BloodType *string `json:"blood_type"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=500"`
	Version   int     `json:"version"`
}

// CreateProfile registers the donor profile of an existing user. A user may
// own at most one donor profile.
func (s *DonorService) CreateProfile(ctx context.Context, input CreateDonorInput) (*entities.Donor, error) {
	ctx, span := observability.StartSpan(ctx, "DonorService.CreateProfile")
	defer span.End()

	if input.BloodType != "" {
		if bt, err := entities.ParseBloodType(input.BloodType); err == nil {
			input.BloodType = string(bt)
		}
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	now := s.now()
	if input.LastDonationDate != nil && input.LastDonationDate.After(now) {
		return nil, apperrors.NewValidationError("last_donation_date is in the future")
	}

	var donor *entities.Donor
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByID(ctx, input.UserID); err != nil {
			return err
		}
		if err := ensureNoProfile(ctx, "donor", input.UserID, func(ctx context.Context, userID string) error {
			_, err := tx.Donors().GetByUserID(ctx, userID)
			return err
		}); err != nil {
			return err
		}

		donor = &entities.Donor{
			UserID:           input.UserID,
			Name:             input.Name,
			Age:              input.Age,
			BloodType:        entities.BloodType(input.BloodType),
			Email:            input.Email,
			Phone:            input.Phone,
			Address:          input.Address,
			LastDonationDate: input.LastDonationDate,
			IsAvailable:      rules.ComputeAvailability(input.LastDonationDate, now),
			Version:          1,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		return tx.Donors().Create(ctx, donor)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().Str("donor_id", donor.ID).Str("user_id", donor.UserID).Msg("donor profile created")
	s.publish(ctx, providers.EventChannelDonors, entities.NewDonorEvent(entities.DonorEventUpdated, donor.ID, now))
	return donor, nil
}

// UpdateProfile applies profile edits. Blood type cannot change once assigned.
func (s *DonorService) UpdateProfile(ctx context.Context, id string, input UpdateDonorInput) (*entities.Donor, error) {
	ctx, span := observability.StartSpan(ctx, "DonorService.UpdateProfile")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("donor.id", id))

	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var donor *entities.Donor
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		current, err := tx.Donors().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if input.Version != 0 && input.Version != current.Version {
			return apperrors.NewConflictError(fmt.Sprintf(
				"donor %s is at version %d, expected %d", id, current.Version, input.Version))
		}
		if input.BloodType != nil {
			bt, err := entities.ParseBloodType(*input.BloodType)
			if err != nil || bt != current.BloodType {
				return apperrors.NewValidationError("blood_type cannot be changed")
			}
		}

		if input.Name != nil {
			current.Name = strings.TrimSpace(*input.Name)
		}
		if input.Age != nil {
			current.Age = *input.Age
		}
		if input.Email != nil {
			current.Email = *input.Email
		}
		if input.Phone != nil {
			current.Phone = *input.Phone
		}
		if input.Address != nil {
			current.Address = *input.Address
		}
		current.IsAvailable = rules.ComputeAvailability(current.LastDonationDate, s.now())

		if err := tx.Donors().Update(ctx, current); err != nil {
			return err
		}
		donor = current
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, providers.EventChannelDonors, entities.NewDonorEvent(entities.DonorEventUpdated, donor.ID, s.now()))
	return donor, nil
}

// GetDonor retrieves a donor, refreshing its availability first
func (s *DonorService) GetDonor(ctx context.Context, id string) (*entities.Donor, error) {
	donor, _, err := s.CheckAndUpdateDonorAvailability(ctx, id)
	return donor, err
}

// GetDonorByUser retrieves the donor profile owned by a user
func (s *DonorService) GetDonorByUser(ctx context.Context, userID string) (*entities.Donor, error) {
	donor, err := s.store.Donors().GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.GetDonor(ctx, donor.ID)
}

// ListDonors retrieves donors with their availability refreshed. The
// AvailableOnly filter is applied to the refreshed value, not the stored one.
func (s *DonorService) ListDonors(ctx context.Context, filter repositories.DonorFilter) ([]*entities.Donor, error) {
	ctx, span := observability.StartSpan(ctx, "DonorService.ListDonors")
	defer span.End()

	availableOnly := filter.AvailableOnly
	filter.AvailableOnly = false

	donors, err := s.store.Donors().List(ctx, filter)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	out := make([]*entities.Donor, 0, len(donors))
	for _, donor := range donors {
		changed, err := s.syncAvailability(ctx, s.store, donor, now)
		switch {
		case err == nil && changed:
			s.publishAvailability(ctx, donor.ID)
		case err != nil && apperrors.IsType(err, apperrors.ErrorTypeConflict):
			// A concurrent writer got there first; the computed flag is still right.
			donor.IsAvailable = rules.ComputeAvailability(donor.LastDonationDate, now)
		case err != nil:
			return nil, err
		}
		if availableOnly && !donor.IsAvailable {
			continue
		}
		out = append(out, donor)
	}
	return out, nil
}

// CheckAndUpdateDonorAvailability recomputes a donor's availability and
// persists it only when it differs from the stored flag
func (s *DonorService) CheckAndUpdateDonorAvailability(ctx context.Context, id string) (*entities.Donor, bool, error) {
	ctx, span := observability.StartSpan(ctx, "DonorService.CheckAndUpdateDonorAvailability")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("donor.id", id))

	var (
		donor   *entities.Donor
		changed bool
	)
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		var err error
		donor, err = tx.Donors().GetByID(ctx, id)
		if err != nil {
			return err
		}
		changed, err = s.syncAvailability(ctx, tx, donor, s.now())
		return err
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, false, err
	}
	if changed {
		s.publishAvailability(ctx, donor.ID)
	}
	return donor, changed, nil
}

// RefreshAllAvailability recomputes availability for every donor and
// returns how many flags changed. A donor modified concurrently is re-read
// and retried a few times, then skipped.
func (s *DonorService) RefreshAllAvailability(ctx context.Context) (int, error) {
	ctx, span := observability.StartSpan(ctx, "DonorService.RefreshAllAvailability")
	defer span.End()

	donors, err := s.store.Donors().List(ctx, repositories.DonorFilter{})
	if err != nil {
		observability.RecordError(span, err)
		return 0, err
	}

	now := s.now()
	updated := 0
	for _, donor := range donors {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		changed, err := s.refreshDonor(ctx, donor, now)
		if err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				log.Warn().Str("donor_id", donor.ID).Msg("skipping donor modified during availability refresh")
				continue
			}
			return updated, err
		}
		if changed {
			updated++
			s.publishAvailability(ctx, donor.ID)
		}
	}

	observability.SetSpanAttributes(span, attribute.Int("donors.updated", updated))
	return updated, nil
}

// refreshDonor syncs one donor, re-reading it after a version conflict
func (s *DonorService) refreshDonor(ctx context.Context, donor *entities.Donor, now time.Time) (bool, error) {
	var changed bool
	attempt := 0
	err := retry.Do(ctx, conflictRetry, func() error {
		attempt++
		if attempt > 1 {
			fresh, err := s.store.Donors().GetByID(ctx, donor.ID)
			if err != nil {
				return err
			}
			donor = fresh
		}
		var err error
		changed, err = s.syncAvailability(ctx, s.store, donor, now)
		return err
	})
	return changed, err
}

// syncAvailability writes the computed availability when it differs from
// the stored flag. Callers publish the change once it is committed.
func (s *DonorService) syncAvailability(ctx context.Context, store repositories.Store, donor *entities.Donor, now time.Time) (bool, error) {
	available := rules.ComputeAvailability(donor.LastDonationDate, now)
	if available == donor.IsAvailable {
		return false, nil
	}

	donor.IsAvailable = available
	if err := store.Donors().Update(ctx, donor); err != nil {
		return false, err
	}

	log.Info().
		Str("donor_id", donor.ID).
		Bool("is_available", available).
		Msg("donor availability changed")
	return true, nil
}

func (s *DonorService) publishAvailability(ctx context.Context, donorID string) {
	s.publish(ctx, providers.EventChannelDonors,
		entities.NewDonorEvent(entities.DonorEventAvailability, donorID, s.now()))
}

// ensureNoProfile fails with DUPLICATE_PROFILE when lookup finds a profile
// for userID
func ensureNoProfile(ctx context.Context, kind, userID string, lookup func(context.Context, string) error) error {
	err := lookup(ctx, userID)
	switch {
	case err == nil:
		return apperrors.NewDuplicateProfileError(fmt.Sprintf("user %s already has a %s profile", userID, kind))
	case apperrors.IsNotFound(err):
		return nil
	default:
		return err
	}
}
