package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/domain/rules"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

// ReferralService drives referrals through their lifecycle. Every operation
// runs in a single store transaction; events are published only after the
// transaction commits.
type ReferralService struct {
	base
	store repositories.Store
}

// NewReferralService creates a new referral service
func NewReferralService(store repositories.Store, opts ...Option) *ReferralService {
	return &ReferralService{
		base:  newBase(opts),
		store: store,
	}
}

// ScheduleInput carries the transfusion slot for ScheduleTransfusion
type ScheduleInput struct {
	ScheduledDate string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	TimeSlot      string `json:"time_slot" validate:"required"`
	Notes         string `json:"notes" validate:"max=500"`
}

// CreateReferral links a donor to a compatible recipient at a hospital.
// It fails with NOT_FOUND naming the missing entity, or INCOMPATIBLE when
// the donor's blood cannot be given to the recipient. Nothing is written on
// failure.
func (s *ReferralService) CreateReferral(ctx context.Context, donorID, recipientID, hospitalID string) (*entities.Referral, error) {
	ctx, span := observability.StartSpan(ctx, "ReferralService.CreateReferral")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("donor.id", donorID),
		attribute.String("recipient.id", recipientID),
		attribute.String("hospital.id", hospitalID),
	)

	if donorID == "" || recipientID == "" || hospitalID == "" {
		return nil, apperrors.NewValidationError("donor_id, recipient_id and hospital_id are required")
	}

	var referral *entities.Referral
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		donor, err := tx.Donors().GetByID(ctx, donorID)
		if err != nil {
			return err
		}
		recipient, err := tx.Recipients().GetByID(ctx, recipientID)
		if err != nil {
			return err
		}
		hospital, err := tx.Hospitals().GetByID(ctx, hospitalID)
		if err != nil {
			return err
		}

		if !rules.IsCompatible(donor.BloodType, recipient.BloodType) {
			return apperrors.NewIncompatibilityError(fmt.Sprintf(
				"donor blood type %s cannot be given to recipient blood type %s",
				donor.BloodType, recipient.BloodType))
		}

		now := s.now()
		referral = &entities.Referral{
			DonorID:        donor.ID,
			RecipientID:    recipient.ID,
			HospitalID:     hospital.ID,
			Status:         entities.ReferralStatusPending,
			DonorName:      donor.Name,
			DonorBloodType: donor.BloodType,
			RecipientName:  recipient.Name,
			HospitalName:   hospital.Name,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Referrals().Create(ctx, referral); err != nil {
			return fmt.Errorf("failed to create referral: %w", err)
		}

		meta := referralMetadata(referral)
		if err := s.notify(ctx, tx, donor.UserID, entities.NotificationReferralCreated,
			fmt.Sprintf("You have been referred to donate blood for %s at %s.", recipient.Name, hospital.Name), meta); err != nil {
			return err
		}
		return s.notify(ctx, tx, recipient.UserID, entities.NotificationReferralCreated,
			fmt.Sprintf("A compatible donor, %s (%s), has been referred to you at %s.", donor.Name, donor.BloodType, hospital.Name), meta)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().
		Str("referral_id", referral.ID).
		Str("donor_id", donorID).
		Str("recipient_id", recipientID).
		Msg("referral created")
	observability.RecordReferralCreated(ctx, s.metrics, hospitalID)
	s.publish(ctx, providers.EventChannelReferrals,
		entities.NewReferralEvent(entities.ReferralEventCreated, referral, referral.CreatedAt))

	return referral, nil
}

// UpdateReferralStatus moves a referral to status against its current version
func (s *ReferralService) UpdateReferralStatus(ctx context.Context, id string, status entities.ReferralStatus) (*entities.Referral, error) {
	return s.updateStatus(ctx, id, status, 0)
}

// UpdateReferralStatusVersion is UpdateReferralStatus guarded by the version
// the caller last read. A stale version fails with CONFLICT.
func (s *ReferralService) UpdateReferralStatusVersion(ctx context.Context, id string, status entities.ReferralStatus, expectedVersion int) (*entities.Referral, error) {
	if expectedVersion <= 0 {
		return nil, apperrors.NewValidationError("version must be positive")
	}
	return s.updateStatus(ctx, id, status, expectedVersion)
}

func (s *ReferralService) updateStatus(ctx context.Context, id string, status entities.ReferralStatus, expectedVersion int) (*entities.Referral, error) {
	ctx, span := observability.StartSpan(ctx, "ReferralService.UpdateReferralStatus")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("referral.id", id),
		attribute.String("referral.status", string(status)),
	)

	status = entities.ReferralStatus(strings.ToLower(strings.TrimSpace(string(status))))

	var (
		from    entities.ReferralStatus
		updated *entities.Referral
	)
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		current, err := tx.Referrals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !status.IsValid() {
			return apperrors.NewInvalidTransitionError(fmt.Sprintf("unknown referral status %q", status))
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return apperrors.NewConflictError(fmt.Sprintf(
				"referral %s is at version %d, expected %d", id, current.Version, expectedVersion))
		}
		if err := checkTransition(current, status); err != nil {
			return err
		}

		from = current.Status
		now := s.now()
		updated, err = tx.Referrals().UpdateStatus(ctx, id, current.Version, status, now)
		if err != nil {
			return err
		}

		if status == entities.ReferralStatusCompleted {
			return s.completeDonation(ctx, tx, updated)
		}
		return s.notifyStatusChange(ctx, tx, updated)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.afterTransition(ctx, from, updated)
	return updated, nil
}

// ScheduleTransfusion attaches a transfusion slot to a referral and moves it
// to scheduled
func (s *ReferralService) ScheduleTransfusion(ctx context.Context, id string, input ScheduleInput) (*entities.Referral, error) {
	ctx, span := observability.StartSpan(ctx, "ReferralService.ScheduleTransfusion")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("referral.id", id))

	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	date, err := parseDate(input.ScheduledDate)
	if err != nil {
		return nil, err
	}

	var (
		from    entities.ReferralStatus
		updated *entities.Referral
	)
	err = s.store.Atomic(ctx, func(tx repositories.Store) error {
		current, err := tx.Referrals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := checkTransition(current, entities.ReferralStatusScheduled); err != nil {
			return err
		}
		if date.Before(entities.SlotDate(s.now())) {
			return apperrors.NewValidationError("scheduled_date is in the past")
		}

		from = current.Status
		current.Status = entities.ReferralStatusScheduled
		current.TransfusionDetails = &entities.TransfusionDetails{
			ScheduledDate: date,
			TimeSlot:      input.TimeSlot,
			Notes:         input.Notes,
		}
		if err := tx.Referrals().Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return s.notifyStatusChange(ctx, tx, updated)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.afterTransition(ctx, from, updated)
	return updated, nil
}

// GetReferral retrieves a referral by ID
func (s *ReferralService) GetReferral(ctx context.Context, id string) (*entities.Referral, error) {
	return s.store.Referrals().GetByID(ctx, id)
}

// ListReferrals retrieves referrals, newest first
func (s *ReferralService) ListReferrals(ctx context.Context, filter repositories.ReferralFilter) ([]*entities.Referral, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown referral status %q", filter.Status))
	}
	return s.store.Referrals().List(ctx, filter)
}

// completeDonation records the donation on the donor and tells both parties
func (s *ReferralService) completeDonation(ctx context.Context, tx repositories.Store, referral *entities.Referral) error {
	donor, err := tx.Donors().GetByID(ctx, referral.DonorID)
	if err != nil {
		return err
	}
	recipient, err := tx.Recipients().GetByID(ctx, referral.RecipientID)
	if err != nil {
		return err
	}

	donatedAt := referral.UpdatedAt
	donor.LastDonationDate = &donatedAt
	donor.IsAvailable = rules.ComputeAvailability(donor.LastDonationDate, donatedAt)
	if err := tx.Donors().Update(ctx, donor); err != nil {
		return fmt.Errorf("failed to record donation: %w", err)
	}

	meta := referralMetadata(referral)
	if err := s.notify(ctx, tx, donor.UserID, entities.NotificationReferralCompleted,
		fmt.Sprintf("Thank you for donating blood at %s. You can donate again from %s.",
			referral.HospitalName, rules.NextEligibleDate(donatedAt).Format("2 January 2006")), meta); err != nil {
		return err
	}
	return s.notify(ctx, tx, recipient.UserID, entities.NotificationReferralCompleted,
		fmt.Sprintf("Your transfusion at %s has been completed.", referral.HospitalName), meta)
}

func (s *ReferralService) notifyStatusChange(ctx context.Context, tx repositories.Store, referral *entities.Referral) error {
	donor, err := tx.Donors().GetByID(ctx, referral.DonorID)
	if err != nil {
		return err
	}
	recipient, err := tx.Recipients().GetByID(ctx, referral.RecipientID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Your referral at %s is now %s.", referral.HospitalName, referral.Status)
	if td := referral.TransfusionDetails; td != nil && referral.Status == entities.ReferralStatusScheduled {
		message = fmt.Sprintf("Your transfusion at %s is scheduled for %s, %s.",
			referral.HospitalName, td.ScheduledDate.Format("2 January 2006"), td.TimeSlot)
	}

	meta := referralMetadata(referral)
	if err := s.notify(ctx, tx, donor.UserID, entities.NotificationReferralStatusChanged, message, meta); err != nil {
		return err
	}
	return s.notify(ctx, tx, recipient.UserID, entities.NotificationReferralStatusChanged, message, meta)
}

func (s *ReferralService) afterTransition(ctx context.Context, from entities.ReferralStatus, referral *entities.Referral) {
	log.Info().
		Str("referral_id", referral.ID).
		Str("from", string(from)).
		Str("to", string(referral.Status)).
		Msg("referral status changed")
	observability.RecordReferralTransition(ctx, s.metrics, string(from), string(referral.Status))

	s.publish(ctx, providers.EventChannelReferrals,
		entities.NewReferralEvent(entities.ReferralEventStatusChanged, referral, referral.UpdatedAt))
	if referral.Status == entities.ReferralStatusCompleted {
		s.publish(ctx, providers.EventChannelDonors,
			entities.NewDonorEvent(entities.DonorEventAvailability, referral.DonorID, referral.UpdatedAt))
	}
}

func checkTransition(referral *entities.Referral, to entities.ReferralStatus) error {
	if referral.Status.IsTerminal() {
		return apperrors.NewInvalidTransitionError(fmt.Sprintf(
			"referral %s is %s and cannot change", referral.ID, referral.Status))
	}
	if !rules.CanTransition(referral.Status, to) {
		return apperrors.NewInvalidTransitionError(fmt.Sprintf(
			"referral %s cannot move from %s to %s", referral.ID, referral.Status, to))
	}
	return nil
}

func referralMetadata(referral *entities.Referral) map[string]string {
	return map[string]string{
		"referral_id":  referral.ID,
		"donor_id":     referral.DonorID,
		"recipient_id": referral.RecipientID,
		"hospital_id":  referral.HospitalID,
	}
}
