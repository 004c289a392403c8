package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

// RecipientService manages recipient profiles
type RecipientService struct {
	base
	store repositories.Store
}

// NewRecipientService creates a new recipient service
func NewRecipientService(store repositories.Store, opts ...Option) *RecipientService {
	return &RecipientService{
		base:  newBase(opts),
		store: store,
	}
}

// CreateRecipientInput is the profile submitted when a user registers as a recipient
type CreateRecipientInput struct {
	UserID             string `json:"user_id" validate:"required"`
	Name               string `json:"name" validate:"required,max=200"`
	BloodType          string `json:"blood_type" validate:"required,bloodtype"`
	Urgency            string `json:"urgency" validate:"required,urgency"`
	HospitalPreference string `json:"hospital_preference" validate:"max=200"`
	Email              string `json:"email" validate:"omitempty,email"`
	Phone              string `json:"phone" validate:"max=32"`
	MedicalNotes       string `json:"medical_notes" validate:"max=2000"`
}

// UpdateRecipientInput holds the editable profile fields. Nil fields are left unchanged.
type UpdateRecipientInput struct {
	Name               *string `json:"name" validate:"omitempty,min=1,max=200"`
	BloodType          *string `json:"blood_type"`
	Urgency            *string `json:"urgency" validate:"omitempty,urgency"`
	HospitalPreference *string `json:"hospital_preference" validate:"omitempty,max=200"`
	Email              *string `json:"email" validate:"omitempty,email"`
	Phone              *string `json:"phone" validate:"omitempty,max=32"`
	MedicalNotes       *string `json:"medical_notes" validate:"omitempty,max=2000"`
}

// CreateProfile registers the recipient profile of an existing user. A user
// may own at most one recipient profile.
func (s *RecipientService) CreateProfile(ctx context.Context, input CreateRecipientInput) (*entities.Recipient, error) {
	ctx, span := observability.StartSpan(ctx, "RecipientService.CreateProfile")
	defer span.End()

	if bt, err := entities.ParseBloodType(input.BloodType); err == nil {
		input.BloodType = string(bt)
	}
	input.Name = strings.TrimSpace(input.Name)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	urgency, _ := entities.ParseUrgency(input.Urgency)

	var recipient *entities.Recipient
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		if _, err := tx.Users().GetByID(ctx, input.UserID); err != nil {
			return err
		}
		if err := ensureNoProfile(ctx, "recipient", input.UserID, func(ctx context.Context, userID string) error {
			_, err := tx.Recipients().GetByUserID(ctx, userID)
			return err
		}); err != nil {
			return err
		}

		now := s.now()
		recipient = &entities.Recipient{
			UserID:             input.UserID,
			Name:               input.Name,
			BloodType:          entities.BloodType(input.BloodType),
			Urgency:            urgency,
			HospitalPreference: input.HospitalPreference,
			Email:              input.Email,
			Phone:              input.Phone,
			MedicalNotes:       input.MedicalNotes,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		return tx.Recipients().Create(ctx, recipient)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().Str("recipient_id", recipient.ID).Str("user_id", recipient.UserID).Msg("recipient profile created")
	s.publish(ctx, providers.EventChannelRecipients, entities.NewRecipientEvent(recipient.ID, recipient.CreatedAt))
	return recipient, nil
}

// UpdateProfile applies profile edits. Blood type cannot change once assigned.
func (s *RecipientService) UpdateProfile(ctx context.Context, id string, input UpdateRecipientInput) (*entities.Recipient, error) {
	ctx, span := observability.StartSpan(ctx, "RecipientService.UpdateProfile")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("recipient.id", id))

	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	var recipient *entities.Recipient
	err := s.store.Atomic(ctx, func(tx repositories.Store) error {
		current, err := tx.Recipients().GetByID(ctx, id)
		if err != nil {
			return err
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
		if input.Urgency != nil {
			current.Urgency, _ = entities.ParseUrgency(*input.Urgency)
		}
		if input.HospitalPreference != nil {
			current.HospitalPreference = *input.HospitalPreference
		}
		if input.Email != nil {
			current.Email = *input.Email
		}
		if input.Phone != nil {
			current.Phone = *input.Phone
		}
		if input.MedicalNotes != nil {
			current.MedicalNotes = *input.MedicalNotes
		}
		current.UpdatedAt = s.now()

		if err := tx.Recipients().Update(ctx, current); err != nil {
			return err
		}
		recipient = current
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, providers.EventChannelRecipients, entities.NewRecipientEvent(recipient.ID, recipient.UpdatedAt))
	return recipient, nil
}

// GetRecipient retrieves a recipient by ID
func (s *RecipientService) GetRecipient(ctx context.Context, id string) (*entities.Recipient, error) {
	return s.store.Recipients().GetByID(ctx, id)
}

// ListRecipients retrieves recipients with filters
func (s *RecipientService) ListRecipients(ctx context.Context, filter repositories.RecipientFilter) ([]*entities.Recipient, error) {
	return s.store.Recipients().List(ctx, filter)
}
