package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	"github.com/zatekoja/bloodlink/pkg/validate"
)

// HospitalService handles hospital administration. Reads may be served by
// a caching repository.
type HospitalService struct {
	base
	repo repositories.HospitalRepository
}

// NewHospitalService creates a new hospital service
func NewHospitalService(repo repositories.HospitalRepository, opts ...Option) *HospitalService {
	return &HospitalService{
		base: newBase(opts),
		repo: repo,
	}
}

// HospitalInput is the payload for creating a hospital
type HospitalInput struct {
	Name       string   `json:"name" validate:"required,max=200"`
	Location   string   `json:"location" validate:"max=500"`
	Phone      string   `json:"phone" validate:"max=32"`
	BloodTypes []string `json:"blood_types" validate:"dive,bloodtype"`
}

// UpdateHospitalInput holds the editable hospital fields. Nil fields are left unchanged.
type UpdateHospitalInput struct {
	Name       *string   `json:"name" validate:"omitempty,min=1,max=200"`
	Location   *string   `json:"location" validate:"omitempty,max=500"`
	Phone      *string   `json:"phone" validate:"omitempty,max=32"`
	BloodTypes *[]string `json:"blood_types" validate:"omitempty,dive,bloodtype"`
}

// Create adds a hospital
func (s *HospitalService) Create(ctx context.Context, input HospitalInput) (*entities.Hospital, error) {
	ctx, span := observability.StartSpan(ctx, "HospitalService.Create")
	defer span.End()

	input.Name = strings.TrimSpace(input.Name)
	input.BloodTypes = normalizeBloodTypes(input.BloodTypes)
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	now := s.now()
	hospital := &entities.Hospital{
		Name:       input.Name,
		Location:   input.Location,
		Phone:      input.Phone,
		BloodTypes: toBloodTypes(input.BloodTypes),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Create(ctx, hospital); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	log.Info().Str("hospital_id", hospital.ID).Msg("hospital created")
	return hospital, nil
}

// Update applies hospital edits
func (s *HospitalService) Update(ctx context.Context, id string, input UpdateHospitalInput) (*entities.Hospital, error) {
	ctx, span := observability.StartSpan(ctx, "HospitalService.Update")
	defer span.End()

	if input.BloodTypes != nil {
		normalized := normalizeBloodTypes(*input.BloodTypes)
		input.BloodTypes = &normalized
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	hospital, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		hospital.Name = strings.TrimSpace(*input.Name)
	}
	if input.Location != nil {
		hospital.Location = *input.Location
	}
	if input.Phone != nil {
		hospital.Phone = *input.Phone
	}
	if input.BloodTypes != nil {
		hospital.BloodTypes = toBloodTypes(*input.BloodTypes)
	}
	hospital.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, hospital); err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	return hospital, nil
}

// Get retrieves a hospital by ID
func (s *HospitalService) Get(ctx context.Context, id string) (*entities.Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

// List retrieves all hospitals ordered by name
func (s *HospitalService) List(ctx context.Context) ([]*entities.Hospital, error) {
	return s.repo.List(ctx)
}

// normalizeBloodTypes canonicalises spelling and drops duplicates. Unknown
// values are kept so validation can report them.
func normalizeBloodTypes(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if bt, err := entities.ParseBloodType(v); err == nil {
			v = string(bt)
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toBloodTypes(values []string) []entities.BloodType {
	out := make([]entities.BloodType, len(values))
	for i, v := range values {
		out[i] = entities.BloodType(v)
	}
	return out
}
