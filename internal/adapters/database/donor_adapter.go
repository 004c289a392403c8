package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// DonorAdapter implements the DonorRepository interface
type DonorAdapter struct {
	s *Store
}

var donorColumns = []interface{}{
	"id", "user_id", "name", "age", "blood_type", "email", "phone", "address",
	"last_donation_date", "is_available", "version", "created_at", "updated_at",
}

// Create creates a new donor
func (a *DonorAdapter) Create(ctx context.Context, donor *entities.Donor) error {
	if donor.ID == "" {
		donor.ID = uuid.New().String()
	}
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = a.s.now()
	}
	if donor.UpdatedAt.IsZero() {
		donor.UpdatedAt = donor.CreatedAt
	}
	if donor.Version == 0 {
		donor.Version = 1
	}

	record := goqu.Record{
		"id":                 donor.ID,
		"user_id":            donor.UserID,
		"name":               donor.Name,
		"age":                donor.Age,
		"blood_type":         string(donor.BloodType),
		"email":              nullString(donor.Email),
		"phone":              nullString(donor.Phone),
		"address":            nullString(donor.Address),
		"last_donation_date": nullTime(donor.LastDonationDate),
		"is_available":       donor.IsAvailable,
		"version":            donor.Version,
		"created_at":         donor.CreatedAt,
		"updated_at":         donor.UpdatedAt,
	}

	_, err := a.s.exec(ctx, a.s.dialect.Insert("donors").Prepared(true).Rows(record), "create donor")
	return err
}

// GetByID retrieves a donor by ID
func (a *DonorAdapter) GetByID(ctx context.Context, id string) (*entities.Donor, error) {
	donor, err := a.getOne(ctx, goqu.Ex{"id": id})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("donor", id)
	}
	return donor, err
}

// GetByUserID retrieves the donor profile owned by a user
func (a *DonorAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Donor, error) {
	donor, err := a.getOne(ctx, goqu.Ex{"user_id": userID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("donor for user %s not found", userID))
	}
	return donor, err
}

func (a *DonorAdapter) getOne(ctx context.Context, where goqu.Ex) (*entities.Donor, error) {
	query, args, err := a.s.dialect.From("donors").Prepared(true).
		Select(donorColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return scanDonor(a.s.q.QueryRowContext(ctx, query, args...))
}

// List retrieves donors with filters
func (a *DonorAdapter) List(ctx context.Context, filter repositories.DonorFilter) ([]*entities.Donor, error) {
	ds := a.s.dialect.From("donors").Prepared(true).Select(donorColumns...)

	if filter.BloodType != "" {
		ds = ds.Where(goqu.Ex{"blood_type": string(filter.BloodType)})
	}
	if filter.AvailableOnly {
		ds = ds.Where(goqu.Ex{"is_available": true})
	}

	query, args, err := ds.Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list donors", err)
	}
	defer rows.Close()

	donors := make([]*entities.Donor, 0)
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate donors", err)
	}

	return donors, nil
}

// Update replaces a donor when its version matches
func (a *DonorAdapter) Update(ctx context.Context, donor *entities.Donor) error {
	updatedAt := a.s.now()

	record := goqu.Record{
		"name":               donor.Name,
		"age":                donor.Age,
		"email":              nullString(donor.Email),
		"phone":              nullString(donor.Phone),
		"address":            nullString(donor.Address),
		"last_donation_date": nullTime(donor.LastDonationDate),
		"is_available":       donor.IsAvailable,
		"version":            goqu.L("version + 1"),
		"updated_at":         updatedAt,
	}

	ds := a.s.dialect.Update("donors").Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": donor.ID, "version": donor.Version})

	rowsAffected, err := a.s.exec(ctx, ds, "update donor")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return a.s.staleOrMissing(ctx, "donors", "donor", donor.ID)
	}

	donor.Version++
	donor.UpdatedAt = updatedAt
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonor(row rowScanner) (*entities.Donor, error) {
	donor := &entities.Donor{}
	var bloodType string
	var email, phone, address sql.NullString
	var lastDonation sql.NullTime

	err := row.Scan(
		&donor.ID,
		&donor.UserID,
		&donor.Name,
		&donor.Age,
		&bloodType,
		&email,
		&phone,
		&address,
		&lastDonation,
		&donor.IsAvailable,
		&donor.Version,
		&donor.CreatedAt,
		&donor.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan donor", err)
	}

	donor.BloodType = entities.BloodType(bloodType)
	if !donor.BloodType.IsValid() {
		return nil, corrupt("donor", donor.ID, "blood type", bloodType)
	}
	donor.Email = email.String
	donor.Phone = phone.String
	donor.Address = address.String
	if lastDonation.Valid {
		t := lastDonation.Time
		donor.LastDonationDate = &t
	}

	return donor, nil
}
