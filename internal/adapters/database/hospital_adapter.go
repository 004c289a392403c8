package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// HospitalAdapter implements the HospitalRepository interface
type HospitalAdapter struct {
	s *Store
}

var hospitalColumns = []interface{}{
	"id", "name", "location", "phone", "blood_types", "created_at", "updated_at",
}

// Create creates a new hospital
func (a *HospitalAdapter) Create(ctx context.Context, hospital *entities.Hospital) error {
	if hospital.ID == "" {
		hospital.ID = uuid.New().String()
	}
	if hospital.CreatedAt.IsZero() {
		hospital.CreatedAt = a.s.now()
	}
	if hospital.UpdatedAt.IsZero() {
		hospital.UpdatedAt = hospital.CreatedAt
	}

	record := goqu.Record{
		"id":          hospital.ID,
		"name":        hospital.Name,
		"location":    nullString(hospital.Location),
		"phone":       nullString(hospital.Phone),
		"blood_types": pq.Array(bloodTypeStrings(hospital.BloodTypes)),
		"created_at":  hospital.CreatedAt,
		"updated_at":  hospital.UpdatedAt,
	}

	_, err := a.s.exec(ctx, a.s.dialect.Insert("hospitals").Prepared(true).Rows(record), "create hospital")
	return err
}

// GetByID retrieves a hospital by ID
func (a *HospitalAdapter) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	query, args, err := a.s.dialect.From("hospitals").Prepared(true).
		Select(hospitalColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	hospital, err := scanHospital(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("hospital", id)
	}
	return hospital, err
}

// List retrieves all hospitals ordered by name
func (a *HospitalAdapter) List(ctx context.Context) ([]*entities.Hospital, error) {
	query, args, err := a.s.dialect.From("hospitals").Prepared(true).
		Select(hospitalColumns...).
		Order(goqu.C("name").Asc(), goqu.C("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list hospitals", err)
	}
	defer rows.Close()

	hospitals := make([]*entities.Hospital, 0)
	for rows.Next() {
		hospital, err := scanHospital(rows)
		if err != nil {
			return nil, err
		}
		hospitals = append(hospitals, hospital)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate hospitals", err)
	}

	return hospitals, nil
}

// Update updates a hospital
func (a *HospitalAdapter) Update(ctx context.Context, hospital *entities.Hospital) error {
	hospital.UpdatedAt = a.s.now()

	record := goqu.Record{
		"name":        hospital.Name,
		"location":    nullString(hospital.Location),
		"phone":       nullString(hospital.Phone),
		"blood_types": pq.Array(bloodTypeStrings(hospital.BloodTypes)),
		"updated_at":  hospital.UpdatedAt,
	}

	ds := a.s.dialect.Update("hospitals").Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": hospital.ID})

	rowsAffected, err := a.s.exec(ctx, ds, "update hospital")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("hospital", hospital.ID)
	}
	return nil
}

func bloodTypeStrings(types []entities.BloodType) []string {
	out := make([]string, len(types))
	for i, bt := range types {
		out[i] = string(bt)
	}
	return out
}

func scanHospital(row rowScanner) (*entities.Hospital, error) {
	hospital := &entities.Hospital{}
	var location, phone sql.NullString
	var bloodTypes []string

	err := row.Scan(
		&hospital.ID,
		&hospital.Name,
		&location,
		&phone,
		pq.Array(&bloodTypes),
		&hospital.CreatedAt,
		&hospital.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan hospital", err)
	}

	hospital.Location = location.String
	hospital.Phone = phone.String
	hospital.BloodTypes = make([]entities.BloodType, 0, len(bloodTypes))
	for _, raw := range bloodTypes {
		bt := entities.BloodType(raw)
		if !bt.IsValid() {
			return nil, corrupt("hospital", hospital.ID, "blood type", raw)
		}
		hospital.BloodTypes = append(hospital.BloodTypes, bt)
	}

	return hospital, nil
}
