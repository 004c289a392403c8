package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// ReferralAdapter implements the ReferralRepository interface
type ReferralAdapter struct {
	s *Store
}

var referralColumns = []interface{}{
	"id", "donor_id", "recipient_id", "hospital_id", "status",
	"donor_name", "donor_blood_type", "recipient_name", "hospital_name",
	"notes", "transfusion_details", "version", "created_at", "updated_at",
}

// Create creates a new referral
func (a *ReferralAdapter) Create(ctx context.Context, referral *entities.Referral) error {
	if referral.ID == "" {
		referral.ID = uuid.New().String()
	}
	if referral.CreatedAt.IsZero() {
		referral.CreatedAt = a.s.now()
	}
	if referral.UpdatedAt.IsZero() {
		referral.UpdatedAt = referral.CreatedAt
	}
	if referral.Version == 0 {
		referral.Version = 1
	}

	details, err := marshalDetails(referral.TransfusionDetails)
	if err != nil {
		return err
	}

	record := goqu.Record{
		"id":                  referral.ID,
		"donor_id":            referral.DonorID,
		"recipient_id":        referral.RecipientID,
		"hospital_id":         referral.HospitalID,
		"status":              string(referral.Status),
		"donor_name":          referral.DonorName,
		"donor_blood_type":    string(referral.DonorBloodType),
		"recipient_name":      referral.RecipientName,
		"hospital_name":       referral.HospitalName,
		"notes":               nullString(referral.Notes),
		"transfusion_details": details,
		"version":             referral.Version,
		"created_at":          referral.CreatedAt,
		"updated_at":          referral.UpdatedAt,
	}

	_, err = a.s.exec(ctx, a.s.dialect.Insert("referrals").Prepared(true).Rows(record), "create referral")
	return err
}

// GetByID retrieves a referral by ID
func (a *ReferralAdapter) GetByID(ctx context.Context, id string) (*entities.Referral, error) {
	query, args, err := a.s.dialect.From("referrals").Prepared(true).
		Select(referralColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	referral, err := scanReferral(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("referral", id)
	}
	return referral, err
}

// List retrieves referrals with filters, newest first
func (a *ReferralAdapter) List(ctx context.Context, filter repositories.ReferralFilter) ([]*entities.Referral, error) {
	where := goqu.Ex{}
	if filter.Status != "" {
		where["status"] = string(filter.Status)
	}
	if filter.DonorID != "" {
		where["donor_id"] = filter.DonorID
	}
	if filter.RecipientID != "" {
		where["recipient_id"] = filter.RecipientID
	}
	if filter.HospitalID != "" {
		where["hospital_id"] = filter.HospitalID
	}

	ds := a.s.dialect.From("referrals").Prepared(true).Select(referralColumns...)
	if len(where) > 0 {
		ds = ds.Where(where)
	}

	query, args, err := ds.Order(goqu.C("created_at").Desc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list referrals", err)
	}
	defer rows.Close()

	referrals := make([]*entities.Referral, 0)
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		referrals = append(referrals, referral)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate referrals", err)
	}

	return referrals, nil
}

// Update replaces a referral when its version matches
func (a *ReferralAdapter) Update(ctx context.Context, referral *entities.Referral) error {
	details, err := marshalDetails(referral.TransfusionDetails)
	if err != nil {
		return err
	}
	updatedAt := a.s.now()

	record := goqu.Record{
		"status":              string(referral.Status),
		"notes":               nullString(referral.Notes),
		"transfusion_details": details,
		"version":             goqu.L("version + 1"),
		"updated_at":          updatedAt,
	}

	ds := a.s.dialect.Update("referrals").Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": referral.ID, "version": referral.Version})

	rowsAffected, err := a.s.exec(ctx, ds, "update referral")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return a.s.staleOrMissing(ctx, "referrals", "referral", referral.ID)
	}

	referral.Version++
	referral.UpdatedAt = updatedAt
	return nil
}

// UpdateStatus sets the status of the referral at expectedVersion
func (a *ReferralAdapter) UpdateStatus(ctx context.Context, id string, expectedVersion int, status entities.ReferralStatus, at time.Time) (*entities.Referral, error) {
	query, args, err := a.s.dialect.Update("referrals").Prepared(true).
		Set(goqu.Record{
			"status":     string(status),
			"version":    goqu.L("version + 1"),
			"updated_at": at,
		}).
		Where(goqu.Ex{"id": id, "version": expectedVersion}).
		Returning(referralColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build update query", err)
	}

	referral, err := scanReferral(a.s.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, a.s.staleOrMissing(ctx, "referrals", "referral", id)
	}
	return referral, err
}

func marshalDetails(details *entities.TransfusionDetails) (interface{}, error) {
	if details == nil {
		return nil, nil
	}
	data, err := json.Marshal(details)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode transfusion details", err)
	}
	return string(data), nil
}

func scanReferral(row rowScanner) (*entities.Referral, error) {
	referral := &entities.Referral{}
	var status, donorBloodType string
	var notes sql.NullString
	var details []byte

	err := row.Scan(
		&referral.ID,
		&referral.DonorID,
		&referral.RecipientID,
		&referral.HospitalID,
		&status,
		&referral.DonorName,
		&donorBloodType,
		&referral.RecipientName,
		&referral.HospitalName,
		&notes,
		&details,
		&referral.Version,
		&referral.CreatedAt,
		&referral.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan referral", err)
	}

	referral.Status, err = entities.ParseReferralStatus(status)
	if err != nil {
		return nil, corrupt("referral", referral.ID, "status", status)
	}
	referral.DonorBloodType = entities.BloodType(donorBloodType)
	if !referral.DonorBloodType.IsValid() {
		return nil, corrupt("referral", referral.ID, "donor blood type", donorBloodType)
	}
	referral.Notes = notes.String
	if len(details) > 0 {
		referral.TransfusionDetails = &entities.TransfusionDetails{}
		if err := json.Unmarshal(details, referral.TransfusionDetails); err != nil {
			return nil, apperrors.NewInternalError("failed to decode transfusion details", err)
		}
	}

	return referral, nil
}
