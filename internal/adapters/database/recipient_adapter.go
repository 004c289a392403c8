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

// RecipientAdapter implements the RecipientRepository interface
type RecipientAdapter struct {
	s *Store
}

var recipientColumns = []interface{}{
	"id", "user_id", "name", "blood_type", "urgency", "hospital_preference",
	"email", "phone", "medical_notes", "created_at", "updated_at",
}

// Create creates a new recipient
func (a *RecipientAdapter) Create(ctx context.Context, recipient *entities.Recipient) error {
	if recipient.ID == "" {
		recipient.ID = uuid.New().String()
	}
	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = a.s.now()
	}
	if recipient.UpdatedAt.IsZero() {
		recipient.UpdatedAt = recipient.CreatedAt
	}

	record := goqu.Record{
		"id":                  recipient.ID,
		"user_id":             recipient.UserID,
		"name":                recipient.Name,
		"blood_type":          string(recipient.BloodType),
		"urgency":             string(recipient.Urgency),
		"hospital_preference": nullString(recipient.HospitalPreference),
		"email":               nullString(recipient.Email),
		"phone":               nullString(recipient.Phone),
		"medical_notes":       nullString(recipient.MedicalNotes),
		"created_at":          recipient.CreatedAt,
		"updated_at":          recipient.UpdatedAt,
	}

	_, err := a.s.exec(ctx, a.s.dialect.Insert("recipients").Prepared(true).Rows(record), "create recipient")
	return err
}

// GetByID retrieves a recipient by ID
func (a *RecipientAdapter) GetByID(ctx context.Context, id string) (*entities.Recipient, error) {
	recipient, err := a.getOne(ctx, goqu.Ex{"id": id})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFoundf("recipient", id)
	}
	return recipient, err
}

// GetByUserID retrieves the recipient profile owned by a user
func (a *RecipientAdapter) GetByUserID(ctx context.Context, userID string) (*entities.Recipient, error) {
	recipient, err := a.getOne(ctx, goqu.Ex{"user_id": userID})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("recipient for user %s not found", userID))
	}
	return recipient, err
}

func (a *RecipientAdapter) getOne(ctx context.Context, where goqu.Ex) (*entities.Recipient, error) {
	query, args, err := a.s.dialect.From("recipients").Prepared(true).
		Select(recipientColumns...).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return scanRecipient(a.s.q.QueryRowContext(ctx, query, args...))
}

// List retrieves recipients with filters
func (a *RecipientAdapter) List(ctx context.Context, filter repositories.RecipientFilter) ([]*entities.Recipient, error) {
	ds := a.s.dialect.From("recipients").Prepared(true).Select(recipientColumns...)

	if len(filter.BloodTypes) > 0 {
		types := make([]string, len(filter.BloodTypes))
		for i, bt := range filter.BloodTypes {
			types[i] = string(bt)
		}
		ds = ds.Where(goqu.Ex{"blood_type": types})
	}
	if filter.Urgency != "" {
		ds = ds.Where(goqu.Ex{"urgency": string(filter.Urgency)})
	}

	query, args, err := ds.Order(goqu.C("created_at").Asc(), goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list recipients", err)
	}
	defer rows.Close()

	recipients := make([]*entities.Recipient, 0)
	for rows.Next() {
		recipient, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, recipient)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate recipients", err)
	}

	return recipients, nil
}

// Update updates a recipient
func (a *RecipientAdapter) Update(ctx context.Context, recipient *entities.Recipient) error {
	recipient.UpdatedAt = a.s.now()

	record := goqu.Record{
		"name":                recipient.Name,
		"urgency":             string(recipient.Urgency),
		"hospital_preference": nullString(recipient.HospitalPreference),
		"email":               nullString(recipient.Email),
		"phone":               nullString(recipient.Phone),
		"medical_notes":       nullString(recipient.MedicalNotes),
		"updated_at":          recipient.UpdatedAt,
	}

	ds := a.s.dialect.Update("recipients").Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": recipient.ID})

	rowsAffected, err := a.s.exec(ctx, ds, "update recipient")
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return apperrors.NotFoundf("recipient", recipient.ID)
	}
	return nil
}

func scanRecipient(row rowScanner) (*entities.Recipient, error) {
	recipient := &entities.Recipient{}
	var bloodType, urgency string
	var hospitalPreference, email, phone, medicalNotes sql.NullString

	err := row.Scan(
		&recipient.ID,
		&recipient.UserID,
		&recipient.Name,
		&bloodType,
		&urgency,
		&hospitalPreference,
		&email,
		&phone,
		&medicalNotes,
		&recipient.CreatedAt,
		&recipient.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan recipient", err)
	}

	recipient.BloodType = entities.BloodType(bloodType)
	if !recipient.BloodType.IsValid() {
		return nil, corrupt("recipient", recipient.ID, "blood type", bloodType)
	}
	recipient.Urgency, err = entities.ParseUrgency(urgency)
	if err != nil {
		return nil, corrupt("recipient", recipient.ID, "urgency", urgency)
	}
	recipient.HospitalPreference = hospitalPreference.String
	recipient.Email = email.String
	recipient.Phone = phone.String
	recipient.MedicalNotes = medicalNotes.String

	return recipient, nil
}
