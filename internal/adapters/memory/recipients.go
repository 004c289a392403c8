package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type recipientRepo struct{ s *Store }

func (r recipientRepo) Create(ctx context.Context, recipient *entities.Recipient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if recipient.ID == "" {
		recipient.ID = r.s.newID()
	}
	if _, exists := r.s.data.recipients[recipient.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("recipient with id %s already exists", recipient.ID))
	}
	for _, existing := range r.s.data.recipients {
		if existing.UserID == recipient.UserID {
			return apperrors.NewDuplicateProfileError(fmt.Sprintf("user %s already has a recipient profile", recipient.UserID))
		}
	}
	if recipient.CreatedAt.IsZero() {
		recipient.CreatedAt = r.s.now()
	}
	if recipient.UpdatedAt.IsZero() {
		recipient.UpdatedAt = recipient.CreatedAt
	}
	r.s.data.recipients[recipient.ID] = *recipient
	return nil
}

func (r recipientRepo) GetByID(ctx context.Context, id string) (*entities.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.data.recipients[id]
	if !ok {
		return nil, apperrors.NotFoundf("recipient", id)
	}
	return &rec, nil
}

func (r recipientRepo) GetByUserID(ctx context.Context, userID string) (*entities.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.data.recipients {
		if rec.UserID == userID {
			out := rec
			return &out, nil
		}
	}
	return nil, apperrors.NewNotFoundError(fmt.Sprintf("recipient for user %s not found", userID))
}

func (r recipientRepo) List(ctx context.Context, filter repositories.RecipientFilter) ([]*entities.Recipient, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	wanted := make(map[entities.BloodType]bool, len(filter.BloodTypes))
	for _, bt := range filter.BloodTypes {
		wanted[bt] = true
	}

	recipients := make([]*entities.Recipient, 0, len(r.s.data.recipients))
	for _, rec := range r.s.data.recipients {
		if len(wanted) > 0 && !wanted[rec.BloodType] {
			continue
		}
		if filter.Urgency != "" && rec.Urgency != filter.Urgency {
			continue
		}
		out := rec
		recipients = append(recipients, &out)
	}
	sortByCreated(recipients,
		func(r *entities.Recipient) time.Time { return r.CreatedAt },
		func(r *entities.Recipient) string { return r.ID })
	return recipients, nil
}

func (r recipientRepo) Update(ctx context.Context, recipient *entities.Recipient) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.recipients[recipient.ID]; !ok {
		return apperrors.NotFoundf("recipient", recipient.ID)
	}
	recipient.UpdatedAt = r.s.now()
	r.s.data.recipients[recipient.ID] = *recipient
	return nil
}
