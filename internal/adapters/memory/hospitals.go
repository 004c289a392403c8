package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

type hospitalRepo struct{ s *Store }

func (r hospitalRepo) Create(ctx context.Context, hospital *entities.Hospital) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if hospital.ID == "" {
		hospital.ID = r.s.newID()
	}
	if _, exists := r.s.data.hospitals[hospital.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("hospital with id %s already exists", hospital.ID))
	}
	if hospital.CreatedAt.IsZero() {
		hospital.CreatedAt = r.s.now()
	}
	if hospital.UpdatedAt.IsZero() {
		hospital.UpdatedAt = hospital.CreatedAt
	}
	r.s.data.hospitals[hospital.ID] = cloneHospital(*hospital)
	return nil
}

func (r hospitalRepo) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	h, ok := r.s.data.hospitals[id]
	if !ok {
		return nil, apperrors.NotFoundf("hospital", id)
	}
	out := cloneHospital(h)
	return &out, nil
}

func (r hospitalRepo) List(ctx context.Context) ([]*entities.Hospital, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	hospitals := make([]*entities.Hospital, 0, len(r.s.data.hospitals))
	for _, h := range r.s.data.hospitals {
		out := cloneHospital(h)
		hospitals = append(hospitals, &out)
	}
	sort.Slice(hospitals, func(i, j int) bool {
		if hospitals[i].Name != hospitals[j].Name {
			return hospitals[i].Name < hospitals[j].Name
		}
		return hospitals[i].ID < hospitals[j].ID
	})
	return hospitals, nil
}

func (r hospitalRepo) Update(ctx context.Context, hospital *entities.Hospital) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.hospitals[hospital.ID]; !ok {
		return apperrors.NotFoundf("hospital", hospital.ID)
	}
	hospital.UpdatedAt = r.s.now()
	r.s.data.hospitals[hospital.ID] = cloneHospital(*hospital)
	return nil
}
