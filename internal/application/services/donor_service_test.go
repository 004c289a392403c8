package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

func TestDonorService_CreateProfile(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", entities.RoleDonor)
	svc := services.NewDonorService(f.store, f.opts...)

	donor, err := svc.CreateProfile(f.ctx, services.CreateDonorInput{
		UserID:    "u1",
		Name:      "  Ada  ",
		Age:       30,
		BloodType: "o-",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada", donor.Name)
	assert.Equal(t, entities.BloodTypeONegative, donor.BloodType)
	assert.True(t, donor.IsAvailable)
	assert.Equal(t, 1, donor.Version)
	assert.Len(t, f.bus.On(providers.EventChannelDonors), 1)

	_, err = svc.CreateProfile(f.ctx, services.CreateDonorInput{UserID: "u1", Name: "Ada", Age: 30, BloodType: "O-"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeDuplicateProfile))
}

func TestDonorService_CreateProfile_Validation(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", entities.RoleDonor)
	svc := services.NewDonorService(f.store, f.opts...)

	future := refNow.Add(24 * time.Hour)
	tests := []struct {
		name  string
		input services.CreateDonorInput
		want  apperrors.ErrorType
	}{
		{"too young", services.CreateDonorInput{UserID: "u1", Name: "Kid", Age: 17, BloodType: "A+"}, apperrors.ErrorTypeValidation},
		{"too old", services.CreateDonorInput{UserID: "u1", Name: "Elder", Age: 66, BloodType: "A+"}, apperrors.ErrorTypeValidation},
		{"bad blood type", services.CreateDonorInput{UserID: "u1", Name: "Ada", Age: 30, BloodType: "C+"}, apperrors.ErrorTypeValidation},
		{"blank name", services.CreateDonorInput{UserID: "u1", Name: "   ", Age: 30, BloodType: "A+"}, apperrors.ErrorTypeValidation},
		{"future donation", services.CreateDonorInput{UserID: "u1", Name: "Ada", Age: 30, BloodType: "A+", LastDonationDate: &future}, apperrors.ErrorTypeValidation},
		{"unknown user", services.CreateDonorInput{UserID: "ghost", Name: "Ada", Age: 30, BloodType: "A+"}, apperrors.ErrorTypeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateProfile(f.ctx, tt.input)
			assert.Equal(t, tt.want, apperrors.TypeOf(err))
		})
	}
}

func TestDonorService_CreateProfile_RecentDonorUnavailable(t *testing.T) {
	f := newFixture(t)
	f.user(t, "u1", entities.RoleDonor)
	svc := services.NewDonorService(f.store, f.opts...)

	donor, err := svc.CreateProfile(f.ctx, services.CreateDonorInput{
		UserID: "u1", Name: "Ada", Age: 30, BloodType: "O+", LastDonationDate: monthsAgo(1),
	})
	require.NoError(t, err)
	assert.False(t, donor.IsAvailable)
}

func TestDonorService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	donor := f.donor(t, "Ada", entities.BloodTypeONegative, nil)
	svc := services.NewDonorService(f.store, f.opts...)

	name := "Ada Obi"
	phone := "+2348000000000"
	updated, err := svc.UpdateProfile(f.ctx, donor.ID, services.UpdateDonorInput{Name: &name, Phone: &phone, Version: donor.Version})
	require.NoError(t, err)
	assert.Equal(t, "Ada Obi", updated.Name)
	assert.Equal(t, phone, updated.Phone)
	assert.Equal(t, donor.Version+1, updated.Version)

	_, err = svc.UpdateProfile(f.ctx, donor.ID, services.UpdateDonorInput{Name: &name, Version: donor.Version})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "stale version")

	other := "A+"
	_, err = svc.UpdateProfile(f.ctx, donor.ID, services.UpdateDonorInput{BloodType: &other})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "blood type is immutable")

	same := "o-"
	_, err = svc.UpdateProfile(f.ctx, donor.ID, services.UpdateDonorInput{BloodType: &same})
	assert.NoError(t, err)

	_, err = svc.UpdateProfile(f.ctx, "missing", services.UpdateDonorInput{Name: &name})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDonorService_CheckAndUpdateDonorAvailability(t *testing.T) {
	t.Run("writes only when the flag changes", func(t *testing.T) {
		f := newFixture(t)
		donor := f.donor(t, "Ada", entities.BloodTypeONegative, nil)
		svc := services.NewDonorService(f.store, f.opts...)

		got, changed, err := svc.CheckAndUpdateDonorAvailability(f.ctx, donor.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.Equal(t, donor.Version, got.Version)
		assert.Empty(t, f.bus.On(providers.EventChannelDonors))
	})

	t.Run("cooldown lapses", func(t *testing.T) {
		f := newFixture(t)
		donor := f.donor(t, "Ada", entities.BloodTypeONegative, monthsAgo(2))
		svc := services.NewDonorService(f.store, f.opts...)

		got, changed, err := svc.CheckAndUpdateDonorAvailability(f.ctx, donor.ID)
		require.NoError(t, err)
		assert.False(t, changed)
		assert.False(t, got.IsAvailable)

		f.clock.Advance(32 * 24 * time.Hour)
		got, changed, err = svc.CheckAndUpdateDonorAvailability(f.ctx, donor.ID)
		require.NoError(t, err)
		assert.True(t, changed)
		assert.True(t, got.IsAvailable)

		stored, err := f.store.Donors().GetByID(f.ctx, donor.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsAvailable)
		assert.Equal(t, donor.Version+1, stored.Version)

		events := f.bus.On(providers.EventChannelDonors)
		require.Len(t, events, 1)
		assert.Equal(t, entities.DonorEventAvailability, events[0].EventType)
	})

	t.Run("stale stored flag is corrected on read", func(t *testing.T) {
		f := newFixture(t)
		donor := f.donor(t, "Ada", entities.BloodTypeONegative, monthsAgo(1))
		donor.IsAvailable = true
		require.NoError(t, f.store.Donors().Update(f.ctx, donor))
		svc := services.NewDonorService(f.store, f.opts...)

		got, err := svc.GetDonor(f.ctx, donor.ID)
		require.NoError(t, err)
		assert.False(t, got.IsAvailable)
	})

	t.Run("missing donor", func(t *testing.T) {
		f := newFixture(t)
		svc := services.NewDonorService(f.store, f.opts...)
		_, _, err := svc.CheckAndUpdateDonorAvailability(f.ctx, "missing")
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestDonorService_ListDonors(t *testing.T) {
	f := newFixture(t)
	f.donor(t, "Ada", entities.BloodTypeONegative, nil)
	stale := f.donor(t, "Ben", entities.BloodTypeAPositive, monthsAgo(1))
	stale.IsAvailable = true
	require.NoError(t, f.store.Donors().Update(f.ctx, stale))
	svc := services.NewDonorService(f.store, f.opts...)

	all, err := svc.ListDonors(f.ctx, repositories.DonorFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	available, err := svc.ListDonors(f.ctx, repositories.DonorFilter{AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Ada", available[0].Name)

	byType, err := svc.ListDonors(f.ctx, repositories.DonorFilter{BloodType: entities.BloodTypeAPositive})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.False(t, byType[0].IsAvailable)
}

func TestDonorService_RefreshAllAvailability(t *testing.T) {
	f := newFixture(t)
	f.donor(t, "Ada", entities.BloodTypeONegative, nil)
	f.donor(t, "Ben", entities.BloodTypeAPositive, monthsAgo(2))
	f.donor(t, "Cy", entities.BloodTypeBPositive, monthsAgo(4))
	svc := services.NewDonorService(f.store, f.opts...)

	updated, err := svc.RefreshAllAvailability(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "Cy's cooldown has already lapsed")

	f.clock.Advance(40 * 24 * time.Hour)
	updated, err = svc.RefreshAllAvailability(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "Ben becomes available")

	updated, err = svc.RefreshAllAvailability(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, updated)
}
