package services_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/events"
	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) InvalidateMatches(ctx context.Context) error {
	c.calls.Add(1)
	return nil
}

func TestCacheInvalidationService_InvalidatesOnEveryChannel(t *testing.T) {
	bus := events.NewLocalEventBus()
	defer bus.Close()
	invalidator := &countingInvalidator{}

	svc := services.NewCacheInvalidationService(invalidator, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	ctx := context.Background()
	ref := &entities.Referral{ID: "ref-1", Status: entities.ReferralStatusPending}
	require.NoError(t, bus.Publish(ctx, providers.EventChannelReferrals, entities.NewReferralEvent(entities.ReferralEventCreated, ref, refNow)))
	require.NoError(t, bus.Publish(ctx, providers.EventChannelDonors, entities.NewDonorEvent(entities.DonorEventAvailability, "d-1", refNow)))
	require.NoError(t, bus.Publish(ctx, providers.EventChannelRecipients, entities.NewRecipientEvent("r-1", refNow)))

	assert.Eventually(t, func() bool {
		return invalidator.calls.Load() == 3
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCacheInvalidationService_ClearsMatchCache(t *testing.T) {
	f := newFixture(t)
	f.donor(t, "Ada", entities.BloodTypeONegative, nil)
	f.recipient(t, "Rae", entities.BloodTypeABPositive, entities.UrgencyHigh)

	bus := events.NewLocalEventBus()
	defer bus.Close()
	cache := NewMockCacheProvider()
	matching := services.NewMatchingService(f.store, cache, 60, services.WithClock(f.clock.Now))
	recipients := services.NewRecipientService(f.store, services.WithClock(f.clock.Now), services.WithEventBus(bus))

	svc := services.NewCacheInvalidationService(matching, bus)
	require.NoError(t, svc.Start())
	defer svc.Stop()

	_, err := matching.GetAllMatches(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 1, cache.Len())

	f.user(t, "u-new", entities.RoleRecipient)
	_, err = recipients.CreateProfile(f.ctx, services.CreateRecipientInput{
		UserID: "u-new", Name: "Sam", BloodType: "O-", Urgency: "low",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return cache.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	matches, err := matching.GetAllMatches(f.ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 2)
}

type stubRefresher struct {
	calls atomic.Int32
	err   error
}

func (s *stubRefresher) RefreshAllAvailability(ctx context.Context) (int, error) {
	s.calls.Add(1)
	return 2, s.err
}

func TestAvailabilitySweeper_RunOnce(t *testing.T) {
	f := newFixture(t)
	f.donor(t, "Ada", entities.BloodTypeONegative, monthsAgo(4))
	donors := services.NewDonorService(f.store, f.opts...)

	sweeper := services.NewAvailabilitySweeper(donors)
	assert.Equal(t, 1, sweeper.RunOnce(f.ctx))
	assert.Equal(t, 0, sweeper.RunOnce(f.ctx))

	failing := services.NewAvailabilitySweeper(&stubRefresher{err: errors.New("db down")})
	assert.Equal(t, 2, failing.RunOnce(f.ctx))
}

func TestAvailabilitySweeper_Schedules(t *testing.T) {
	refresher := &stubRefresher{}
	c := cron.New(cron.WithSeconds(), cron.WithLogger(cron.DiscardLogger))
	sweeper := services.NewAvailabilitySweeper(refresher,
		services.WithSweepCron(c),
		services.WithSweepSchedule("* * * * * *"),
	)

	require.NoError(t, sweeper.Start())
	defer sweeper.Stop()

	assert.Eventually(t, func() bool { return refresher.calls.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestAvailabilitySweeper_RejectsBadSchedule(t *testing.T) {
	sweeper := services.NewAvailabilitySweeper(&stubRefresher{}, services.WithSweepSchedule("every tuesday"))
	assert.Error(t, sweeper.Start())
}
