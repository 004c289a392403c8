package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/adapters/memory"
	"github.com/zatekoja/bloodlink/internal/application/services"
	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
)

var refNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// recordingBus captures published events synchronously
type recordingBus struct {
	mu     sync.Mutex
	events map[string][]*entities.ReferralEvent
}

func newRecordingBus() *recordingBus {
	return &recordingBus{events: make(map[string][]*entities.ReferralEvent)}
}

func (b *recordingBus) Publish(ctx context.Context, channel string, event *entities.ReferralEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *recordingBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReferralEvent, error) {
	return make(chan *entities.ReferralEvent), nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) On(channel string) []*entities.ReferralEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*entities.ReferralEvent(nil), b.events[channel]...)
}

var _ providers.EventBus = (*recordingBus)(nil)

type fixture struct {
	ctx   context.Context
	store *memory.Store
	clock *fakeClock
	bus   *recordingBus
	opts  []services.Option
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: refNow}
	bus := newRecordingBus()
	return &fixture{
		ctx:   context.Background(),
		store: memory.NewStore(memory.WithClock(clock.Now)),
		clock: clock,
		bus:   bus,
		opts:  []services.Option{services.WithClock(clock.Now), services.WithEventBus(bus)},
	}
}

func (f *fixture) user(t *testing.T, id string, role entities.UserRole) *entities.User {
	t.Helper()
	u := &entities.User{ID: id, Email: id + "@example.com", Name: id, Role: role}
	require.NoError(t, f.store.Users().Create(f.ctx, u))
	return u
}

func (f *fixture) donor(t *testing.T, name string, bt entities.BloodType, last *time.Time) *entities.Donor {
	t.Helper()
	u := f.user(t, "user-"+name, entities.RoleDonor)
	d := &entities.Donor{
		UserID:           u.ID,
		Name:             name,
		Age:              30,
		BloodType:        bt,
		LastDonationDate: last,
		IsAvailable:      last == nil,
		CreatedAt:        refNow,
	}
	require.NoError(t, f.store.Donors().Create(f.ctx, d))
	return d
}

func (f *fixture) recipient(t *testing.T, name string, bt entities.BloodType, urgency entities.Urgency) *entities.Recipient {
	t.Helper()
	u := f.user(t, "user-"+name, entities.RoleRecipient)
	r := &entities.Recipient{
		UserID:    u.ID,
		Name:      name,
		BloodType: bt,
		Urgency:   urgency,
		CreatedAt: refNow,
	}
	require.NoError(t, f.store.Recipients().Create(f.ctx, r))
	return r
}

func (f *fixture) hospital(t *testing.T, name string) *entities.Hospital {
	t.Helper()
	h := &entities.Hospital{Name: name, Location: "Lagos", BloodTypes: entities.AllBloodTypes}
	require.NoError(t, f.store.Hospitals().Create(f.ctx, h))
	return h
}

func (f *fixture) notifications(t *testing.T, userID string) []*entities.Notification {
	t.Helper()
	list, err := f.store.Notifications().ListByUser(f.ctx, userID, false)
	require.NoError(t, err)
	return list
}

func monthsAgo(months int) *time.Time {
	t := refNow.AddDate(0, -months, 0)
	return &t
}
