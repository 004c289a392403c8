// Package services implements the blood donation use cases: profile
// management, the referral lifecycle, matching and the background jobs that
// keep derived state current.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	"github.com/zatekoja/bloodlink/internal/domain/repositories"
	"github.com/zatekoja/bloodlink/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/bloodlink/pkg/errors"
)

// Option customises a service
type Option func(*base)

// WithClock overrides the clock used for timestamps and availability checks
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// WithEventBus publishes committed changes to bus
func WithEventBus(bus providers.EventBus) Option {
	return func(b *base) {
		b.events = bus
	}
}

// WithMetrics records domain counters on m
func WithMetrics(m *observability.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// base carries the dependencies every service shares
type base struct {
	now     func() time.Time
	events  providers.EventBus
	metrics *observability.Metrics
}

func newBase(opts []Option) base {
	b := base{now: time.Now}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// publish sends events after a commit. Delivery is best effort: the change
// is already durable, so failures are logged and dropped.
func (b base) publish(ctx context.Context, channel string, events ...*entities.ReferralEvent) {
	if b.events == nil {
		return
	}
	for _, event := range events {
		if err := b.events.Publish(ctx, channel, event); err != nil {
			log.Warn().Err(err).
				Str("channel", channel).
				Str("event_type", string(event.EventType)).
				Msg("failed to publish event")
		}
	}
}

// notify appends a notification for userID inside the caller's transaction
func (b base) notify(ctx context.Context, tx repositories.Store, userID string, kind entities.NotificationType, message string, metadata map[string]string) error {
	n := &entities.Notification{
		UserID:    userID,
		Message:   message,
		Type:      kind,
		Metadata:  metadata,
		CreatedAt: b.now(),
	}
	if err := tx.Notifications().Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// parseDate reads a calendar day in YYYY-MM-DD form as a UTC slot date
func parseDate(value string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value))
	}
	return entities.SlotDate(t), nil
}
