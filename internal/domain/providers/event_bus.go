package providers

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

// EventBus defines the interface for publishing and subscribing to events
type EventBus interface {
	// Publish publishes an event to all subscribers
	Publish(ctx context.Context, channel string, event *entities.ReferralEvent) error

	// Subscribe subscribes to events on a channel until ctx is cancelled
	Subscribe(ctx context.Context, channel string) (<-chan *entities.ReferralEvent, error)

	// Close closes the event bus and all subscriptions
	Close() error
}

// EventChannel constants for different event types
const (
	// EventChannelReferrals carries referral creation and status changes
	EventChannelReferrals = "referrals:updates"

	// EventChannelDonors carries donor profile and availability changes
	EventChannelDonors = "donors:updates"

	// EventChannelRecipients carries recipient profile changes
	EventChannelRecipients = "recipients:updates"
)
