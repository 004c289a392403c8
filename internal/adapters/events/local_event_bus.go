package events

import (
	"context"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
)

// LocalEventBus delivers events to subscribers in the same process. It is
// used when Redis is disabled.
type LocalEventBus struct {
	subs *fanout
}

// NewLocalEventBus creates an in-process event bus
func NewLocalEventBus() providers.EventBus {
	return &LocalEventBus{subs: newFanout()}
}

// Publish delivers event to every current subscriber of channel
func (b *LocalEventBus) Publish(_ context.Context, channel string, event *entities.ReferralEvent) error {
	b.subs.deliver(channel, event)
	return nil
}

// Subscribe registers a subscriber until ctx is cancelled. After Close it
// returns an already closed channel.
func (b *LocalEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReferralEvent, error) {
	ch, _, ok := b.subs.add(channel)
	if !ok {
		return closedEventChan(), nil
	}

	go func() {
		select {
		case <-ctx.Done():
			b.subs.remove(channel, ch)
		case <-b.subs.done:
		}
	}()
	return ch, nil
}

// Close closes every subscriber channel
func (b *LocalEventBus) Close() error {
	b.subs.close()
	return nil
}
