package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
	redisclient "github.com/zatekoja/bloodlink/internal/infrastructure/clients/redis"
)

// RedisEventBus carries events over Redis Pub/Sub so every API replica sees
// referral, donor and recipient changes. Each channel holds one Redis
// subscription while it has local subscribers.
type RedisEventBus struct {
	client *redisclient.Client
	subs   *fanout

	mu     sync.Mutex
	pubsub map[string]*redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc
}

// NewRedisEventBus creates a new Redis-based event bus
func NewRedisEventBus(client *redisclient.Client) providers.EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisEventBus{
		client: client,
		subs:   newFanout(),
		pubsub: make(map[string]*redis.PubSub),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Publish sends event to every replica subscribed to channel
func (b *RedisEventBus) Publish(ctx context.Context, channel string, event *entities.ReferralEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	log.Debug().
		Str("channel", channel).
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Msg("published event")
	return nil
}

// Subscribe returns a channel of events published on channel. It is closed
// when ctx is cancelled or the bus is closed.
func (b *RedisEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReferralEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, first, ok := b.subs.add(channel)
	if !ok {
		return closedEventChan(), nil
	}

	if first {
		ps := b.client.Client().Subscribe(b.ctx, channel)
		// Wait for the confirmation so events published right after
		// Subscribe returns are not lost.
		if _, err := ps.Receive(ctx); err != nil {
			_ = ps.Close()
			b.subs.remove(channel, ch)
			return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		b.pubsub[channel] = ps
		go b.relay(channel, ps)
		log.Info().Str("channel", channel).Msg("subscribed to redis channel")
	}

	go func() {
		select {
		case <-ctx.Done():
			b.unsubscribe(channel, ch)
		case <-b.subs.done:
		}
	}()
	return ch, nil
}

// relay decodes messages from one Redis subscription into the fanout
func (b *RedisEventBus) relay(channel string, ps *redis.PubSub) {
	for msg := range ps.Channel() {
		var event entities.ReferralEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to unmarshal event")
			continue
		}
		b.subs.deliver(channel, &event)
	}
}

func (b *RedisEventBus) unsubscribe(channel string, ch chan *entities.ReferralEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.subs.remove(channel, ch) {
		return
	}
	if ps, ok := b.pubsub[channel]; ok {
		delete(b.pubsub, channel)
		if err := ps.Close(); err != nil {
			log.Warn().Err(err).Str("channel", channel).Msg("failed to close redis subscription")
		}
	}
}

// Close ends every Redis subscription and closes all subscriber channels
func (b *RedisEventBus) Close() error {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for channel, ps := range b.pubsub {
		if err := ps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close subscription %s: %w", channel, err))
		}
		delete(b.pubsub, channel)
	}
	b.subs.close()
	return errors.Join(errs...)
}
