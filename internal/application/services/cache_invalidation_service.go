package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
	"github.com/zatekoja/bloodlink/internal/domain/providers"
)

// MatchInvalidator drops cached match lists
type MatchInvalidator interface {
	InvalidateMatches(ctx context.Context) error
}

// CacheInvalidationService clears cached match lists whenever a referral,
// donor or recipient change is published
type CacheInvalidationService struct {
	matches  MatchInvalidator
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(matches MatchInvalidator, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		matches:  matches,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start subscribes to the change channels and begins invalidating
func (s *CacheInvalidationService) Start() error {
	channels := []string{
		providers.EventChannelReferrals,
		providers.EventChannelDonors,
		providers.EventChannelRecipients,
	}
	for _, channel := range channels {
		events, err := s.eventBus.Subscribe(s.ctx, channel)
		if err != nil {
			s.cancel()
			return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
		}
		s.wg.Add(1)
		go s.processEvents(events)
	}

	log.Info().Strs("channels", channels).Msg("cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service and waits for its workers
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	s.wg.Wait()
	log.Info().Msg("cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(events <-chan *entities.ReferralEvent) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.ReferralEvent) {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	if err := s.matches.InvalidateMatches(ctx); err != nil {
		log.Warn().Err(err).
			Str("event_id", event.ID).
			Str("event_type", string(event.EventType)).
			Msg("failed to invalidate match cache")
		return
	}
	log.Debug().
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Msg("invalidated match cache")
}
