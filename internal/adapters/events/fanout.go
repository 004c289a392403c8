package events

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

const subscriberBuffer = 100

// fanout tracks the in-process subscribers of each channel. Delivery never
// blocks: a subscriber whose buffer is full misses the event.
type fanout struct {
	mu     sync.RWMutex
	subs   map[string]map[chan *entities.ReferralEvent]struct{}
	closed bool
	done   chan struct{}
}

func newFanout() *fanout {
	return &fanout{
		subs: make(map[string]map[chan *entities.ReferralEvent]struct{}),
		done: make(chan struct{}),
	}
}

// add registers a subscriber on channel. first reports whether no one was
// subscribed before; ok is false once the fanout is closed.
func (f *fanout) add(channel string) (ch chan *entities.ReferralEvent, first, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, false, false
	}
	if f.subs[channel] == nil {
		f.subs[channel] = make(map[chan *entities.ReferralEvent]struct{})
	}
	ch = make(chan *entities.ReferralEvent, subscriberBuffer)
	f.subs[channel][ch] = struct{}{}
	return ch, len(f.subs[channel]) == 1, true
}

// remove closes and unregisters ch. last reports whether channel has no
// subscribers left.
func (f *fanout) remove(channel string, ch chan *entities.ReferralEvent) (last bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subs, ok := f.subs[channel]
	if !ok {
		return false
	}
	if _, ok := subs[ch]; !ok {
		return false
	}
	delete(subs, ch)
	close(ch)
	if len(subs) == 0 {
		delete(f.subs, channel)
		return true
	}
	return false
}

// deliver hands event to every subscriber of channel and returns how many
// received it
func (f *fanout) deliver(channel string, event *entities.ReferralEvent) int {
	f.mu.RLock()
	defer f.mu.RUnlock()

	delivered := 0
	for sub := range f.subs[channel] {
		select {
		case sub <- event:
			delivered++
		default:
			log.Warn().Str("channel", channel).Str("event_id", event.ID).Msg("subscriber channel full, skipping event")
		}
	}
	return delivered
}

// close closes every subscriber and rejects later adds
func (f *fanout) close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	for channel, subs := range f.subs {
		for sub := range subs {
			close(sub)
		}
		delete(f.subs, channel)
	}
	f.closed = true
	close(f.done)
}

func closedEventChan() <-chan *entities.ReferralEvent {
	ch := make(chan *entities.ReferralEvent)
	close(ch)
	return ch
}
