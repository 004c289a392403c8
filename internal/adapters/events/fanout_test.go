package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/bloodlink/internal/domain/entities"
)

func TestFanout(t *testing.T) {
	f := newFanout()

	a, first, ok := f.add("donors:updates")
	require.True(t, ok)
	assert.True(t, first)
	b, first, ok := f.add("donors:updates")
	require.True(t, ok)
	assert.False(t, first)

	event := &entities.ReferralEvent{ID: "evt-1", DonorID: "d1"}
	assert.Equal(t, 2, f.deliver("donors:updates", event))
	assert.Equal(t, 0, f.deliver("referrals:updates", event))
	assert.Same(t, event, <-a)
	assert.Same(t, event, <-b)

	assert.False(t, f.remove("donors:updates", a))
	assert.False(t, f.remove("donors:updates", a), "second remove is a no-op")
	assert.True(t, f.remove("donors:updates", b))
	_, open := <-a
	assert.False(t, open)
}

func TestFanout_FullSubscriberMissesEvents(t *testing.T) {
	f := newFanout()
	ch, _, _ := f.add("referrals:updates")

	for i := 0; i < subscriberBuffer; i++ {
		require.Equal(t, 1, f.deliver("referrals:updates", &entities.ReferralEvent{}))
	}
	assert.Equal(t, 0, f.deliver("referrals:updates", &entities.ReferralEvent{}))
	assert.Len(t, ch, subscriberBuffer)
}

func TestFanout_Close(t *testing.T) {
	f := newFanout()
	ch, _, _ := f.add("recipients:updates")

	f.close()
	f.close()

	_, open := <-ch
	assert.False(t, open)
	_, _, ok := f.add("recipients:updates")
	assert.False(t, ok)
	select {
	case <-f.done:
	default:
		t.Fatal("done not closed")
	}
}
