package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caresync/portal-api/internal/model"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ch1, cancel1 := bus.Subscribe()
	ch2, cancel2 := bus.Subscribe()
	defer cancel1()
	defer cancel2()

	userID := uuid.New()
	bus.Publish(model.PresenceStatus{UserID: userID, IsActive: true})

	got1 := <-ch1
	got2 := <-ch2
	assert.Equal(t, userID, got1.UserID)
	assert.True(t, got1.IsActive)
	assert.Equal(t, got1, got2)
}

func TestLateSubscriberMissesEarlierPublishes(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	bus.Publish(model.PresenceStatus{UserID: uuid.New(), IsActive: true})

	ch, cancel := bus.Subscribe()
	defer cancel()

	select {
	case ev, ok := <-ch:
		require.False(t, ok, "unexpected event after subscribe: %+v", ev)
	default:
	}
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()

	_, cancel := bus.Subscribe()
	defer cancel()

	// Buffer holds one event; subsequent publishes must drop, not block.
	for i := 0; i < 10; i++ {
		bus.Publish(model.PresenceStatus{UserID: uuid.New()})
	}
}

func TestCancelRemovesSubscriber(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	ch, cancel := bus.Subscribe()
	assert.Equal(t, 1, bus.SubscriberCount())

	cancel()
	assert.Equal(t, 0, bus.SubscriberCount())

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after cancel")

	// Cancel is idempotent.
	cancel()
}

func TestCloseTerminatesSubscribers(t *testing.T) {
	bus := NewBus(4)

	ch, _ := bus.Subscribe()
	bus.Close()

	_, ok := <-ch
	assert.False(t, ok)

	// Subscribing after close yields a closed channel.
	late, _ := bus.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
}
