package event

import (
	"sync"

	"github.com/caresync/portal-api/internal/model"
)

// Bus is the process-wide presence broadcast channel. Publish fans an
// event out to every currently connected subscriber; there is no
// persistence, no replay and no acknowledgement. Subscribers that connect
// after a publish never see it and are expected to fetch current state
// from the presence tracker instead.
type Bus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan model.PresenceStatus
	nextID uint64
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriber channels hold up to buffer
// undelivered events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 16
	}
	return &Bus{
		subs:   make(map[uint64]chan model.PresenceStatus),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its event channel and
// a cancel function. The channel is closed on cancel or bus close.
func (b *Bus) Subscribe() (<-chan model.PresenceStatus, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan model.PresenceStatus)
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	ch := make(chan model.PresenceStatus, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers status to all current subscribers. It never blocks:
// a subscriber whose buffer is full misses the event.
func (b *Bus) Publish(status model.PresenceStatus) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- status:
		default:
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close terminates all subscriber channels. Further Subscribe calls
// return closed channels and Publish becomes a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
