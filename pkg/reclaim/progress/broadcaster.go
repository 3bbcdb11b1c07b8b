package progress

import (
	"sync"

	"github.com/google/uuid"

	"github.com/reclaimtool/reclaim/pkg/reclaim/types"
)

// Event is one progress notification delivered to subscribers. Events are
// emitted on a fixed cadence, plus immediately on cancellation and on
// completion.
type Event struct {
	Snapshot

	// Mode is the scheduler state at emission time.
	Mode string `json:"mode"`

	// Workers is the active worker count at emission time.
	Workers int `json:"workers"`

	// Final marks the last event of the session.
	Final bool `json:"final,omitempty"`

	// Reason is set on the final event.
	Reason types.Reason `json:"reason,omitempty"`
}

// Subscriber receives progress events on its channel until it
// unsubscribes or the broadcaster closes.
type Subscriber struct {
	ID     string
	Events chan Event
}

// subscriberBuffer bounds each subscriber channel. Intermediate events are
// dropped rather than blocking the pipeline when a consumer lags.
const subscriberBuffer = 100

// Broadcaster fans progress events out to subscribers.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string]*Subscriber),
	}
}

// Subscribe registers a new subscriber. Returns nil after Close.
func (b *Broadcaster) Subscribe() *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	sub := &Subscriber{
		ID:     uuid.New().String(),
		Events: make(chan Event, subscriberBuffer),
	}
	b.subscribers[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub, ok := b.subscribers[id]; ok {
		close(sub.Events)
		delete(b.subscribers, id)
	}
}

// Notify delivers an event to every subscriber. Intermediate events are
// dropped for subscribers with full channels; a final event evicts the
// oldest pending event instead, so the terminal snapshot survives a
// lagging consumer.
func (b *Broadcaster) Notify(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subscribers {
		select {
		case sub.Events <- event:
			continue
		default:
		}

		if !event.Final {
			// Channel full, event dropped.
			continue
		}

		select {
		case <-sub.Events:
		default:
		}
		select {
		case sub.Events <- event:
		default:
		}
	}
}

// Close closes the broadcaster and all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for _, sub := range b.subscribers {
		close(sub.Events)
	}
	b.subscribers = make(map[string]*Subscriber)
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
