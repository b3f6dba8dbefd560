package testutil

import (
	"sync"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
)

// EventRecorder captures bus events for later assertions. Safe for
// concurrent delivery.
type EventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

// NewEventRecorder creates a recorder subscribed to the given topics.
func NewEventRecorder(b *bus.Bus, topics ...string) *EventRecorder {
	r := &EventRecorder{}
	for _, topic := range topics {
		b.Subscribe(topic, func(ev core.Event) error {
			r.mu.Lock()
			r.events = append(r.events, ev)
			r.mu.Unlock()
			return nil
		})
	}
	return r
}

// Events returns a copy of everything captured so far, in delivery order.
func (r *EventRecorder) Events() []core.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Topics returns the captured topic names in delivery order.
func (r *EventRecorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Topic
	}
	return out
}

// Len returns the number of captured events.
func (r *EventRecorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}
