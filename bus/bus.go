// Package bus implements the in-process publish/subscribe event bus used to
// decouple producers (orchestrator, agents, the self-improvement loop) from
// consumers (loggers, monitors, the planner).
package bus

import (
	"sync"

	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
)

// Handler consumes a published event. A returned error is logged and does not
// prevent delivery to remaining subscribers.
type Handler func(ev core.Event) error

// Subscription identifies a registered handler and can be used to stop
// receiving events.
type Subscription struct {
	id    string
	topic string
	bus   *Bus
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() string { return s.topic }

// Unsubscribe removes the handler from the bus. It is idempotent.
func (s *Subscription) Unsubscribe() { s.bus.unsubscribe(s) }

type subscriber struct {
	id      string
	handler Handler
}

// Bus is a synchronous fan-out event bus. Delivery happens on the publisher's
// goroutine, in subscriber registration order, which also yields FIFO ordering
// with respect to a single publisher's successive publishes. Events are not
// retained; subscribers only see events published after they subscribe.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]*subscriber
	logger logging.Logger
}

// Options configures a Bus.
type Options struct {
	// Logger receives subscriber failure reports. Defaults to NoOpLogger.
	Logger logging.Logger
}

// New creates an event bus with optional overrides.
func New(optFns ...func(o *Options)) *Bus {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Bus{subs: make(map[string][]*subscriber), logger: opts.Logger}
}

// Subscribe registers a handler for every subsequent publish on topic until
// Unsubscribe is called on the returned subscription.
func (b *Bus) Subscribe(topic string, handler Handler) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{id: core.NewID(), handler: handler}
	b.subs[topic] = append(b.subs[topic], sub)

	return &Subscription{id: sub.id, topic: topic, bus: b}
}

// Publish delivers an event with the given topic and payload to all current
// subscribers of that topic in registration order. A subscriber error or
// panic is caught and logged; remaining subscribers still receive the event.
func (b *Bus) Publish(topic string, payload map[string]any) {
	b.PublishEvent(core.NewEvent(topic, payload))
}

// PublishEvent delivers a pre-built event to subscribers of its topic.
func (b *Bus) PublishEvent(ev core.Event) {
	b.mu.RLock()
	subs := make([]*subscriber, len(b.subs[ev.Topic]))
	copy(subs, b.subs[ev.Topic])
	b.mu.RUnlock()

	for _, sub := range subs {
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *subscriber, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus subscriber panicked topic=%s event_id=%s: %v", ev.Topic, ev.ID, r)
		}
	}()

	if err := sub.handler(ev); err != nil {
		b.logger.Warn("bus subscriber failed topic=%s event_id=%s: %v", ev.Topic, ev.ID, err)
	}
}

func (b *Bus) unsubscribe(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[s.topic]
	for i, sub := range subs {
		if sub.id == s.id {
			b.subs[s.topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// SubscriberCount returns the number of active subscribers on a topic.
// Primarily useful for introspection and tests.
func (b *Bus) SubscriberCount(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}
