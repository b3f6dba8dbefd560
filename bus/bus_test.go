package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/supermean/supermean/core"
)

func TestPublishDeliversInRegistrationOrder(t *testing.T) {
	b := New()

	var order []string
	b.Subscribe("task.started", func(core.Event) error {
		order = append(order, "first")
		return nil
	})
	b.Subscribe("task.started", func(core.Event) error {
		order = append(order, "second")
		return nil
	})

	b.Publish("task.started", map[string]any{"task_id": "t1"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishTopicIsolation(t *testing.T) {
	b := New()

	var got []core.Event
	b.Subscribe("task.failed", func(ev core.Event) error {
		got = append(got, ev)
		return nil
	})

	b.Publish("task.succeeded", nil)
	assert.Empty(t, got)

	b.Publish("task.failed", map[string]any{"task_id": "t2"})
	assert.Len(t, got, 1)
	assert.Equal(t, "task.failed", got[0].Topic)
	assert.Equal(t, "t2", got[0].Payload["task_id"])
}

func TestSubscriberErrorDoesNotStopDelivery(t *testing.T) {
	b := New()

	var delivered int
	b.Subscribe("t", func(core.Event) error { return errors.New("boom") })
	b.Subscribe("t", func(core.Event) error { panic("worse") })
	b.Subscribe("t", func(core.Event) error {
		delivered++
		return nil
	})

	b.Publish("t", nil)

	assert.Equal(t, 1, delivered)
}

func TestUnsubscribe(t *testing.T) {
	b := New()

	var calls int
	sub := b.Subscribe("t", func(core.Event) error {
		calls++
		return nil
	})

	b.Publish("t", nil)
	sub.Unsubscribe()
	sub.Unsubscribe() // idempotent
	b.Publish("t", nil)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, b.SubscriberCount("t"))
}

func TestNoReplayForLateSubscribers(t *testing.T) {
	b := New()

	b.Publish("t", map[string]any{"n": 1})

	var got int
	b.Subscribe("t", func(core.Event) error {
		got++
		return nil
	})

	assert.Equal(t, 0, got)
}
