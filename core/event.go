package core

import (
	"time"

	"github.com/google/uuid"
)

// Topics published by the framework. Consumers subscribe by exact topic name.
const (
	TopicTaskQueued    = "task.queued"
	TopicTaskStarted   = "task.started"
	TopicTaskSucceeded = "task.succeeded"
	TopicTaskFailed    = "task.failed"
	TopicTaskTimedOut  = "task.timed_out"
	TopicTaskCancelled = "task.cancelled"

	TopicIssueDetected = "improvement.issue"
	TopicPlanCreated   = "improvement.plan"
)

// Event is a transient topic-scoped notification. The bus itself does not
// persist events; consumers decide persistence. After publication an event
// should be treated as immutable.
type Event struct {
	ID        string         `json:"id"`
	Topic     string         `json:"topic"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent creates an event with a fresh ID and UTC timestamp.
func NewEvent(topic string, payload map[string]any) Event {
	return Event{
		ID:        NewID(),
		Topic:     topic,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// NewTaskEvent builds the canonical lifecycle event for a task status
// transition. The payload carries the task id and status; err, when non-nil,
// is summarized under "error".
func NewTaskEvent(topic string, t *Task, err error) Event {
	payload := map[string]any{
		"task_id": t.ID,
		"status":  t.Status.String(),
	}
	if t.SkillName != "" {
		payload["skill"] = t.SkillName
	}
	if t.ModelPreference != "" {
		payload["model"] = t.ModelPreference
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	return NewEvent(topic, payload)
}

// NewID generates a new unique identifier for tasks and events.
func NewID() string { return uuid.NewString() }
