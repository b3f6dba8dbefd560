package testutil

import (
	"time"

	"github.com/supermean/supermean/core"
)

// TaskBuilder constructs tasks for tests.
// Example:
//
//	task := NewTaskBuilder().Skill("summarize").Payload("text", "...").Build()
type TaskBuilder struct {
	id         string
	payload    map[string]any
	skillName  string
	preference string
	timeout    time.Duration
	status     *core.TaskStatus
}

// NewTaskBuilder creates a builder producing a freshly queued task.
func NewTaskBuilder() *TaskBuilder { return &TaskBuilder{} }

// ID overrides the auto-generated task ID. Use where determinism matters.
func (b *TaskBuilder) ID(id string) *TaskBuilder { b.id = id; return b }

// Payload sets one payload key (chainable).
func (b *TaskBuilder) Payload(key string, value any) *TaskBuilder {
	if b.payload == nil {
		b.payload = make(map[string]any)
	}
	b.payload[key] = value
	return b
}

// Prompt is shorthand for Payload("prompt", text).
func (b *TaskBuilder) Prompt(text string) *TaskBuilder { return b.Payload("prompt", text) }

// Skill sets the requested skill name.
func (b *TaskBuilder) Skill(name string) *TaskBuilder { b.skillName = name; return b }

// Model sets the model preference.
func (b *TaskBuilder) Model(name string) *TaskBuilder { b.preference = name; return b }

// Timeout sets the per-task deadline.
func (b *TaskBuilder) Timeout(d time.Duration) *TaskBuilder { b.timeout = d; return b }

// Status forces the task into a status, bypassing the state machine. Only for
// asserting behavior against pre-positioned tasks.
func (b *TaskBuilder) Status(s core.TaskStatus) *TaskBuilder { b.status = &s; return b }

// Build assembles the task.
func (b *TaskBuilder) Build() *core.Task {
	task := core.NewTask(b.payload)
	if b.id != "" {
		task.ID = b.id
	}
	task.SkillName = b.skillName
	task.ModelPreference = b.preference
	task.Timeout = b.timeout
	if b.status != nil {
		task.Status = *b.status
	}
	return task
}
