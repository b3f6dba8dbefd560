package core

import (
	"fmt"
	"time"
)

// TaskStatus represents the lifecycle state of a submitted task.
type TaskStatus int

const (
	// TaskQueued means the task has been accepted but not yet dispatched.
	TaskQueued TaskStatus = iota
	// TaskRunning means the task is executing on an agent.
	TaskRunning
	// TaskSucceeded means the task completed and produced a result.
	TaskSucceeded
	// TaskFailed means the task terminated with an error.
	TaskFailed
	// TaskTimedOut means the task exceeded its deadline.
	TaskTimedOut
	// TaskCancelled means the task was cancelled before completion.
	TaskCancelled
)

// String returns the wire representation of the status, matching the
// task.* event topic suffixes.
func (s TaskStatus) String() string {
	switch s {
	case TaskQueued:
		return "queued"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskTimedOut:
		return "timed_out"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a final state.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskSucceeded, TaskFailed, TaskTimedOut, TaskCancelled:
		return true
	}
	return false
}

// Task is a unit of work submitted to the orchestrator. The orchestrator owns
// the task for its lifetime; callers observe it only through Status lookups
// and published events.
//
// A task may request a capability either by skill name or by model
// preference. If neither is set any idle agent qualifies for dispatch.
type Task struct {
	ID              string         `json:"id"`
	Payload         map[string]any `json:"payload,omitempty"`
	SkillName       string         `json:"skill_name,omitempty"`
	ModelPreference string         `json:"model_preference,omitempty"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	Timeout         time.Duration  `json:"timeout,omitempty"`
	Status          TaskStatus     `json:"status"`
}

// NewTask creates a queued task with a fresh ID and UTC submission timestamp.
// A zero timeout means the orchestrator's default timeout applies.
func NewTask(payload map[string]any) *Task {
	return &Task{
		ID:          NewID(),
		Payload:     payload,
		SubmittedAt: time.Now().UTC(),
		Status:      TaskQueued,
	}
}

// Transition moves the task to the next status, enforcing the forward-only
// state machine: queued -> running -> succeeded|failed|timed_out|cancelled,
// plus queued -> cancelled for tasks removed before dispatch. Any other move
// (including leaving a terminal state) returns an error and leaves the task
// unchanged.
func (t *Task) Transition(next TaskStatus) error {
	if t.Status.Terminal() {
		return fmt.Errorf("task %s: invalid transition %s -> %s: task is terminal", t.ID, t.Status, next)
	}

	switch {
	case t.Status == TaskQueued && next == TaskRunning:
	case t.Status == TaskQueued && next == TaskCancelled:
	case t.Status == TaskRunning && next.Terminal():
	default:
		return fmt.Errorf("task %s: invalid transition %s -> %s", t.ID, t.Status, next)
	}

	t.Status = next

	return nil
}
