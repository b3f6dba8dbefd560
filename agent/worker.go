// Package agent provides the worker agent implementation dispatched by the
// orchestrator. A worker executes one task at a time, resolving the task's
// requested capability against the skill registry or the model router.
package agent

import (
	"context"
	"fmt"

	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
	"github.com/supermean/supermean/router"
	"github.com/supermean/supermean/skill"
)

// Options configures a Worker.
type Options struct {
	// Capability restricts which tasks the orchestrator may assign. The
	// zero value accepts any task.
	Capability core.Capability
	// Memory, when set, receives the result of each successful task under
	// "results/<task-id>". Recording results is an agent-level decision,
	// not orchestrator policy.
	Memory core.SharedMemory
	// Logger receives execution reports.
	Logger logging.Logger
}

// Worker is the default core.Agent implementation. It holds no per-task
// state, so a fresh Execute call may safely overlap with an earlier one
// that the orchestrator abandoned at its deadline and is still draining.
type Worker struct {
	name       string
	capability core.Capability
	router     *router.Router
	skills     *skill.Registry
	memory     core.SharedMemory
	logger     logging.Logger
}

// NewWorker constructs a worker using the given router and skill registry.
func NewWorker(name string, r *router.Router, skills *skill.Registry, optFns ...func(o *Options)) *Worker {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Worker{
		name:       name,
		capability: opts.Capability,
		router:     r,
		skills:     skills,
		memory:     opts.Memory,
		logger:     opts.Logger,
	}
}

// Name returns the worker's identifier.
func (w *Worker) Name() string { return w.name }

// Capability returns the worker's declared capability descriptor.
func (w *Worker) Capability() core.Capability { return w.capability }

// Execute runs a task to completion. A task naming a skill is routed through
// the registry; otherwise the payload's prompt is generated through the model
// router honoring the task's model preference. The context is checked at the
// suspension points around the downstream call so cancellation and timeouts
// are observed cooperatively.
func (w *Worker) Execute(ctx context.Context, task *core.Task) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result any
	var err error

	if task.SkillName != "" {
		result, err = w.skills.Invoke(ctx, task.SkillName, task.Payload)
	} else {
		result, err = w.generate(ctx, task)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if w.memory != nil {
		if merr := w.memory.Put("results/"+task.ID, result); merr != nil {
			w.logger.Warn("worker %s failed to record result task_id=%s: %v", w.name, task.ID, merr)
		}
	}

	return result, nil
}

func (w *Worker) generate(ctx context.Context, task *core.Task) (any, error) {
	prompt, ok := task.Payload["prompt"].(string)
	if !ok || prompt == "" {
		return nil, fmt.Errorf("task %s: payload has no prompt and no skill was requested", task.ID)
	}

	instructions, _ := task.Payload["instructions"].(string)
	stream, _ := task.Payload["stream"].(bool)

	return w.router.Generate(ctx, prompt, router.GenerateOptions{
		Preference:   task.ModelPreference,
		Instructions: instructions,
		Stream:       stream,
	})
}
