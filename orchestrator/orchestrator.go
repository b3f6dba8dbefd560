package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
)

// ErrShutdown is returned by Submit after Shutdown has been called.
var ErrShutdown = errors.New("orchestrator is shut down")

// Options configures an Orchestrator.
type Options struct {
	// MaxConcurrentAgents is the hard ceiling on simultaneously running
	// tasks. Defaults to 10.
	MaxConcurrentAgents int
	// DefaultTimeout bounds a task that carries no timeout of its own.
	// Defaults to 5 minutes.
	DefaultTimeout time.Duration
	// RetentionWindow is how long terminal tasks remain visible through
	// Status before being archived. Defaults to 1 hour.
	RetentionWindow time.Duration
	// Logger receives dispatch and lifecycle reports.
	Logger logging.Logger
}

// SubmitOptions configures a single Submit call.
type SubmitOptions struct {
	// NonBlocking makes Submit fail with core.ErrCapacityExceeded when the
	// concurrency budget is exhausted instead of queueing the task.
	NonBlocking bool
}

// WithNonBlocking enables non-blocking admission for one Submit call.
func WithNonBlocking() func(o *SubmitOptions) {
	return func(o *SubmitOptions) { o.NonBlocking = true }
}

type agentSlot struct {
	agent core.Agent
	busy  bool
}

type record struct {
	task   *core.Task
	cancel context.CancelFunc
	result any
	err    error
	doneAt time.Time
}

// start captures a dispatch decision made under the mutex so the actual
// goroutine launch and event publication can happen outside it.
type start struct {
	rec    *record
	slot   *agentSlot
	ctx    context.Context
	cancel context.CancelFunc
}

// Orchestrator owns a pool of agents and dispatches submitted tasks to them
// under a global concurrency budget. All admission state (running count,
// queue, agent idleness, task records) is guarded by one mutex so concurrent
// submissions and completions observe a consistent count.
//
// The orchestrator itself never blocks inside the mutex; agent execution runs
// in per-task goroutines bounded by a deadline.
type Orchestrator struct {
	mu      sync.Mutex
	slots   []*agentSlot
	queue   []*record
	tasks   map[string]*record
	running int
	closed  bool

	max       int
	timeout   time.Duration
	retention time.Duration
	bus       *bus.Bus
	logger    logging.Logger
	now       func() time.Time

	wg sync.WaitGroup
}

// New creates an orchestrator over the given agent pool. Events are published
// to b for every task status transition. At least one agent is required.
func New(agents []core.Agent, b *bus.Bus, optFns ...func(o *Options)) (*Orchestrator, error) {
	opts := Options{
		MaxConcurrentAgents: 10,
		DefaultTimeout:      5 * time.Minute,
		RetentionWindow:     time.Hour,
		Logger:              logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(agents) == 0 {
		return nil, core.NewConfigurationError("agents", "at least one agent is required")
	}
	if opts.MaxConcurrentAgents <= 0 {
		return nil, core.NewConfigurationError("max_concurrent_agents", "must be positive")
	}
	if opts.DefaultTimeout <= 0 {
		return nil, core.NewConfigurationError("default_timeout", "must be positive")
	}
	if b == nil {
		b = bus.New()
	}

	slots := make([]*agentSlot, 0, len(agents))
	for _, a := range agents {
		slots = append(slots, &agentSlot{agent: a})
	}

	return &Orchestrator{
		slots:     slots,
		tasks:     make(map[string]*record),
		max:       opts.MaxConcurrentAgents,
		timeout:   opts.DefaultTimeout,
		retention: opts.RetentionWindow,
		bus:       b,
		logger:    opts.Logger,
		now:       time.Now,
	}, nil
}

// Submit accepts a task for execution and returns its id. In the default mode
// the task is queued when the concurrency budget is exhausted; with
// WithNonBlocking it fails with core.ErrCapacityExceeded instead. The task
// must be freshly created (queued status) and becomes orchestrator-owned.
func (o *Orchestrator) Submit(task *core.Task, optFns ...func(o *SubmitOptions)) (string, error) {
	var opts SubmitOptions
	for _, fn := range optFns {
		fn(&opts)
	}

	if task == nil {
		return "", fmt.Errorf("submit: task must not be nil")
	}
	if task.Status != core.TaskQueued {
		return "", fmt.Errorf("submit: task %s is already %s", task.ID, task.Status)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return "", ErrShutdown
	}
	o.pruneLocked()
	if opts.NonBlocking && o.running >= o.max {
		o.mu.Unlock()
		return "", fmt.Errorf("submit: %w (%d running)", core.ErrCapacityExceeded, o.max)
	}

	rec := &record{task: task}
	o.tasks[task.ID] = rec
	o.queue = append(o.queue, rec)
	queuedEv := core.NewTaskEvent(core.TopicTaskQueued, task, nil)
	starts := o.dispatchLocked()
	o.mu.Unlock()

	o.bus.PublishEvent(queuedEv)
	o.launch(starts)

	return task.ID, nil
}

// Status returns the current status of a task. Terminal tasks remain visible
// for the retention window; afterwards, and for ids never submitted, it
// returns core.ErrUnknownTask.
func (o *Orchestrator) Status(id string) (core.TaskStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pruneLocked()
	rec, ok := o.tasks[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrUnknownTask, id)
	}
	return rec.task.Status, nil
}

// Result returns the result and error recorded for a terminal task. For
// non-terminal tasks both are nil.
func (o *Orchestrator) Result(id string) (any, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pruneLocked()
	rec, ok := o.tasks[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownTask, id)
	}
	return rec.result, rec.err
}

// Cancel requests cancellation of a task. A queued task is removed and marked
// cancelled immediately; a running task has its context cancelled and the
// executing agent observes it at its next suspension point. Cancelling a task
// that is already terminal is a no-op.
func (o *Orchestrator) Cancel(id string) error {
	o.mu.Lock()
	rec, ok := o.tasks[id]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrUnknownTask, id)
	}

	switch rec.task.Status {
	case core.TaskQueued:
		o.removeFromQueueLocked(rec)
		if err := rec.task.Transition(core.TaskCancelled); err != nil {
			o.mu.Unlock()
			return err
		}
		rec.doneAt = o.now()
		task := rec.task
		o.mu.Unlock()
		o.bus.PublishEvent(core.NewTaskEvent(core.TopicTaskCancelled, task, nil))
		return nil
	case core.TaskRunning:
		cancel := rec.cancel
		o.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return nil
	default:
		o.mu.Unlock()
		return nil
	}
}

// Running returns the number of tasks currently executing.
func (o *Orchestrator) Running() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// QueueLength returns the number of tasks waiting for dispatch.
func (o *Orchestrator) QueueLength() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Shutdown stops accepting submissions, cancels all queued tasks, and waits
// for running tasks to drain or ctx to expire.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true

	cancelled := make([]*core.Task, 0, len(o.queue))
	for _, rec := range o.queue {
		if err := rec.task.Transition(core.TaskCancelled); err == nil {
			rec.doneAt = o.now()
			cancelled = append(cancelled, rec.task)
		}
	}
	o.queue = nil
	o.mu.Unlock()

	for _, task := range cancelled {
		o.bus.PublishEvent(core.NewTaskEvent(core.TopicTaskCancelled, task, nil))
	}

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatchLocked matches queued tasks against idle compatible agents while
// the concurrency budget allows, preserving FIFO order per capability: a task
// with no compatible idle agent is skipped over, not reordered. Caller holds
// o.mu; the returned starts must be passed to launch after unlocking.
func (o *Orchestrator) dispatchLocked() []start {
	var starts []start

	remaining := o.queue[:0]
	for i, rec := range o.queue {
		if o.running >= o.max {
			remaining = append(remaining, o.queue[i:]...)
			break
		}

		slot := o.idleCompatibleLocked(rec.task)
		if slot == nil {
			remaining = append(remaining, rec)
			continue
		}

		if err := rec.task.Transition(core.TaskRunning); err != nil {
			o.logger.Error("orchestrator dispatch skipped task_id=%s: %v", rec.task.ID, err)
			continue
		}

		timeout := rec.task.Timeout
		if timeout <= 0 {
			timeout = o.timeout
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)

		slot.busy = true
		rec.cancel = cancel
		o.running++
		o.wg.Add(1)

		starts = append(starts, start{rec: rec, slot: slot, ctx: ctx, cancel: cancel})
	}
	o.queue = remaining

	return starts
}

func (o *Orchestrator) idleCompatibleLocked(task *core.Task) *agentSlot {
	for _, slot := range o.slots {
		if !slot.busy && slot.agent.Capability().Compatible(task) {
			return slot
		}
	}
	return nil
}

func (o *Orchestrator) removeFromQueueLocked(rec *record) {
	for i, r := range o.queue {
		if r == rec {
			o.queue = append(o.queue[:i], o.queue[i+1:]...)
			return
		}
	}
}

// launch publishes task.started for each dispatch and starts its supervisor.
func (o *Orchestrator) launch(starts []start) {
	for _, s := range starts {
		o.bus.PublishEvent(core.NewTaskEvent(core.TopicTaskStarted, s.rec.task, nil))
		o.logger.Debug("orchestrator dispatched task_id=%s agent=%s", s.rec.task.ID, s.slot.agent.Name())
		go o.supervise(s)
	}
}

// supervise waits for either the agent call or the task deadline. On deadline
// expiry the task is finalized and the agent released even if the underlying
// call has not returned yet; a late result against a terminal task is dropped.
func (o *Orchestrator) supervise(s start) {
	defer o.wg.Done()
	defer s.cancel()

	type outcome struct {
		result any
		err    error
	}
	ch := make(chan outcome, 1)
	go func() {
		result, err := s.slot.agent.Execute(s.ctx, s.rec.task)
		ch <- outcome{result: result, err: err}
	}()

	select {
	case out := <-ch:
		switch {
		case out.err == nil:
			o.finish(s, core.TaskSucceeded, out.result, nil)
		case errors.Is(out.err, context.DeadlineExceeded):
			o.finish(s, core.TaskTimedOut, nil, out.err)
		case errors.Is(out.err, context.Canceled):
			o.finish(s, core.TaskCancelled, nil, out.err)
		default:
			o.finish(s, core.TaskFailed, nil, out.err)
		}
	case <-s.ctx.Done():
		if errors.Is(s.ctx.Err(), context.DeadlineExceeded) {
			o.finish(s, core.TaskTimedOut, nil, s.ctx.Err())
		} else {
			o.finish(s, core.TaskCancelled, nil, s.ctx.Err())
		}
	}
}

// finish records the terminal outcome, frees the agent and the concurrency
// slot, publishes the transition, and immediately dispatches queued work.
func (o *Orchestrator) finish(s start, status core.TaskStatus, result any, err error) {
	o.mu.Lock()
	if s.rec.task.Status.Terminal() {
		o.mu.Unlock()
		return
	}
	if terr := s.rec.task.Transition(status); terr != nil {
		o.mu.Unlock()
		o.logger.Error("orchestrator finish task_id=%s: %v", s.rec.task.ID, terr)
		return
	}
	s.rec.result = result
	s.rec.err = err
	s.rec.doneAt = o.now()
	s.slot.busy = false
	o.running--
	starts := o.dispatchLocked()
	o.mu.Unlock()

	ev := core.NewTaskEvent(topicFor(status), s.rec.task, err)
	if status == core.TaskSucceeded && result != nil {
		ev.Payload["result"] = result
	}
	o.bus.PublishEvent(ev)
	o.logger.Info("orchestrator task finished task_id=%s status=%s", s.rec.task.ID, status)

	o.launch(starts)
}

// pruneLocked archives terminal records past the retention window. Caller
// holds o.mu.
func (o *Orchestrator) pruneLocked() {
	cutoff := o.now().Add(-o.retention)
	for id, rec := range o.tasks {
		if rec.task.Status.Terminal() && !rec.doneAt.IsZero() && rec.doneAt.Before(cutoff) {
			delete(o.tasks, id)
		}
	}
}

func topicFor(status core.TaskStatus) string {
	switch status {
	case core.TaskQueued:
		return core.TopicTaskQueued
	case core.TaskRunning:
		return core.TopicTaskStarted
	case core.TaskSucceeded:
		return core.TopicTaskSucceeded
	case core.TaskFailed:
		return core.TopicTaskFailed
	case core.TaskTimedOut:
		return core.TopicTaskTimedOut
	default:
		return core.TopicTaskCancelled
	}
}
