package improve

import (
	"context"
	"sync"
	"time"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
)

// TestResult is one delegated check outcome included in a health report.
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Report is what a HealthChecker observes in one probe cycle.
type Report struct {
	Healthy      bool
	TestResults  []TestResult
	MissingTools []string
}

// HealthChecker performs the delegated health and test-suite probes. The
// reflector owns scheduling; the checker owns what "healthy" means.
type HealthChecker interface {
	Check(ctx context.Context) (Report, error)
}

// HealthCheckerFunc adapts a function to the HealthChecker interface.
type HealthCheckerFunc func(ctx context.Context) (Report, error)

// Check calls f.
func (f HealthCheckerFunc) Check(ctx context.Context) (Report, error) { return f(ctx) }

// ReflectorState is the loop's current phase.
type ReflectorState int

const (
	// StateIdle means no check cycle is in flight.
	StateIdle ReflectorState = iota
	// StateChecking means a probe cycle is running.
	StateChecking
	// StateStopped means the loop has terminated.
	StateStopped
)

// ReflectorOptions configures a Reflector.
type ReflectorOptions struct {
	// Interval between check cycles. Defaults to 1 minute.
	Interval time.Duration
	// Sink receives detected issues directly, typically a Planner method.
	Sink func(ctx context.Context, issues []Issue)
	// Bus, when set, additionally publishes issues on the
	// improvement.issue topic.
	Bus *bus.Bus
	// Logger receives loop reports.
	Logger logging.Logger
}

// Reflector runs periodic self-reflection: it executes the delegated health
// check, turns negative findings into structured issues, records them in the
// audit log, and forwards them to the configured sink and/or bus topic.
type Reflector struct {
	checker  HealthChecker
	log      *Log
	interval time.Duration
	sink     func(ctx context.Context, issues []Issue)
	bus      *bus.Bus
	logger   logging.Logger

	mu      sync.Mutex
	state   ReflectorState
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewReflector creates a reflector over the given checker and audit log.
func NewReflector(checker HealthChecker, log *Log, optFns ...func(o *ReflectorOptions)) *Reflector {
	opts := ReflectorOptions{
		Interval: time.Minute,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Reflector{
		checker:  checker,
		log:      log,
		interval: opts.Interval,
		sink:     opts.Sink,
		bus:      opts.Bus,
		logger:   opts.Logger,
	}
}

// Start launches the interval loop. It is a no-op if already running.
func (r *Reflector) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.state = StateIdle
	r.stop = make(chan struct{})
	r.done = make(chan struct{})

	go r.loop(r.stop, r.done)
}

// Stop terminates the loop and blocks until any in-flight check cycle has
// completed. A check is never cancelled mid-flight.
func (r *Reflector) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	stop, done := r.stop, r.done
	r.mu.Unlock()

	close(stop)
	<-done

	r.mu.Lock()
	r.state = StateStopped
	r.mu.Unlock()
}

// State returns the loop's current phase.
func (r *Reflector) State() ReflectorState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reflector) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.RunChecks(context.Background()); err != nil {
				r.logger.Error("reflector check cycle failed: %v", err)
			}
		}
	}
}

// RunChecks executes one probe cycle and returns the detected issues. It is
// called by the interval loop and may also be invoked directly for an
// on-demand check.
func (r *Reflector) RunChecks(ctx context.Context) ([]Issue, error) {
	r.setState(StateChecking)
	defer r.setState(StateIdle)

	report, err := r.checker.Check(ctx)
	if err != nil {
		issues := []Issue{{Type: IssueUnhealthy, Component: "health_check", Detail: err.Error()}}
		if lerr := r.log.Record("check_failed", map[string]any{"error": err.Error()}); lerr != nil {
			return nil, lerr
		}
		r.emit(ctx, issues)
		return issues, nil
	}

	issues := issuesFromReport(report)
	if len(issues) == 0 {
		r.logger.Debug("reflector cycle healthy tests=%d", len(report.TestResults))
		return nil, nil
	}

	if err := r.log.Record("issue_detected", map[string]any{
		"issues": issuesToDetails(issues),
	}); err != nil {
		return nil, err
	}

	r.emit(ctx, issues)
	return issues, nil
}

func (r *Reflector) emit(ctx context.Context, issues []Issue) {
	if r.sink != nil {
		r.sink(ctx, issues)
	}
	if r.bus != nil {
		r.bus.Publish(core.TopicIssueDetected, map[string]any{
			"issues": issuesToDetails(issues),
		})
	}
}

func (r *Reflector) setState(s ReflectorState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateStopped {
		r.state = s
	}
}

func issuesFromReport(report Report) []Issue {
	var issues []Issue
	if !report.Healthy {
		issues = append(issues, Issue{Type: IssueUnhealthy, Component: "system"})
	}
	for _, tr := range report.TestResults {
		if !tr.Passed {
			issues = append(issues, Issue{Type: IssueTestFailure, Component: tr.Name, Detail: tr.Detail})
		}
	}
	for _, name := range report.MissingTools {
		issues = append(issues, Issue{Type: IssueMissingTool, Component: name})
	}
	return issues
}
