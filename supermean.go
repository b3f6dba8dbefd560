// Package supermean wires the orchestration core together: event bus, shared
// memory, model router, skill registry, agent pool, orchestrator, and the
// self-improvement loop. Everything is built by explicit construction from
// New; there is no process-wide state, so independent systems can coexist in
// one process.
package supermean

import (
	"context"
	"fmt"
	"io"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/supermean/supermean/agent"
	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/config"
	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/improve"
	"github.com/supermean/supermean/logging"
	"github.com/supermean/supermean/memory"
	"github.com/supermean/supermean/model"
	"github.com/supermean/supermean/model/anthropic"
	"github.com/supermean/supermean/model/openai"
	"github.com/supermean/supermean/orchestrator"
	"github.com/supermean/supermean/router"
	"github.com/supermean/supermean/skill"
)

type registeredBackend struct {
	backend  model.Backend
	priority int
}

// Options configures a System.
type Options struct {
	// Config supplies tunables; nil means config.Default().
	Config *config.Config
	// Logger is shared by all components. Defaults to a slog text logger.
	Logger logging.Logger
	// Memory overrides the default in-memory shared store.
	Memory core.SharedMemory
	// Agents overrides the default worker pool.
	Agents []core.Agent
	// Checker drives the self-reflection loop. Without one the loop
	// reports healthy on every cycle.
	Checker improve.HealthChecker
	// AuditWriter, when set, persists the self-improvement log as JSONL.
	AuditWriter io.Writer

	backends []registeredBackend
	skills   []skill.Skill
}

// WithConfig supplies a validated configuration.
func WithConfig(cfg *config.Config) func(o *Options) {
	return func(o *Options) { o.Config = cfg }
}

// WithLogger sets the shared logger.
func WithLogger(l logging.Logger) func(o *Options) {
	return func(o *Options) { o.Logger = l }
}

// WithMemory sets the shared memory implementation.
func WithMemory(m core.SharedMemory) func(o *Options) {
	return func(o *Options) { o.Memory = m }
}

// WithBackend registers a model backend on the router at the given priority,
// in addition to any backends declared in the configuration.
func WithBackend(b model.Backend, priority int) func(o *Options) {
	return func(o *Options) {
		o.backends = append(o.backends, registeredBackend{backend: b, priority: priority})
	}
}

// WithSkill registers a skill in addition to the built-ins.
func WithSkill(s skill.Skill) func(o *Options) {
	return func(o *Options) { o.skills = append(o.skills, s) }
}

// WithAgents replaces the default worker pool.
func WithAgents(agents ...core.Agent) func(o *Options) {
	return func(o *Options) { o.Agents = agents }
}

// WithHealthChecker sets the delegated probe for the self-reflection loop.
func WithHealthChecker(c improve.HealthChecker) func(o *Options) {
	return func(o *Options) { o.Checker = c }
}

// WithAuditWriter persists self-improvement log entries to w as JSONL.
func WithAuditWriter(w io.Writer) func(o *Options) {
	return func(o *Options) { o.AuditWriter = w }
}

// System is the assembled orchestration core.
type System struct {
	cfg       *config.Config
	bus       *bus.Bus
	memory    core.SharedMemory
	router    *router.Router
	skills    *skill.Registry
	orch      *orchestrator.Orchestrator
	log       *improve.Log
	planner   *improve.Planner
	reflector *improve.Reflector
}

// New builds a System. Configuration problems and duplicate backend or skill
// registrations fail construction; nothing starts running until tasks are
// submitted or StartImprovement is called.
func New(optFns ...func(o *Options)) (*System, error) {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger(&logging.LoggerConfig{
			Level:  logging.ParseLevel(cfg.LogLevel),
			Format: "text",
			Output: os.Stderr,
		})
	}

	b := bus.New(func(o *bus.Options) { o.Logger = logger })

	mem := opts.Memory
	if mem == nil {
		mem = memory.NewInMemoryStore()
	}

	rt := router.New(func(o *router.Options) {
		o.MaxConsecutiveFailures = cfg.Router.MaxConsecutiveFailures
		o.Cooldown = cfg.Cooldown()
		o.Logger = logger
	})
	for _, mc := range cfg.Models {
		backend, err := backendFromConfig(mc)
		if err != nil {
			return nil, err
		}
		if err := rt.Register(backend, mc.Priority); err != nil {
			return nil, err
		}
	}
	for _, rb := range opts.backends {
		if err := rt.Register(rb.backend, rb.priority); err != nil {
			return nil, err
		}
	}

	skills := skill.NewRegistry(func(o *skill.Options) {
		o.Strict = cfg.StrictSkills
		o.Logger = logger
	})
	if err := skills.Register(skill.NewSummarizeSkill(rt)); err != nil {
		return nil, err
	}
	for _, s := range opts.skills {
		if err := skills.Register(s); err != nil {
			return nil, err
		}
	}

	agents := opts.Agents
	if len(agents) == 0 {
		agents = make([]core.Agent, cfg.MaxConcurrentAgents)
		for i := range agents {
			agents[i] = agent.NewWorker(fmt.Sprintf("worker-%d", i+1), rt, skills,
				func(o *agent.Options) {
					o.Memory = mem
					o.Logger = logger
				})
		}
	}

	orch, err := orchestrator.New(agents, b, func(o *orchestrator.Options) {
		o.MaxConcurrentAgents = cfg.MaxConcurrentAgents
		o.DefaultTimeout = cfg.DefaultTimeout()
		o.RetentionWindow = cfg.RetentionWindow()
		o.Logger = logger
	})
	if err != nil {
		return nil, err
	}

	var logOpts []func(o *improve.LogOptions)
	if opts.AuditWriter != nil {
		logOpts = append(logOpts, improve.WithWriter(opts.AuditWriter))
	}
	auditLog := improve.NewLog(logOpts...)

	planner := improve.NewPlanner(auditLog, func(o *improve.PlannerOptions) {
		o.Bus = b
		o.Logger = logger
	})
	creator := improve.NewToolCreator(rt, skills, func(o *improve.ToolCreatorOptions) {
		o.Logger = logger
	})
	planner.RegisterExecutor(improve.ActionCreateTool, creator.Executor())

	checker := opts.Checker
	if checker == nil {
		checker = improve.HealthCheckerFunc(func(ctx context.Context) (improve.Report, error) {
			return improve.Report{Healthy: true}, nil
		})
	}
	reflector := improve.NewReflector(checker, auditLog, func(o *improve.ReflectorOptions) {
		o.Interval = cfg.ReflectionInterval()
		o.Bus = b
		o.Logger = logger
		o.Sink = func(ctx context.Context, issues []improve.Issue) {
			actions, perr := planner.PlanImprovement(issues)
			if perr != nil {
				logger.Error("improvement planning failed: %v", perr)
				return
			}
			if perr := planner.ExecutePlan(ctx, actions); perr != nil {
				logger.Error("improvement plan execution failed: %v", perr)
			}
		}
	})

	return &System{
		cfg:       cfg,
		bus:       b,
		memory:    mem,
		router:    rt,
		skills:    skills,
		orch:      orch,
		log:       auditLog,
		planner:   planner,
		reflector: reflector,
	}, nil
}

// renamedBackend gives a provider backend the name declared in the
// configuration so task preferences refer to config names, not provider
// model identifiers.
type renamedBackend struct {
	model.Backend
	name string
}

func (r renamedBackend) Info() model.Info {
	info := r.Backend.Info()
	info.Name = r.name
	return info
}

func backendFromConfig(mc config.ModelConfig) (model.Backend, error) {
	switch mc.Provider {
	case "mock":
		return model.NewMockBackend(mc.Name), nil
	case "anthropic":
		backend := anthropic.NewBackend(func(o *anthropic.Options) {
			o.APIKey = mc.APIKey
			if mc.Model != "" {
				o.Model = anthropicsdk.Model(mc.Model)
			}
		})
		return renamedBackend{Backend: backend, name: mc.Name}, nil
	case "openai":
		backend := openai.NewBackend(func(o *openai.Options) {
			o.APIKey = mc.APIKey
			if mc.Model != "" {
				o.Model = mc.Model
			}
		})
		return renamedBackend{Backend: backend, name: mc.Name}, nil
	default:
		return nil, core.NewConfigurationError("models", "unknown provider "+mc.Provider)
	}
}

// Submit hands a task to the orchestrator and returns its id.
func (s *System) Submit(task *core.Task, optFns ...func(o *orchestrator.SubmitOptions)) (string, error) {
	return s.orch.Submit(task, optFns...)
}

// Status returns the current status of a submitted task.
func (s *System) Status(id string) (core.TaskStatus, error) {
	return s.orch.Status(id)
}

// Result returns the recorded outcome of a terminal task.
func (s *System) Result(id string) (any, error) {
	return s.orch.Result(id)
}

// Cancel requests cooperative cancellation of a task.
func (s *System) Cancel(id string) error {
	return s.orch.Cancel(id)
}

// Subscribe attaches a handler to a bus topic.
func (s *System) Subscribe(topic string, handler bus.Handler) *bus.Subscription {
	return s.bus.Subscribe(topic, handler)
}

// StartImprovement launches the self-reflection loop.
func (s *System) StartImprovement() { s.reflector.Start() }

// StopImprovement stops the loop, waiting for an in-flight check.
func (s *System) StopImprovement() { s.reflector.Stop() }

// Shutdown drains the orchestrator and stops the improvement loop.
func (s *System) Shutdown(ctx context.Context) error {
	s.reflector.Stop()
	return s.orch.Shutdown(ctx)
}

// Router exposes the model router, e.g. for health inspection.
func (s *System) Router() *router.Router { return s.router }

// Skills exposes the skill registry.
func (s *System) Skills() *skill.Registry { return s.skills }

// Memory exposes the shared memory store.
func (s *System) Memory() core.SharedMemory { return s.memory }

// Planner exposes the improvement planner for executor registration.
func (s *System) Planner() *improve.Planner { return s.planner }

// ImprovementLog exposes the audit log.
func (s *System) ImprovementLog() *improve.Log { return s.log }
