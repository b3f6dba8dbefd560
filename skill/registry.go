package skill

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/internal/util"
	"github.com/supermean/supermean/logging"
)

// Options configures a Registry.
type Options struct {
	// Strict makes re-registration of an existing name fail with
	// core.ErrDuplicateSkill. The default overwrites and logs a warning
	// (last write wins).
	Strict bool
	// Logger receives registration and invocation reports.
	Logger logging.Logger
}

// Registry maps skill names to invokable capabilities. It validates declared
// input contracts before delegating to the capability handle. Safe for
// concurrent use.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill

	strict bool
	logger logging.Logger
}

// NewRegistry creates an empty skill registry with optional overrides.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		skills: make(map[string]Skill),
		strict: opts.Strict,
		logger: opts.Logger,
	}
}

// Register adds a skill under its name. In strict mode a duplicate name
// fails with core.ErrDuplicateSkill; otherwise the previous registration is
// replaced and a warning is logged.
func (r *Registry) Register(s Skill) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.skills[name]; exists {
		if r.strict {
			return fmt.Errorf("%w: %s", core.ErrDuplicateSkill, name)
		}
		r.logger.Warn("skill registry overwriting existing skill name=%s", name)
	}

	r.skills[name] = s
	r.logger.Info("skill registered name=%s category=%s", name, s.Category())

	return nil
}

// Get returns the skill registered under name.
func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

// Names returns the registered skill names in unspecified order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for name := range r.skills {
		names = append(names, name)
	}
	return names
}

// Invoke resolves name, validates args against the declared schema and
// delegates to the capability handle.
//
// Error semantics:
//
//	unknown name          -> core.ErrUnknownSkill (wrapped)
//	schema violation      -> *ArgumentError, handle never called
//	downstream failure    -> *ExecutionError carrying the original cause
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) (any, error) {
	s, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownSkill, name)
	}

	if err := util.ValidateParameters(args, s.Schema()); err != nil {
		r.logger.Warn("skill invocation rejected name=%s: %v", name, err)
		return nil, err
	}

	start := time.Now()

	result, err := s.Invoke(ctx, args)
	if err != nil {
		r.logger.Error("skill invocation failed name=%s duration_ms=%d: %v", name, time.Since(start).Milliseconds(), err)
		return nil, NewExecutionError(name, err)
	}

	r.logger.Debug("skill invocation succeeded name=%s duration_ms=%d", name, time.Since(start).Milliseconds())

	return result, nil
}
