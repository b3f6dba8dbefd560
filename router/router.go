// Package router implements the model router: it resolves a model preference
// to a healthy backend and executes generation calls with failover, timeout
// propagation and per-backend health tracking.
package router

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
	"github.com/supermean/supermean/model"
)

// Health is the observed health state of a registered backend. It is mutated
// only by the router based on call outcomes, never externally set.
type Health int

const (
	// Healthy means the backend served its last call successfully.
	Healthy Health = iota
	// Degraded means the backend failed recently but remains a candidate.
	Degraded
	// Unavailable means the backend crossed the consecutive-failure threshold
	// and is excluded until its cooldown elapses.
	Unavailable
)

// String returns the lowercase name of the health state.
func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// GenerateOptions carries per-call routing and generation options.
type GenerateOptions struct {
	// Preference names the backend to try first. When empty or unknown the
	// priority order decides.
	Preference string
	// Instructions is an optional system prompt forwarded to the backend.
	Instructions string
	// Stream requests streaming generation; it never alters backend
	// selection policy.
	Stream bool
	// OnChunk receives partial text chunks when streaming.
	OnChunk func(text string)
	// Temperature and MaxTokens override backend defaults when non-zero.
	Temperature float64
	MaxTokens   int64
}

// Options configures a Router.
type Options struct {
	// MaxConsecutiveFailures is the threshold after which a backend is moved
	// from degraded to unavailable.
	MaxConsecutiveFailures int
	// Cooldown is how long an unavailable backend is excluded before it is
	// probed opportunistically again.
	Cooldown time.Duration
	// Logger receives routing decisions and failure reports.
	Logger logging.Logger
}

type backendState struct {
	backend  model.Backend
	name     string
	priority int

	health              Health
	consecutiveFailures int
	unavailableAt       time.Time
}

// Router selects among registered model backends by preference and priority,
// applies failover on observed failures and normalizes results. Health state
// mutation is synchronized so concurrent failures converge to a consistent
// value.
type Router struct {
	mu       sync.Mutex
	backends []*backendState // registration order

	maxConsecutiveFailures int
	cooldown               time.Duration
	logger                 logging.Logger

	now func() time.Time
}

// New creates a Router with optional overrides. Defaults: 3 consecutive
// failures before unavailable, 30 second cooldown, no-op logger.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		MaxConsecutiveFailures: 3,
		Cooldown:               30 * time.Second,
		Logger:                 logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Router{
		maxConsecutiveFailures: opts.MaxConsecutiveFailures,
		cooldown:               opts.Cooldown,
		logger:                 opts.Logger,
		now:                    time.Now,
	}
}

// Register adds a backend under the name reported by its Info. Higher
// priority wins during selection; equal priority breaks by registration
// order. Registering an already registered name returns an error.
func (r *Router) Register(b model.Backend, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Info().Name
	for _, st := range r.backends {
		if st.name == name {
			return fmt.Errorf("backend %s already registered", name)
		}
	}

	r.backends = append(r.backends, &backendState{backend: b, name: name, priority: priority})
	r.logger.Info("router registered backend name=%s priority=%d", name, priority)

	return nil
}

// Names returns the registered backend names in registration order.
func (r *Router) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.backends))
	for i, st := range r.backends {
		names[i] = st.name
	}
	return names
}

// Health returns the current health state of a named backend.
func (r *Router) Health(name string) (Health, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, st := range r.backends {
		if st.name == name {
			return st.health, nil
		}
	}
	return Healthy, fmt.Errorf("backend %s not registered", name)
}

// Generate routes a generation request to the preferred backend, falling back
// through the remaining candidates ordered by descending priority on failure.
// It returns core.ErrAllBackendsUnavailable once every candidate is
// exhausted. Context cancellation aborts routing without penalizing the
// backend that was interrupted.
func (r *Router) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	candidates := r.candidates(opts.Preference)
	if len(candidates) == 0 {
		return "", fmt.Errorf("%w: no registered backend is eligible", core.ErrAllBackendsUnavailable)
	}

	var lastErr error
	for _, st := range candidates {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := r.callBackend(ctx, st, prompt, opts)
		if err == nil {
			r.recordSuccess(st)
			return text, nil
		}

		if ctx.Err() != nil {
			// Interrupted by the caller, not a backend fault.
			return "", ctx.Err()
		}

		r.recordFailure(st, err)
		lastErr = err
	}

	return "", fmt.Errorf("%w: last error: %v", core.ErrAllBackendsUnavailable, lastErr)
}

// candidates snapshots the eligible backends in try order: the preferred
// backend first (when registered and eligible), then the rest by descending
// priority with registration order as the stable tie-break. Unavailable
// backends are skipped unless their cooldown has elapsed, in which case they
// are probed in their usual position.
func (r *Router) candidates(preference string) []*backendState {
	r.mu.Lock()
	defer r.mu.Unlock()

	var preferred *backendState
	rest := make([]*backendState, 0, len(r.backends))

	for _, st := range r.backends {
		if !r.eligibleLocked(st) {
			continue
		}
		if st.name == preference {
			preferred = st
			continue
		}
		rest = append(rest, st)
	}

	sort.SliceStable(rest, func(i, j int) bool { return rest[i].priority > rest[j].priority })

	if preferred != nil {
		return append([]*backendState{preferred}, rest...)
	}
	return rest
}

// eligibleLocked reports whether a backend may be tried now. Caller holds r.mu.
func (r *Router) eligibleLocked(st *backendState) bool {
	if st.health != Unavailable {
		return true
	}
	if r.now().Sub(st.unavailableAt) >= r.cooldown {
		r.logger.Info("router probing backend after cooldown name=%s", st.name)
		return true
	}
	return false
}

// callBackend executes a single generation attempt, draining the backend's
// response stream into the final text.
func (r *Router) callBackend(ctx context.Context, st *backendState, prompt string, opts GenerateOptions) (string, error) {
	start := time.Now()

	respCh, errCh := st.backend.Generate(ctx, model.Request{
		Prompt:       prompt,
		Instructions: opts.Instructions,
		Stream:       opts.Stream,
		Temperature:  opts.Temperature,
		MaxTokens:    opts.MaxTokens,
	})

	var final string
	var sawFinal bool
	var partials string

	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if resp.Partial {
				partials += resp.Text
				if opts.OnChunk != nil {
					opts.OnChunk(resp.Text)
				}
				continue
			}
			final = resp.Text
			sawFinal = true
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if !sawFinal {
		// Stream closed without a final chunk; fall back to accumulation.
		final = partials
	}

	r.logger.Debug("router backend call completed name=%s duration=%s", st.name, time.Since(start))

	return final, nil
}

func (r *Router) recordSuccess(st *backendState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st.consecutiveFailures = 0
	if st.health != Healthy {
		r.logger.Info("router backend recovered name=%s", st.name)
	}
	st.health = Healthy
}

func (r *Router) recordFailure(st *backendState, cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st.consecutiveFailures++
	if st.consecutiveFailures >= r.maxConsecutiveFailures {
		st.health = Unavailable
		st.unavailableAt = r.now()
		r.logger.Warn("router backend unavailable name=%s failures=%d: %v", st.name, st.consecutiveFailures, cause)
		return
	}

	st.health = Degraded
	r.logger.Warn("router backend degraded name=%s failures=%d: %v", st.name, st.consecutiveFailures, cause)
}
