// Package skill implements the skill subsystem that lets agents invoke named,
// schema validated capabilities (APIs, computations, side effects) with
// consistent error handling. Skills are registered once in a Registry and
// resolved by name at invocation time.
package skill

import (
	"context"
	"fmt"

	"github.com/supermean/supermean/internal/util"
)

// Skill defines the interface for a named capability invokable by agents.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended) and categories
//   - Define a proper JSON schema for arguments
//   - Handle errors gracefully
//   - Be thread-safe if used concurrently
type Skill interface {
	// Name returns the unique identifier for this skill.
	Name() string

	// Category groups related skills (e.g. "text", "code", "generated").
	Category() string

	// Schema returns a JSON schema describing the expected arguments.
	// The registry validates arguments against it before invocation.
	Schema() map[string]any

	// Invoke executes the skill with already validated arguments.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// ArgumentError reports arguments that do not satisfy the declared schema
// (required parameters missing or wrong type). The underlying capability
// handle is never called when this error is returned.
type ArgumentError = util.ValidationError

// ExecutionError wraps a downstream skill failure carrying the original cause.
type ExecutionError struct {
	Skill   string `json:"skill"`   // Name of the skill that failed
	Message string `json:"message"` // Error message
	Cause   error  `json:"-"`       // Underlying failure
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("skill %s execution failed: %s", e.Skill, e.Message)
}

// Unwrap exposes the original cause for errors.Is / errors.As.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// NewExecutionError creates an ExecutionError wrapping cause.
func NewExecutionError(skill string, cause error) *ExecutionError {
	return &ExecutionError{Skill: skill, Message: cause.Error(), Cause: cause}
}
