package core

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across packages. Callers should test with
// errors.Is; wrapped variants carry additional context.
var (
	// ErrCapacityExceeded is returned by non-blocking submission when the
	// concurrency budget is exhausted. Default (blocking) submission queues
	// instead.
	ErrCapacityExceeded = errors.New("orchestrator at capacity")

	// ErrUnknownTask is returned for task ids that were never submitted or
	// have been archived past the retention window.
	ErrUnknownTask = errors.New("unknown task")

	// ErrUnknownSkill is returned when invoking a skill name that is not
	// registered.
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrDuplicateSkill is returned by strict-mode registration when the
	// skill name is already taken.
	ErrDuplicateSkill = errors.New("duplicate skill")

	// ErrAllBackendsUnavailable is returned by the model router when every
	// candidate backend has been exhausted.
	ErrAllBackendsUnavailable = errors.New("all model backends unavailable")
)

// ConfigurationError reports bad or missing required settings. It is fatal
// at startup only; initialization must stop rather than run degraded.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// NewConfigurationError creates a ConfigurationError for the given field.
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}
