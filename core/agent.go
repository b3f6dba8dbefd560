package core

import "context"

// Capability declares which skills and model backends an agent may use. The
// orchestrator matches task requirements against it during dispatch. Empty
// slices mean the agent accepts any task.
type Capability struct {
	Skills []string `json:"skills,omitempty"`
	Models []string `json:"models,omitempty"`
}

// Compatible reports whether the agent may execute the given task: an exact
// match on the requested skill name or model preference, or an undeclared
// requirement on either side.
func (c Capability) Compatible(t *Task) bool {
	if t.SkillName != "" && !c.allows(c.Skills, t.SkillName) {
		return false
	}
	if t.ModelPreference != "" && !c.allows(c.Models, t.ModelPreference) {
		return false
	}
	return true
}

func (Capability) allows(declared []string, want string) bool {
	if len(declared) == 0 {
		return true
	}
	for _, d := range declared {
		if d == want {
			return true
		}
	}
	return false
}

// Agent is a worker unit owned by the orchestrator. The orchestrator
// dispatches one task per agent slot, but when a task hits its deadline the
// slot is released without waiting for Execute to return, so implementations
// must tolerate a new Execute call while an abandoned one drains. Stateless
// implementations get this for free.
//
// Execute must respect ctx cancellation at its suspension points (before and
// after model/skill calls); the orchestrator delivers both timeouts and
// cooperative cancellation through that context. Errors returned from
// Execute become a terminal failed status on the task, never a raised error
// to the submitter.
type Agent interface {
	Name() string
	Capability() Capability
	Execute(ctx context.Context, task *Task) (any, error)
}
