package improve

import (
	"context"
	"sync"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/logging"
)

// ActionType classifies a planned remediation.
type ActionType string

const (
	// ActionCreateTool asks the tool creator to synthesize and register a
	// missing skill.
	ActionCreateTool ActionType = "create_tool"
	// ActionRerunTests asks the delegated test runner to re-execute failed
	// checks.
	ActionRerunTests ActionType = "rerun_tests"
)

// Action is one planned remediation step. Target carries the affected
// component from the originating issue.
type Action struct {
	Type   ActionType     `json:"type"`
	Target string         `json:"target"`
	Params map[string]any `json:"params,omitempty"`
}

// ActionExecutor carries out one action type. Executors are registered on the
// planner per ActionType.
type ActionExecutor func(ctx context.Context, action Action) error

// PlannerOptions configures a Planner.
type PlannerOptions struct {
	// Rules overrides the default issue-to-action rule table.
	Rules map[IssueType]ActionType
	// Bus, when set, publishes created plans on the improvement.plan topic.
	Bus *bus.Bus
	// Logger receives planning reports.
	Logger logging.Logger
}

// Planner maps issues to remediation actions through a declarative rule
// table and executes plans against registered executors. Every plan and every
// action execution is recorded in the audit log.
type Planner struct {
	mu        sync.RWMutex
	rules     map[IssueType]ActionType
	executors map[ActionType]ActionExecutor

	log    *Log
	bus    *bus.Bus
	logger logging.Logger
}

// NewPlanner creates a planner over the given audit log with the default rule
// table: missing_tool creates a tool, test_failure reruns tests. Unmatched
// issue types plan no action but are still logged.
func NewPlanner(log *Log, optFns ...func(o *PlannerOptions)) *Planner {
	opts := PlannerOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	rules := opts.Rules
	if rules == nil {
		rules = map[IssueType]ActionType{
			IssueMissingTool: ActionCreateTool,
			IssueTestFailure: ActionRerunTests,
		}
	}

	return &Planner{
		rules:     rules,
		executors: make(map[ActionType]ActionExecutor),
		log:       log,
		bus:       opts.Bus,
		logger:    opts.Logger,
	}
}

// RegisterExecutor binds an executor to an action type, replacing any
// previous binding.
func (p *Planner) RegisterExecutor(t ActionType, fn ActionExecutor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executors[t] = fn
}

// PlanImprovement maps each issue to an action via the rule table. The full
// issue set and resulting action set are recorded as one audit entry, so the
// log always shows which issues produced which plan, including issues that
// matched no rule.
func (p *Planner) PlanImprovement(issues []Issue) ([]Action, error) {
	p.mu.RLock()
	var actions []Action
	var unmatched []Issue
	for _, issue := range issues {
		actionType, ok := p.rules[issue.Type]
		if !ok {
			unmatched = append(unmatched, issue)
			continue
		}
		action := Action{Type: actionType, Target: issue.Component}
		if issue.Detail != "" {
			action.Params = map[string]any{"detail": issue.Detail}
		}
		actions = append(actions, action)
	}
	p.mu.RUnlock()

	details := map[string]any{
		"issues":  issuesToDetails(issues),
		"actions": actionsToDetails(actions),
	}
	if len(unmatched) > 0 {
		details["unmatched"] = issuesToDetails(unmatched)
	}
	if err := p.log.Record("plan_created", details); err != nil {
		return nil, err
	}

	if p.bus != nil {
		p.bus.Publish(core.TopicPlanCreated, details)
	}
	p.logger.Info("planner created plan issues=%d actions=%d", len(issues), len(actions))

	return actions, nil
}

// ExecutePlan runs the actions in order, recording one audit entry per
// action. A failing action does not stop the remaining ones; per-action
// outcomes live in the log, not the return value. The returned error reports
// only failures of the execution machinery itself, meaning the audit log
// could not be written.
func (p *Planner) ExecutePlan(ctx context.Context, actions []Action) error {
	for _, action := range actions {
		p.mu.RLock()
		exec, ok := p.executors[action.Type]
		p.mu.RUnlock()

		details := map[string]any{
			"action": string(action.Type),
			"target": action.Target,
		}

		outcome := "executed"
		switch {
		case !ok:
			outcome = "failed"
			details["error"] = "no executor registered"
		default:
			if err := exec(ctx, action); err != nil {
				outcome = "failed"
				details["error"] = err.Error()
				p.logger.Warn("planner action failed action=%s target=%s: %v", action.Type, action.Target, err)
			}
		}
		details["outcome"] = outcome

		if err := p.log.Record("action_"+outcome, details); err != nil {
			return err
		}
	}
	return nil
}

func actionsToDetails(actions []Action) []map[string]any {
	out := make([]map[string]any, 0, len(actions))
	for _, a := range actions {
		d := map[string]any{
			"type":   string(a.Type),
			"target": a.Target,
		}
		if len(a.Params) > 0 {
			d["params"] = a.Params
		}
		out = append(out, d)
	}
	return out
}
