package improve

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
)

func TestPlanImprovementRuleTable(t *testing.T) {
	l := NewLog()
	p := NewPlanner(l)

	actions, err := p.PlanImprovement([]Issue{
		{Type: IssueMissingTool, Component: "summarize"},
		{Type: IssueTestFailure, Component: "router_smoke", Detail: "timeout"},
	})
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, ActionCreateTool, actions[0].Type)
	assert.Equal(t, "summarize", actions[0].Target)
	assert.Equal(t, ActionRerunTests, actions[1].Type)
	assert.Equal(t, "router_smoke", actions[1].Target)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "plan_created", entries[0].ActionType)
}

func TestPlanImprovementUnmatchedIssueLogged(t *testing.T) {
	l := NewLog()
	p := NewPlanner(l)

	actions, err := p.PlanImprovement([]Issue{
		{Type: IssueUnhealthy, Component: "system"},
	})
	require.NoError(t, err)
	assert.Empty(t, actions)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "plan_created", entries[0].ActionType)
	assert.Contains(t, entries[0].Details, "unmatched")
}

func TestPlanImprovementPublishesOnBus(t *testing.T) {
	b := bus.New()
	received := make(chan core.Event, 1)
	b.Subscribe(core.TopicPlanCreated, func(ev core.Event) error {
		received <- ev
		return nil
	})

	p := NewPlanner(NewLog(), func(opts *PlannerOptions) {
		opts.Bus = b
	})

	_, err := p.PlanImprovement([]Issue{{Type: IssueMissingTool, Component: "x"}})
	require.NoError(t, err)
	require.Len(t, received, 1)
}

func TestExecutePlanPartialFailure(t *testing.T) {
	l := NewLog()
	p := NewPlanner(l)

	var executed []string
	p.RegisterExecutor(ActionCreateTool, func(ctx context.Context, a Action) error {
		executed = append(executed, a.Target)
		if a.Target == "bad" {
			return errors.New("synthesis failed")
		}
		return nil
	})

	actions := []Action{
		{Type: ActionCreateTool, Target: "bad"},
		{Type: ActionCreateTool, Target: "good"},
		{Type: ActionRerunTests, Target: "suite"}, // no executor registered
	}
	require.NoError(t, p.ExecutePlan(context.Background(), actions))

	// The failure did not stop the later actions.
	assert.Equal(t, []string{"bad", "good"}, executed)

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "action_failed", entries[0].ActionType)
	assert.Equal(t, "action_executed", entries[1].ActionType)
	assert.Equal(t, "action_failed", entries[2].ActionType)
	assert.Equal(t, "no executor registered", entries[2].Details["error"])
}

func TestExecutePlanLogFailure(t *testing.T) {
	l := NewLog(WithWriter(failingWriter{}))
	p := NewPlanner(l)
	p.RegisterExecutor(ActionRerunTests, func(ctx context.Context, a Action) error { return nil })

	err := p.ExecutePlan(context.Background(), []Action{{Type: ActionRerunTests, Target: "suite"}})
	assert.Error(t, err)
}

// Audit completeness: concurrent plans must log exactly one entry per action,
// with no interleaved or lost writes.
func TestExecutePlanConcurrentAuditCompleteness(t *testing.T) {
	l := NewLog()
	p := NewPlanner(l)
	p.RegisterExecutor(ActionCreateTool, func(ctx context.Context, a Action) error { return nil })
	p.RegisterExecutor(ActionRerunTests, func(ctx context.Context, a Action) error { return nil })

	actions := []Action{
		{Type: ActionCreateTool, Target: "tool-a"},
		{Type: ActionRerunTests, Target: "suite"},
		{Type: ActionCreateTool, Target: "tool-b"},
	}

	const callers = 100
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, p.ExecutePlan(context.Background(), actions))
		}()
	}
	wg.Wait()

	assert.Equal(t, callers*len(actions), l.Len())
	for _, entry := range l.Entries() {
		assert.Equal(t, "action_executed", entry.ActionType)
	}
}
