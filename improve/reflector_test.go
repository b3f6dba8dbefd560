package improve

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermean/supermean/bus"
	"github.com/supermean/supermean/core"
)

func TestRunChecksHealthy(t *testing.T) {
	l := NewLog()
	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		return Report{Healthy: true, TestResults: []TestResult{{Name: "smoke", Passed: true}}}, nil
	}), l)

	issues, err := r.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 0, l.Len())
}

func TestRunChecksDetectsIssues(t *testing.T) {
	l := NewLog()
	var sunk []Issue
	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		return Report{
			Healthy:      false,
			TestResults:  []TestResult{{Name: "router_smoke", Passed: false, Detail: "timeout"}},
			MissingTools: []string{"summarize"},
		}, nil
	}), l, func(opts *ReflectorOptions) {
		opts.Sink = func(ctx context.Context, issues []Issue) { sunk = issues }
	})

	issues, err := r.RunChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, IssueUnhealthy, issues[0].Type)
	assert.Equal(t, IssueTestFailure, issues[1].Type)
	assert.Equal(t, "router_smoke", issues[1].Component)
	assert.Equal(t, IssueMissingTool, issues[2].Type)
	assert.Equal(t, "summarize", issues[2].Component)

	assert.Equal(t, issues, sunk)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "issue_detected", entries[0].ActionType)
}

func TestRunChecksCheckerError(t *testing.T) {
	l := NewLog()
	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		return Report{}, errors.New("probe unreachable")
	}), l)

	issues, err := r.RunChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, IssueUnhealthy, issues[0].Type)

	entries := l.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "check_failed", entries[0].ActionType)
}

func TestRunChecksPublishesOnBus(t *testing.T) {
	b := bus.New()
	received := make(chan core.Event, 1)
	b.Subscribe(core.TopicIssueDetected, func(ev core.Event) error {
		received <- ev
		return nil
	})

	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		return Report{Healthy: false}, nil
	}), NewLog(), func(opts *ReflectorOptions) {
		opts.Bus = b
	})

	_, err := r.RunChecks(context.Background())
	require.NoError(t, err)

	select {
	case ev := <-received:
		assert.Equal(t, core.TopicIssueDetected, ev.Topic)
	case <-time.After(time.Second):
		t.Fatal("no issue event published")
	}
}

func TestReflectorLoopRunsOnInterval(t *testing.T) {
	l := NewLog()
	var mu sync.Mutex
	calls := 0
	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		return Report{Healthy: true}, nil
	}), l, func(opts *ReflectorOptions) {
		opts.Interval = 10 * time.Millisecond
	})

	r.Start()
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, 2*time.Second, 5*time.Millisecond)
	r.Stop()

	assert.Equal(t, StateStopped, r.State())
}

func TestStopWaitsForInFlightCheck(t *testing.T) {
	entered := make(chan struct{}, 64)
	finish := make(chan struct{})
	done := false
	var mu sync.Mutex

	r := NewReflector(HealthCheckerFunc(func(ctx context.Context) (Report, error) {
		entered <- struct{}{}
		<-finish
		mu.Lock()
		done = true
		mu.Unlock()
		return Report{Healthy: true}, nil
	}), NewLog(), func(opts *ReflectorOptions) {
		opts.Interval = 5 * time.Millisecond
	})

	r.Start()
	<-entered

	stopped := make(chan struct{})
	go func() {
		r.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a check was in flight")
	case <-time.After(30 * time.Millisecond):
	}

	close(finish)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the check completed")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, done)
}
