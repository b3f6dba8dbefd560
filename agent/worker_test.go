package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/memory"
	"github.com/supermean/supermean/model"
	"github.com/supermean/supermean/router"
	"github.com/supermean/supermean/skill"
)

func newWorkerFixture(t *testing.T) (*router.Router, *skill.Registry) {
	t.Helper()

	backend := model.NewMockBackend("mock-a")
	backend.AddResponse("compute", "42")
	r := router.New()
	require.NoError(t, r.Register(backend, 10))

	skills := skill.NewRegistry()
	require.NoError(t, skills.Register(skill.NewFuncSkill("echo", "test", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(ctx context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})))

	return r, skills
}

func TestWorkerExecutesSkillTask(t *testing.T) {
	r, skills := newWorkerFixture(t)
	w := NewWorker("worker-1", r, skills)

	task := core.NewTask(map[string]any{"text": "hello"})
	task.SkillName = "echo"

	result, err := w.Execute(context.Background(), task)
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestWorkerGeneratesFromPrompt(t *testing.T) {
	r, skills := newWorkerFixture(t)
	w := NewWorker("worker-1", r, skills)

	result, err := w.Execute(context.Background(), core.NewTask(map[string]any{"prompt": "compute"}))
	require.NoError(t, err)
	assert.Equal(t, "42", result)
}

func TestWorkerRequiresPromptOrSkill(t *testing.T) {
	r, skills := newWorkerFixture(t)
	w := NewWorker("worker-1", r, skills)

	_, err := w.Execute(context.Background(), core.NewTask(nil))
	assert.Error(t, err)
}

func TestWorkerRecordsResultInMemory(t *testing.T) {
	r, skills := newWorkerFixture(t)
	store := memory.NewInMemoryStore()
	w := NewWorker("worker-1", r, skills, func(o *Options) {
		o.Memory = store
	})

	task := core.NewTask(map[string]any{"prompt": "compute"})
	_, err := w.Execute(context.Background(), task)
	require.NoError(t, err)

	stored, ok := store.Get("results/" + task.ID)
	require.True(t, ok)
	assert.Equal(t, "42", stored)
}

func TestWorkerObservesCancelledContext(t *testing.T) {
	r, skills := newWorkerFixture(t)
	w := NewWorker("worker-1", r, skills)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Execute(ctx, core.NewTask(map[string]any{"prompt": "compute"}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerCapability(t *testing.T) {
	r, skills := newWorkerFixture(t)
	w := NewWorker("worker-1", r, skills, func(o *Options) {
		o.Capability = core.Capability{Skills: []string{"echo"}}
	})

	assert.Equal(t, "worker-1", w.Name())

	compatible := core.NewTask(nil)
	compatible.SkillName = "echo"
	assert.True(t, w.Capability().Compatible(compatible))

	incompatible := core.NewTask(nil)
	incompatible.SkillName = "other"
	assert.False(t, w.Capability().Compatible(incompatible))
}
