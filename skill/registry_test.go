package skill

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/supermean/supermean/core"
	"github.com/supermean/supermean/model"
	"github.com/supermean/supermean/router"
)

func echoSkill(name string) *FuncSkill {
	return NewFuncSkill(name, "test", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}, func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})
}

func TestRegistryInvoke(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSkill("echo")))

	result, err := reg.Invoke(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", result)
}

func TestRegistryInvokeUnknownSkill(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Invoke(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, core.ErrUnknownSkill)
}

func TestRegistryInvokeInvalidArguments(t *testing.T) {
	reg := NewRegistry()

	called := false
	s := NewFuncSkill("strict", "test", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"n": map[string]any{"type": "integer"},
		},
		"required": []string{"n"},
	}, func(context.Context, map[string]any) (any, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, reg.Register(s))

	// Missing required argument: the handle must not run.
	_, err := reg.Invoke(context.Background(), "strict", map[string]any{})
	var argErr *ArgumentError
	require.ErrorAs(t, err, &argErr)
	assert.Equal(t, "n", argErr.Field)
	assert.False(t, called)

	// Wrong type: same.
	_, err = reg.Invoke(context.Background(), "strict", map[string]any{"n": "nope"})
	require.ErrorAs(t, err, &argErr)
	assert.False(t, called)
}

func TestRegistryInvokeWrapsExecutionFailure(t *testing.T) {
	reg := NewRegistry()

	cause := errors.New("downstream exploded")
	s := NewFuncSkill("flaky", "test", map[string]any{"type": "object", "properties": map[string]any{}},
		func(context.Context, map[string]any) (any, error) {
			return nil, cause
		})
	require.NoError(t, reg.Register(s))

	_, err := reg.Invoke(context.Background(), "flaky", map[string]any{})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "flaky", execErr.Skill)
	assert.ErrorIs(t, err, cause)
}

func TestRegistryRegisterDuplicate(t *testing.T) {
	// Default mode: last write wins.
	reg := NewRegistry()
	require.NoError(t, reg.Register(echoSkill("dup")))
	replacement := NewFuncSkill("dup", "test", map[string]any{"type": "object", "properties": map[string]any{}},
		func(context.Context, map[string]any) (any, error) { return "replaced", nil })
	require.NoError(t, reg.Register(replacement))

	result, err := reg.Invoke(context.Background(), "dup", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "replaced", result)

	// Strict mode refuses.
	strict := NewRegistry(func(o *Options) { o.Strict = true })
	require.NoError(t, strict.Register(echoSkill("dup")))
	assert.ErrorIs(t, strict.Register(echoSkill("dup")), core.ErrDuplicateSkill)
}

func TestFuncSkillFromStruct(t *testing.T) {
	type args struct {
		Text string `json:"text" description:"Input text"`
		N    *int   `json:"n" description:"Optional count"`
	}

	s := NewFuncSkillFromStruct("typed", "test", args{}, func(_ context.Context, a map[string]any) (any, error) {
		return a["text"], nil
	})

	reg := NewRegistry()
	require.NoError(t, reg.Register(s))

	// Required field derived from the struct.
	_, err := reg.Invoke(context.Background(), "typed", map[string]any{})
	assert.Error(t, err)

	result, err := reg.Invoke(context.Background(), "typed", map[string]any{"text": "ok"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestSummarizeSkill(t *testing.T) {
	backend := model.NewMockBackend("mock")
	r := router.New()
	require.NoError(t, r.Register(backend, 1))

	reg := NewRegistry()
	require.NoError(t, reg.Register(NewSummarizeSkill(r)))

	// Empty input short-circuits without a model call.
	result, err := reg.Invoke(context.Background(), "summarize", map[string]any{"text": "   "})
	require.NoError(t, err)
	assert.Equal(t, "", result)

	result, err = reg.Invoke(context.Background(), "summarize", map[string]any{"text": "a long document"})
	require.NoError(t, err)
	assert.Contains(t, result.(string), "Mock response")
}
