package model

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, respCh <-chan Response, errCh <-chan error) (string, error) {
	t.Helper()

	var final string
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
			} else {
				final = resp.Text
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return "", err
			}
		case <-time.After(2 * time.Second):
			t.Fatal("timed out draining backend channels")
		}
	}
	if final == "" {
		final = partials
	}
	return final, nil
}

func TestMockBackendCannedResponse(t *testing.T) {
	m := NewMockBackend("mock-a")
	m.AddResponse("ping", "pong")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "ping"})
	text, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	assert.Equal(t, "pong", text)

	assert.Equal(t, "mock-a", m.Info().Name)
	assert.Equal(t, "mock", m.Info().Provider)
}

func TestMockBackendDefaultResponse(t *testing.T) {
	m := NewMockBackend("mock-a")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "anything"})
	text, err := drain(t, respCh, errCh)
	require.NoError(t, err)
	assert.Contains(t, text, "anything")
}

func TestMockBackendStreaming(t *testing.T) {
	m := NewMockBackend("mock-a")
	m.AddResponse("ping", "pong")

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "ping", Stream: true})

	var chunks []string
	var final string
	for resp := range respCh {
		if resp.Partial {
			chunks = append(chunks, resp.Text)
		} else {
			final = resp.Text
		}
	}
	require.NoError(t, <-errCh)

	assert.Equal(t, []string{"p", "o", "n", "g"}, chunks)
	assert.Equal(t, "pong", final)
}

func TestMockBackendScriptedFailures(t *testing.T) {
	m := NewMockBackend("mock-a")
	m.FailNext(2)

	respCh, errCh := m.Generate(context.Background(), Request{Prompt: "x"})
	_, err := drain(t, respCh, errCh)
	require.Error(t, err)

	respCh, errCh = m.Generate(context.Background(), Request{Prompt: "x"})
	_, err = drain(t, respCh, errCh)
	require.Error(t, err)

	// Third call recovers.
	respCh, errCh = m.Generate(context.Background(), Request{Prompt: "x"})
	_, err = drain(t, respCh, errCh)
	require.NoError(t, err)
}

func TestMockBackendLatencyObservesContext(t *testing.T) {
	m := NewMockBackend("mock-a").WithLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	respCh, errCh := m.Generate(ctx, Request{Prompt: "x"})
	_, err := drain(t, respCh, errCh)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
