package model

import (
	"context"
	"fmt"
	"time"
)

// Request captures the normalized generation input handed to a backend.
// Instructions (system prompt) may be empty. Streaming is a per-call option
// and never influences backend selection.
type Request struct {
	Prompt       string  `json:"prompt"`
	Instructions string  `json:"instructions,omitempty"`
	Stream       bool    `json:"stream,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	MaxTokens    int64   `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a backend. For
// non-streaming calls exactly one non-partial response is emitted.
type Response struct {
	Text         string      `json:"text"`
	Partial      bool        `json:"partial"`
	FinishReason string      `json:"finish_reason,omitempty"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a backend implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Backend is the uniform generate capability consumed by the router. The
// response channel is closed after the final chunk; the error channel carries
// at most one terminal error.
type Backend interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the backend implementation.
	Info() Info
}

// MockBackend is a lightweight in-memory Backend useful for tests & examples.
// Canned responses are keyed by prompt; unmatched prompts receive a generic
// echo. Failures can be scripted with FailNext to exercise router failover.
type MockBackend struct {
	info      Info
	responses map[string]string
	failures  int
	latency   time.Duration
}

// NewMockBackend constructs a MockBackend for the given name.
func NewMockBackend(name string) *MockBackend {
	return &MockBackend{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockBackend) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailNext makes the next n Generate calls fail with a provider error.
func (m *MockBackend) FailNext(n int) { m.failures = n }

// WithLatency makes each Generate call sleep before responding, observing ctx.
func (m *MockBackend) WithLatency(d time.Duration) *MockBackend {
	m.latency = d
	return m
}

// Generate implements Backend; emits optional streaming char chunks then the
// final response.
func (m *MockBackend) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		if m.latency > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(m.latency):
			}
		}

		if m.failures > 0 {
			m.failures--
			errCh <- fmt.Errorf("mock backend %s: provider error", m.info.Name)
			return
		}

		full := m.responses[req.Prompt]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", req.Prompt)
		}

		if req.Stream {
			for _, r := range full {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{Partial: true, Text: string(r)}:
				}
			}
		}

		respCh <- Response{Text: full, FinishReason: "stop"}
	}()

	return respCh, errCh
}

// Info implements Backend.
func (m *MockBackend) Info() Info { return m.info }
