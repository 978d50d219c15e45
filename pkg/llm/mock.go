package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockProvider is a scripted LLMProvider for tests. Responses and errors
// are consumed in the order they were queued; running past the script is
// an error so a test cannot silently loop on stale output.
type MockProvider struct {
	mu    sync.Mutex
	steps []mockStep

	// Calls records every prompt in arrival order. For Chat calls the
	// last message's content is recorded.
	Calls []string
}

type mockStep struct {
	text string
	err  error
}

func NewMockProvider(responses ...string) *MockProvider {
	m := &MockProvider{}
	for _, r := range responses {
		m.Queue(r)
	}
	return m
}

// Queue appends a successful response to the script.
func (m *MockProvider) Queue(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{text: text})
}

// QueueError appends a failing call to the script.
func (m *MockProvider) QueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
}

func (m *MockProvider) Chat(ctx context.Context, history []Message, options ...Option) (string, error) {
	last := ""
	if len(history) > 0 {
		last = history[len(history)-1].Content
	}
	return m.next(ctx, last)
}

func (m *MockProvider) Generate(ctx context.Context, prompt string, options ...Option) (string, error) {
	return m.next(ctx, prompt)
}

func (m *MockProvider) next(ctx context.Context, recorded string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, recorded)
	if len(m.steps) == 0 {
		return "", fmt.Errorf("mock provider: no scripted response for call %d", len(m.Calls))
	}

	step := m.steps[0]
	m.steps = m.steps[1:]
	if step.err != nil {
		return "", step.err
	}
	return step.text, nil
}
