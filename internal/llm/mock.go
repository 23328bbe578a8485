package llm

import (
	"context"
	"sync"
)

// MockProvider returns scripted completions. The zero value replies with a
// minimal valid plan; tests usually seed Responses or Fn.
type MockProvider struct {
	mu sync.Mutex

	// Responses are returned in order; when exhausted the provider falls
	// back to Fn, then to the default canned plan.
	Responses []string

	// Fn, when set, computes the completion from the request.
	Fn func(req Request) (string, error)

	// Err, when set, fails every call.
	Err error

	// Requests records every request for assertion.
	Requests []Request
}

// NewMockProvider creates an empty mock provider.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// defaultMockCompletion is a minimal valid single-step plan.
const defaultMockCompletion = `{"steps":[{"tool":"message.send","args":{"content":"(mock) Hello! I'm running without a language model."},"reason":"mock completion"}],"reasoning":"mock provider"}`

// Name implements Provider.
func (p *MockProvider) Name() string { return "mock" }

// Complete implements Provider.
func (p *MockProvider) Complete(_ context.Context, req Request) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Requests = append(p.Requests, req)

	if p.Err != nil {
		return nil, p.Err
	}
	if len(p.Responses) > 0 {
		text := p.Responses[0]
		p.Responses = p.Responses[1:]
		return &Response{Text: text}, nil
	}
	if p.Fn != nil {
		text, err := p.Fn(req)
		if err != nil {
			return nil, err
		}
		return &Response{Text: text}, nil
	}
	return &Response{Text: defaultMockCompletion}, nil
}
