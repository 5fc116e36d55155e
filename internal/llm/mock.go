package llm

import (
	"context"
	"sync"
)

// MockClient is a configurable LLM client for testing.
// Set Response/Error to control what Complete returns, or Responder for per-call answers.
type MockClient struct {
	Response  string
	Error     error
	Responder func(system, user string) (string, error)

	mu    sync.Mutex
	Calls []MockCall
}

// MockCall records the arguments of one Complete call.
type MockCall struct {
	System string
	User   string
}

const defaultMockResponse = `{"agent_score": 7.0, "reasoning": "mock analysis"}`

func NewMockClient() *MockClient {
	return &MockClient{Response: defaultMockResponse}
}

func (c *MockClient) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.Calls = append(c.Calls, MockCall{System: system, User: user})
	responder, resp, err := c.Responder, c.Response, c.Error
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if responder != nil {
		return responder(system, user)
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

// CallCount returns the number of recorded calls.
func (c *MockClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

// Reset clears all recorded calls and resets responses to defaults.
func (c *MockClient) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Response = defaultMockResponse
	c.Error = nil
	c.Responder = nil
	c.Calls = nil
}
