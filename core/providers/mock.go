package providers

import (
	"context"
	"sync"
)

// MockProvider replays scripted responses and records every request.
type MockProvider struct {
	mu       sync.Mutex
	steps    []mockStep
	requests []Request

	// Handler, when set, answers requests once the script is exhausted.
	Handler func(req *Request) (*Response, error)
}

type mockStep struct {
	resp *Response
	err  error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// QueueText scripts a plain text reply.
func (m *MockProvider) QueueText(text string) *MockProvider {
	return m.QueueResponse(&Response{Content: text, StopReason: StopReasonEndTurn})
}

// QueueToolCall scripts a reply that requests one tool call.
func (m *MockProvider) QueueToolCall(id, name, arguments string) *MockProvider {
	return m.QueueResponse(&Response{
		StopReason: StopReasonToolUse,
		ToolCalls:  []ToolCall{{ID: id, Name: name, Arguments: arguments}},
	})
}

func (m *MockProvider) QueueResponse(resp *Response) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{resp: resp})
	return m
}

func (m *MockProvider) QueueError(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps = append(m.steps, mockStep{err: err})
	return m
}

func (m *MockProvider) Name() string { return string(ProviderTypeMock) }

func (m *MockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.requests = append(m.requests, cloneRequest(req))
	if len(m.steps) > 0 {
		step := m.steps[0]
		m.steps = m.steps[1:]
		m.mu.Unlock()
		return step.resp, step.err
	}
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		return handler(req)
	}
	return &Response{StopReason: StopReasonEndTurn}, nil
}

func cloneRequest(req *Request) Request {
	c := *req
	c.Messages = append([]Message(nil), req.Messages...)
	c.Tools = append([]Tool(nil), req.Tools...)
	return c
}

func (m *MockProvider) ValidateConfig() error           { return nil }
func (m *MockProvider) SupportsModel(model string) bool { return true }
func (m *MockProvider) DefaultModel() string            { return "mock-model" }
func (m *MockProvider) Close() error                    { return nil }

// Requests returns copies of every request received.
func (m *MockProvider) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Pending reports how many scripted steps are left.
func (m *MockProvider) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.steps)
}
