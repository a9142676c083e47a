package inference

import (
	"context"
	"sync"
)

// Mock is a scripted Provider for tests. Every call is recorded; Chat
// calls keep a copy of the messages so tests can check what a character
// was told.
type Mock struct {
	ChatFunc   func(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation. Messages is set for Chat only.
type MockCall struct {
	Method   string
	Messages []Message
}

// NewMock answers every request with "Mock response".
func NewMock() *Mock {
	return WithReplies("Mock response")
}

// WithReplies answers with replies in order, repeating the last one.
// With no replies it answers with an empty message.
func WithReplies(replies ...string) *Mock {
	m := &Mock{}
	next := 0
	m.ChatFunc = func(context.Context, *ChatRequest) (*ChatResponse, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		var reply string
		if len(replies) > 0 {
			reply = replies[min(next, len(replies)-1)]
			next++
		}
		return &ChatResponse{
			Message:      NewAssistantMessage(reply),
			FinishReason: "stop",
			Usage:        Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		}, nil
	}
	return m
}

// WithError fails Chat and Health with err.
func WithError(err error) *Mock {
	return &Mock{
		ChatFunc:   func(context.Context, *ChatRequest) (*ChatResponse, error) { return nil, err },
		HealthFunc: func(context.Context) error { return err },
	}
}

func (m *Mock) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	call := MockCall{Method: "Chat"}
	if req != nil {
		call.Messages = append([]Message(nil), req.Messages...)
	}
	m.record(call)
	if m.ChatFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m.ChatFunc(ctx, req)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record(MockCall{Method: "Health"})
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	if m.CloseFunc == nil {
		return nil
	}
	return m.CloseFunc()
}

func (m *Mock) record(call MockCall) {
	m.mu.Lock()
	m.calls = append(m.calls, call)
	m.mu.Unlock()
}

// Calls returns a copy of the recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount counts the recorded calls of method.
func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent call, or nil.
func (m *Mock) LastCall() *MockCall {
	calls := m.Calls()
	if len(calls) == 0 {
		return nil
	}
	return &calls[len(calls)-1]
}

// Reset forgets the recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
