package tts

import (
	"context"
	"sync"
)

// Mock is a scripted Provider for tests. NewMock "synthesizes" the text
// itself labelled as MP3, which is enough for sinks that only record what
// they were asked to play.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, voiceID, text string) (*AudioResult, error)
	// StreamFunc falls back to SynthesizeFunc wrapped in a buffer stream.
	StreamFunc func(ctx context.Context, voiceID, text string) (AudioStream, error)
	HealthFunc func(ctx context.Context) error
	CloseFunc  func() error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation.
type MockCall struct {
	Method  string
	VoiceID string
	Text    string
}

func NewMock() *Mock {
	return &Mock{
		SynthesizeFunc: func(_ context.Context, _, text string) (*AudioResult, error) {
			return &AudioResult{Audio: []byte(text), Format: formatFor(EncodingMP3), CharCount: len(text)}, nil
		},
	}
}

// WithError fails every synthesis and health check with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string, string) (*AudioResult, error) { return nil, err },
		StreamFunc:     func(context.Context, string, string) (AudioStream, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

func (m *Mock) Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error) {
	m.record(MockCall{Method: "Synthesize", VoiceID: voiceID, Text: text})
	if m.SynthesizeFunc == nil {
		return nil, WrapError("mock", ErrProviderUnavailable)
	}
	return m.SynthesizeFunc(ctx, voiceID, text)
}

func (m *Mock) Stream(ctx context.Context, voiceID, text string) (AudioStream, error) {
	m.record(MockCall{Method: "Stream", VoiceID: voiceID, Text: text})
	switch {
	case m.StreamFunc != nil:
		return m.StreamFunc(ctx, voiceID, text)
	case m.SynthesizeFunc != nil:
		res, err := m.SynthesizeFunc(ctx, voiceID, text)
		if err != nil {
			return nil, err
		}
		return NewBufferStream(res.Audio, res.Format), nil
	}
	return nil, WrapError("mock", ErrProviderUnavailable)
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

func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
