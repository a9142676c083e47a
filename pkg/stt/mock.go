package stt

import (
	"context"
	"sync"

	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// Mock implements Recognizer for testing.
type Mock struct {
	// TranscribeFunc is called when Transcribe is invoked.
	// If nil, returns an empty transcription.
	TranscribeFunc func(ctx context.Context, clip *audioio.Clip) (string, error)

	mu    sync.Mutex
	calls []*audioio.Clip
}

// NewMock returns a mock that answers each call with the next result in
// order and repeats the last one when exhausted. A result is a string or an error.
func NewMock(results ...any) *Mock {
	m := &Mock{}
	var i int
	m.TranscribeFunc = func(ctx context.Context, clip *audioio.Clip) (string, error) {
		if len(results) == 0 {
			return "", nil
		}
		r := results[min(i, len(results)-1)]
		i++
		switch v := r.(type) {
		case error:
			return "", v
		case string:
			return v, nil
		default:
			return "", nil
		}
	}
	return m
}

// Transcribe calls TranscribeFunc and records the call.
func (m *Mock) Transcribe(ctx context.Context, clip *audioio.Clip) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, clip)
	fn := m.TranscribeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, clip)
	}
	return "", nil
}

// Name returns "mock".
func (m *Mock) Name() string {
	return "mock"
}

// CallCount returns the number of Transcribe calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastClip returns the most recent clip, or nil if none.
func (m *Mock) LastClip() *audioio.Clip {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Unavailable returns an error classified as ErrUnavailable, for tests.
func Unavailable(cause error) error {
	return unavailable("mock", cause)
}

// Ambiguous returns an error classified as ErrAmbiguous, for tests.
func Ambiguous() error {
	return ambiguous("mock")
}

var _ Recognizer = (*Mock)(nil)
