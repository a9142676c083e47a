package gpio

import (
	"context"
	"sync"
	"time"
)

// Step is one segment of a scripted level sequence.
type Step struct {
	Level bool
	Hold  time.Duration
}

// Mock is a settable input for tests.
type Mock struct {
	*Line

	mu     sync.Mutex
	closed bool
}

// NewMock returns a mock starting at level.
func NewMock(level bool) *Mock {
	return &Mock{Line: NewLine(level)}
}

// Play applies each step in order, holding each level for its duration.
// It returns early when ctx is done.
func (m *Mock) Play(ctx context.Context, steps ...Step) {
	for _, s := range steps {
		m.Set(s.Level)
		if s.Hold <= 0 {
			continue
		}
		select {
		case <-time.After(s.Hold):
		case <-ctx.Done():
			return
		}
	}
}

// Pulses returns the steps of a dial releasing from n: starting with the
// contact closed, n pulses that open it for open and close it for closed,
// then the opening at rest, which the script leaves in place.
func Pulses(n int, open, closed time.Duration) []Step {
	steps := make([]Step, 0, 2*n+1)
	for range n {
		steps = append(steps, Step{Level: false, Hold: open}, Step{Level: true, Hold: closed})
	}
	return append(steps, Step{Level: false})
}

// Close marks the mock closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ Input = (*Mock)(nil)
