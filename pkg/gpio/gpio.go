// Package gpio exposes the hook switch and rotary dial as blocking digital inputs.
//
// Both switches are wired to pins with pull-down resistors, so "active" means
// the pin reads high. For the hook switch active means the handset is lifted;
// for the dial it means the pulse contact is closed.
//
// Backends:
//   - rpio: memory-mapped BCM GPIO on a Raspberry Pi (Linux only)
//   - none: fixed levels for hosts without hardware
//   - mock: a settable Line for tests
package gpio

import (
	"context"
	"sync"
	"time"
)

// Input is a single digital input.
type Input interface {
	// Value returns true when the input is active.
	Value() bool

	// WaitForActive blocks until the input is active. A zero timeout waits
	// forever. The boolean is false when the timeout elapsed first. An error
	// is returned only when ctx is done.
	WaitForActive(ctx context.Context, timeout time.Duration) (bool, error)

	// WaitForInactive is WaitForActive for the inactive level.
	WaitForInactive(ctx context.Context, timeout time.Duration) (bool, error)

	// Close releases the input.
	Close() error
}

// Line holds a level and wakes waiters when it changes.
// The zero value is an inactive line ready for use.
type Line struct {
	mu      sync.Mutex
	level   bool
	changed chan struct{}
}

// NewLine returns a line starting at level.
func NewLine(level bool) *Line {
	return &Line{level: level}
}

// Value returns the current level.
func (l *Line) Value() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// Set changes the level and wakes every waiter.
func (l *Line) Set(level bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.level == level {
		return
	}
	l.level = level
	if l.changed != nil {
		close(l.changed)
		l.changed = nil
	}
}

// WaitForActive implements Input.
func (l *Line) WaitForActive(ctx context.Context, timeout time.Duration) (bool, error) {
	return l.wait(ctx, timeout, true)
}

// WaitForInactive implements Input.
func (l *Line) WaitForInactive(ctx context.Context, timeout time.Duration) (bool, error) {
	return l.wait(ctx, timeout, false)
}

// Close implements Input. A line holds no resources.
func (l *Line) Close() error { return nil }

func (l *Line) wait(ctx context.Context, timeout time.Duration, want bool) (bool, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}

	for {
		l.mu.Lock()
		if l.level == want {
			l.mu.Unlock()
			return true, nil
		}
		if l.changed == nil {
			l.changed = make(chan struct{})
		}
		ch := l.changed
		l.mu.Unlock()

		select {
		case <-ch:
		case <-expired:
			return false, nil
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}

// Pins groups the two phone inputs.
type Pins struct {
	Hook Input
	Dial Input
	// Backend is the backend that actually serves the pins, after any
	// fallback from auto.
	Backend Backend
}

// OffHook reports whether the handset is lifted. A nil hook counts as lifted.
func (p *Pins) OffHook() bool {
	if p == nil || p.Hook == nil {
		return true
	}
	return p.Hook.Value()
}

// Close closes both inputs.
func (p *Pins) Close() error {
	if p == nil {
		return nil
	}
	var first error
	for _, in := range []Input{p.Hook, p.Dial} {
		if in == nil {
			continue
		}
		if err := in.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Compile-time interface check
var _ Input = (*Line)(nil)
