// Package rotary decodes digits from a rotary dial's pulse contact.
//
// The contact closes when the dial leaves rest. While it winds back it
// opens and closes once per unit, one pulse for 1 and ten for 0, then opens
// for good when it comes to rest. That final opening ends the digit.
package rotary

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rotary/pkg/gpio"
)

// Default pulse timings for a standard 10 pulse-per-second dial.
const (
	DefaultSettle    = 10 * time.Millisecond
	DefaultGap       = 100 * time.Millisecond
	DefaultPulseWait = time.Second
)

// Decoder counts pulses on a dial input.
type Decoder struct {
	Dial gpio.Input

	// Settle is slept after each opening to ride out contact bounce.
	Settle time.Duration
	// Gap is the longest open period still treated as part of the train.
	Gap time.Duration
	// PulseWait bounds the wait for the contact to close again.
	PulseWait time.Duration

	Logger *slog.Logger
}

// NewDecoder returns a decoder with the default timings.
func NewDecoder(dial gpio.Input, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{
		Dial:      dial,
		Settle:    DefaultSettle,
		Gap:       DefaultGap,
		PulseWait: DefaultPulseWait,
		Logger:    logger.With("component", "rotary"),
	}
}

// WaitForDial blocks until the dial contact closes, which marks the start of
// a digit. It returns false when timeout elapses first.
func (d *Decoder) WaitForDial(ctx context.Context, timeout time.Duration) (bool, error) {
	return d.Dial.WaitForActive(ctx, timeout)
}

// ReadDigit counts one pulse train. The contact must be closed on entry.
// A pulse is an opening that closes again within Gap; the last opening,
// when the dial comes to rest, is not one. Ten pulses decode to 0. Longer
// trains return the raw count, which no role is assigned to.
func (d *Decoder) ReadDigit(ctx context.Context) (int, error) {
	pulses := 0
	for {
		if _, err := d.Dial.WaitForInactive(ctx, 0); err != nil {
			return 0, err
		}
		if err := sleep(ctx, d.Settle); err != nil {
			return 0, err
		}

		start := time.Now()
		closed, err := d.Dial.WaitForActive(ctx, d.PulseWait)
		if err != nil {
			return 0, err
		}
		if !closed || time.Since(start) > d.Gap {
			break
		}
		pulses++
	}

	digit := Digit(pulses)
	if d.Logger != nil {
		d.Logger.Debug("pulse train decoded", "pulses", pulses, "digit", digit)
	}
	return digit, nil
}

// Digit maps a pulse count to the dialed digit.
func Digit(pulses int) int {
	if pulses == 10 {
		return 0
	}
	return pulses
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
