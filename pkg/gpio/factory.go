package gpio

import (
	"fmt"
	"log/slog"
	"runtime"
	"time"
)

// Backend selects the GPIO implementation.
type Backend string

const (
	BackendAuto Backend = "auto"
	BackendRPIO Backend = "rpio"
	BackendNone Backend = "none"
)

// Config holds pin assignments.
type Config struct {
	Backend      Backend
	HookPin      int
	DialPin      int
	PollInterval time.Duration
}

// DefaultConfig returns the wiring used by the phone: hook on BCM 14, dial on BCM 15.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendAuto,
		HookPin:      14,
		DialPin:      15,
		PollInterval: DefaultPollInterval,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendRPIO, BackendNone:
	default:
		return fmt.Errorf("unsupported gpio backend: %s", c.Backend)
	}
	if c.HookPin < 0 || c.HookPin > 27 || c.DialPin < 0 || c.DialPin > 27 {
		return fmt.Errorf("pins must be BCM 0-27 (hook=%d dial=%d)", c.HookPin, c.DialPin)
	}
	if c.HookPin == c.DialPin {
		return fmt.Errorf("hook and dial share pin %d", c.HookPin)
	}
	return nil
}

// Open returns the hook and dial inputs for cfg. With BackendAuto the rpio
// backend is tried on Linux and the none backend is used when it fails.
func Open(cfg Config, logger *slog.Logger) (*Pins, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "gpio")

	backend := cfg.Backend
	if backend == BackendAuto {
		backend = BackendNone
		if runtime.GOOS == "linux" {
			backend = BackendRPIO
		}
	}

	if backend == BackendRPIO {
		pins, err := openPins(cfg)
		if err == nil {
			logger.Info("gpio ready", "backend", backend, "hook_pin", cfg.HookPin, "dial_pin", cfg.DialPin)
			return pins, nil
		}
		if cfg.Backend == BackendRPIO {
			return nil, err
		}
		logger.Warn("gpio unavailable, using fixed levels", "error", err)
	}

	logger.Info("gpio ready", "backend", BackendNone)
	return None(), nil
}

func openPins(cfg Config) (*Pins, error) {
	hook, err := openRPIO(cfg.HookPin, cfg)
	if err != nil {
		return nil, err
	}
	dial, err := openRPIO(cfg.DialPin, cfg)
	if err != nil {
		hook.Close()
		return nil, err
	}
	return &Pins{Hook: hook, Dial: dial, Backend: BackendRPIO}, nil
}

// None returns inputs for a phone without hardware: the handset is always
// lifted and the dial never moves.
func None() *Pins {
	return &Pins{Hook: NewLine(true), Dial: NewLine(false), Backend: BackendNone}
}
