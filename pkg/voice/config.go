package voice

import (
	"errors"
	"time"
)

type Config struct {
	// Enabled false makes Speak log the line instead of saying it and
	// PlayTone a no-op.
	Enabled bool

	// Timeout caps one utterance, synthesis through playback. Zero leaves
	// only the caller's context.
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{Enabled: true, Timeout: 2 * time.Minute}
}

func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return errors.New("voice: negative timeout")
	}
	return nil
}

// WithEnabled returns a copy with speech switched on or off.
func (c Config) WithEnabled(on bool) Config {
	c.Enabled = on
	return c
}
