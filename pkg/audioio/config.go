package audioio

import (
	"fmt"
	"time"
)

// Backend names an audio implementation.
type Backend string

const (
	BackendAuto   Backend = "auto"
	BackendDevice Backend = "device"
	BackendMock   Backend = "mock"
)

// Config describes both directions of the audio path.
type Config struct {
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate and Channels describe capture. Recognizers want 16 kHz mono.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`
	Channels   int `yaml:"channels" json:"channels"`

	// BufferDuration is the length of one captured buffer.
	BufferDuration time.Duration `yaml:"buffer_duration" json:"buffer_duration"`

	// PlaybackRate is the earpiece rate; sounds at other rates are resampled.
	PlaybackRate int `yaml:"playback_rate" json:"playback_rate"`

	// Device selects a PortAudio input by name. Empty means the default.
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig captures 16 kHz mono in 64ms buffers and plays at 44.1 kHz.
func DefaultConfig() Config {
	return Config{
		Backend:        BackendAuto,
		SampleRate:     16000,
		Channels:       1,
		BufferDuration: 64 * time.Millisecond,
		PlaybackRate:   44100,
	}
}

func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendDevice, BackendMock:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	for _, f := range []struct {
		name string
		ok   bool
	}{
		{"sample_rate", c.SampleRate > 0},
		{"channels", c.Channels > 0},
		{"buffer_duration", c.BufferDuration > 0},
		{"playback_rate", c.PlaybackRate > 0},
	} {
		if !f.ok {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	return nil
}

// BufferSize is the number of frames in one captured buffer.
func (c *Config) BufferSize() int {
	return int(int64(c.SampleRate) * int64(c.BufferDuration) / int64(time.Second))
}
