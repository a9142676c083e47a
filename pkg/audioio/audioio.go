// Package audioio is the handset's audio path: microphone capture and
// earpiece playback.
//
// Two backends exist. "device" captures through PortAudio and plays through
// beep, and needs cgo. "mock" scripts capture and records playback, for
// tests and for hosts with no sound card. "auto" picks device when it was
// compiled in.
package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrNotRunning is returned by Read when the source has not been started.
var ErrNotRunning = errors.New("audioio: source not running")

// AudioChunk is one buffer of captured mono or interleaved PCM16.
type AudioChunk struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// Bytes returns the chunk as little-endian PCM16.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// Seconds is the playing time of the chunk.
func (c *AudioChunk) Seconds() float64 {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate*c.Channels)
}

// Source is the handset microphone.
type Source interface {
	// Start begins capture. Starting a running source does nothing.
	Start(ctx context.Context) error
	// Stop halts capture and drops anything buffered. It may be called
	// repeatedly.
	Stop() error
	// Read blocks until the next buffer has been captured.
	Read(ctx context.Context) (AudioChunk, error)
	Config() Config
	Name() string
	io.Closer
}

// Sink is the handset earpiece. Both play methods block until playback
// ends or ctx is done; a cancelled play silences the earpiece before it
// returns.
type Sink interface {
	Play(ctx context.Context, sound *Sound) error
	// PlayMP3 decodes and plays an MP3 stream as it arrives.
	PlayMP3(ctx context.Context, r io.Reader) error
	Name() string
	io.Closer
}

// NewSource opens the microphone for cfg.Backend.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	backend, logger, err := prepare(cfg, logger, "audioio.source")
	if err != nil {
		return nil, err
	}
	logger.Info("opening audio source",
		"backend", backend,
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"buffer", cfg.BufferDuration,
	)
	if backend == BackendMock {
		return NewMockSource(cfg, logger, WithPacing(true)), nil
	}
	return newPortAudioSource(cfg, logger)
}

// NewSink opens the earpiece for cfg.Backend.
func NewSink(cfg Config, logger *slog.Logger) (Sink, error) {
	backend, logger, err := prepare(cfg, logger, "audioio.sink")
	if err != nil {
		return nil, err
	}
	logger.Info("opening audio sink", "backend", backend, "playback_rate", cfg.PlaybackRate)
	if backend == BackendMock {
		return NewMockSink(cfg, logger), nil
	}
	return newBeepSink(cfg, logger)
}

func prepare(cfg Config, logger *slog.Logger, component string) (Backend, *slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return "", nil, fmt.Errorf("audioio: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	backend := cfg.Backend
	if backend == BackendAuto {
		backend = BackendMock
		if deviceAvailable {
			backend = BackendDevice
		}
	}
	return backend, logger.With("component", component), nil
}
