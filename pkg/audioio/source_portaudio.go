//go:build cgo

package audioio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// deviceAvailable reports whether the device backend is compiled in.
const deviceAvailable = true

// PortAudioSource captures audio through PortAudio.
type PortAudioSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	buf     []int16
	running bool
	closed  bool
}

// newPortAudioSource initializes PortAudio. The stream itself is opened by Start.
func newPortAudioSource(cfg Config, logger *slog.Logger) (Source, error) {
	var err error
	QuietStderr(func() { err = portaudio.Initialize() })
	if err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}

	s := &PortAudioSource{
		cfg:    cfg,
		logger: logger,
		buf:    make([]int16, cfg.BufferSize()*cfg.Channels),
	}

	logger.Info("portaudio source created",
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"device", cfg.Device,
	)
	return s, nil
}

// Start opens and starts the input stream.
func (s *PortAudioSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	var (
		stream *portaudio.Stream
		err    error
	)
	QuietStderr(func() { stream, err = s.open() })
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("start input stream: %w", err)
	}

	s.stream = stream
	s.running = true
	return nil
}

func (s *PortAudioSource) open() (*portaudio.Stream, error) {
	frames := s.cfg.BufferSize()
	if s.cfg.Device == "" {
		return portaudio.OpenDefaultStream(s.cfg.Channels, 0, float64(s.cfg.SampleRate), frames, s.buf)
	}

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name != s.cfg.Device || dev.MaxInputChannels < s.cfg.Channels {
			continue
		}
		params := portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   dev,
				Channels: s.cfg.Channels,
				Latency:  dev.DefaultLowInputLatency,
			},
			SampleRate:      float64(s.cfg.SampleRate),
			FramesPerBuffer: frames,
		}
		return portaudio.OpenStream(params, s.buf)
	}
	return nil, fmt.Errorf("input device %q not found", s.cfg.Device)
}

// Stop stops and closes the input stream.
func (s *PortAudioSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	stream := s.stream
	s.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	return stream.Close()
}

// Read blocks until one buffer has been captured. Input overflows are logged
// and the buffer is returned anyway.
func (s *PortAudioSource) Read(ctx context.Context) (AudioChunk, error) {
	if err := ctx.Err(); err != nil {
		return AudioChunk{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return AudioChunk{}, io.EOF
	}
	if !s.running {
		return AudioChunk{}, ErrNotRunning
	}

	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return AudioChunk{}, fmt.Errorf("read input stream: %w", err)
		}
		s.logger.Debug("portaudio input overflowed")
	}

	samples := Downmix(slices.Clone(s.buf), s.cfg.Channels)
	return AudioChunk{
		Samples:    samples,
		SampleRate: s.cfg.SampleRate,
		Channels:   1,
	}, nil
}

// Config returns the audio configuration.
func (s *PortAudioSource) Config() Config {
	return s.cfg
}

// Name returns "portaudio".
func (s *PortAudioSource) Name() string {
	return "portaudio"
}

// Close stops capture and terminates PortAudio.
func (s *PortAudioSource) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return portaudio.Terminate()
}

var _ Source = (*PortAudioSource)(nil)
