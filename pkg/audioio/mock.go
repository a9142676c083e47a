package audioio

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// MockSource is a mock audio source for testing.
// It returns scripted chunks first, then synthetic audio (silence or sine wave).
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	script  [][]int16
	paced   bool

	// Stats
	chunksRead atomic.Int64
	starts     atomic.Int64

	// Synthetic audio generation
	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64 // 0.0 to 1.0
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// WithScript queues chunks returned before synthetic audio.
func WithScript(chunks ...[]int16) MockSourceOption {
	return func(m *MockSource) {
		m.script = append(m.script, chunks...)
	}
}

// WithPacing makes Read wait one buffer duration per chunk, like a device.
func WithPacing(paced bool) MockSourceOption {
	return func(m *MockSource) {
		m.paced = paced
	}
}

// NewMockSource creates a new mock audio source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}

	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		frequency: 0, // Silence by default
		amplitude: 0.5,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Queue appends chunks to the script.
func (m *MockSource) Queue(chunks ...[]int16) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, chunks...)
}

// Pending returns the number of scripted chunks not yet read.
func (m *MockSource) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.script)
}

// Start begins capture.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if !m.running {
		m.running = true
		m.starts.Add(1)
	}
	return nil
}

// Stop halts capture. The script is kept.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	return nil
}

// Read returns the next scripted or synthetic chunk.
func (m *MockSource) Read(ctx context.Context) (AudioChunk, error) {
	if err := ctx.Err(); err != nil {
		return AudioChunk{}, err
	}

	m.mu.Lock()
	paced := m.paced
	m.mu.Unlock()
	if paced {
		t := time.NewTimer(m.cfg.BufferDuration)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return AudioChunk{}, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return AudioChunk{}, io.EOF
	}
	if !m.running {
		return AudioChunk{}, ErrNotRunning
	}

	var samples []int16
	if len(m.script) > 0 {
		samples = m.script[0]
		m.script = m.script[1:]
	} else {
		samples = m.generate()
	}
	m.chunksRead.Add(1)

	return AudioChunk{
		Samples:    samples,
		SampleRate: m.cfg.SampleRate,
		Channels:   1,
	}, nil
}

func (m *MockSource) generate() []int16 {
	samples := make([]int16, m.cfg.BufferSize())
	if m.frequency == 0 {
		return samples
	}
	step := 2 * math.Pi * m.frequency / float64(m.cfg.SampleRate)
	for i := range samples {
		samples[i] = int16(math.Sin(m.phase) * m.amplitude * 32767)
		m.phase += step
	}
	m.phase = math.Mod(m.phase, 2*math.Pi)
	return samples
}

// ChunksRead returns how many chunks were read.
func (m *MockSource) ChunksRead() int64 {
	return m.chunksRead.Load()
}

// Starts returns how many times capture was started.
func (m *MockSource) Starts() int64 {
	return m.starts.Load()
}

// Config returns the audio configuration.
func (m *MockSource) Config() Config {
	return m.cfg
}

// Name returns "mock".
func (m *MockSource) Name() string {
	return "mock"
}

// Close releases resources.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.running = false
	return nil
}

var _ Source = (*MockSource)(nil)

// Level returns a chunk of n samples whose RMS is level.
func Level(n int, level int16) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		if i%2 == 0 {
			samples[i] = level
		} else {
			samples[i] = -level
		}
	}
	return samples
}

// MockPlay records one playback.
type MockPlay struct {
	Sound *Sound // set by Play
	MP3   []byte // set by PlayMP3
}

// MockSink records playback instead of producing sound.
type MockSink struct {
	cfg    Config
	logger *slog.Logger

	// PlayFunc, when set, runs for every playback. Returning an error fails it.
	PlayFunc func(ctx context.Context, p MockPlay) error

	mu     sync.Mutex
	plays  []MockPlay
	closed bool
}

// NewMockSink creates a new mock sink.
func NewMockSink(cfg Config, logger *slog.Logger) *MockSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MockSink{cfg: cfg, logger: logger}
}

// Play records sound.
func (m *MockSink) Play(ctx context.Context, sound *Sound) error {
	return m.record(ctx, MockPlay{Sound: sound})
}

// PlayMP3 drains r and records its bytes.
func (m *MockSink) PlayMP3(ctx context.Context, r io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	return m.record(ctx, MockPlay{MP3: buf.Bytes()})
}

func (m *MockSink) record(ctx context.Context, p MockPlay) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return io.ErrClosedPipe
	}
	fn := m.PlayFunc
	m.mu.Unlock()

	if fn != nil {
		if err := fn(ctx, p); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.plays = append(m.plays, p)
	m.mu.Unlock()
	return nil
}

// Plays returns a copy of the recorded playbacks.
func (m *MockSink) Plays() []MockPlay {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockPlay, len(m.plays))
	copy(out, m.plays)
	return out
}

// Reset clears recorded playbacks.
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays = nil
}

// Name returns "mock".
func (m *MockSink) Name() string {
	return "mock"
}

// Close marks the sink closed.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

var _ Sink = (*MockSink)(nil)
