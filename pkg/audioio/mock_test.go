package audioio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"
)

func TestMockSource_StartStop(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()

	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Starting again should be a no-op
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}
	if src.Starts() != 1 {
		t.Errorf("Expected 1 start, got %d", src.Starts())
	}

	if err := src.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := src.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}

	if _, err := src.Read(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Expected ErrNotRunning after stop, got %v", err)
	}
}

func TestMockSource_ScriptThenSilence(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil, WithScript(Level(10, 500), Level(10, 700)))
	defer src.Close()

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	for _, want := range []float64{500, 700, 0} {
		chunk, err := src.Read(ctx)
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
		if got := RMS(chunk.Samples); got != want {
			t.Errorf("RMS = %v, want %v", got, want)
		}
	}

	if src.Pending() != 0 {
		t.Errorf("Expected empty script, %d pending", src.Pending())
	}
	if src.ChunksRead() != 3 {
		t.Errorf("Expected 3 chunks read, got %d", src.ChunksRead())
	}
}

func TestMockSource_SilenceChunkSize(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil)
	defer src.Close()

	ctx := context.Background()
	src.Start(ctx)

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(chunk.Samples) != cfg.BufferSize() {
		t.Errorf("Expected %d samples, got %d", cfg.BufferSize(), len(chunk.Samples))
	}
	if chunk.SampleRate != cfg.SampleRate {
		t.Errorf("Expected sample rate %d, got %d", cfg.SampleRate, chunk.SampleRate)
	}
}

func TestMockSource_SineWave(t *testing.T) {
	cfg := DefaultConfig()
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
	defer src.Close()

	ctx := context.Background()
	src.Start(ctx)

	chunk, err := src.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	// A 0.5 amplitude sine has RMS near 0.5*32767/sqrt(2)
	if rms := RMS(chunk.Samples); rms < 11000 || rms > 12500 {
		t.Errorf("Unexpected sine RMS %v", rms)
	}
}

func TestMockSource_Paced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BufferDuration = 10 * time.Millisecond
	src := NewMockSource(cfg, nil, WithPacing(true))
	defer src.Close()

	ctx := context.Background()
	src.Start(ctx)

	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := src.Read(ctx); err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Paced reads returned after %v", elapsed)
	}
}

func TestMockSource_Close(t *testing.T) {
	src := NewMockSource(DefaultConfig(), nil)

	ctx := context.Background()
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := src.Start(ctx); err != io.ErrClosedPipe {
		t.Errorf("Expected ErrClosedPipe after close, got: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Second Close failed: %v", err)
	}
}

func TestMockSink_Records(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	defer sink.Close()

	ctx := context.Background()
	tone := &Sound{Samples: make([]int16, 200), SampleRate: 44100, Channels: 2}

	if err := sink.Play(ctx, tone); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if err := sink.PlayMP3(ctx, strings.NewReader("ID3fake")); err != nil {
		t.Fatalf("PlayMP3 failed: %v", err)
	}

	plays := sink.Plays()
	if len(plays) != 2 {
		t.Fatalf("Expected 2 plays, got %d", len(plays))
	}
	if plays[0].Sound != tone {
		t.Error("First play should be the tone")
	}
	if !bytes.Equal(plays[1].MP3, []byte("ID3fake")) {
		t.Errorf("Unexpected mp3 bytes %q", plays[1].MP3)
	}

	sink.Reset()
	if len(sink.Plays()) != 0 {
		t.Error("Reset should clear plays")
	}
}

func TestMockSink_PlayFuncError(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	boom := errors.New("speaker unplugged")
	sink.PlayFunc = func(ctx context.Context, p MockPlay) error { return boom }

	if err := sink.Play(context.Background(), &Sound{}); !errors.Is(err, boom) {
		t.Errorf("Expected PlayFunc error, got %v", err)
	}
	if len(sink.Plays()) != 0 {
		t.Error("Failed plays should not be recorded")
	}
}

func TestMockSink_Closed(t *testing.T) {
	sink := NewMockSink(DefaultConfig(), nil)
	sink.Close()
	if err := sink.Play(context.Background(), &Sound{}); err != io.ErrClosedPipe {
		t.Errorf("Expected ErrClosedPipe, got %v", err)
	}
}

func TestFactory_Mock(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendMock

	src, err := NewSource(cfg, nil)
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	defer src.Close()
	if src.Name() != "mock" {
		t.Errorf("Expected mock source, got %s", src.Name())
	}

	sink, err := NewSink(cfg, nil)
	if err != nil {
		t.Fatalf("NewSink failed: %v", err)
	}
	defer sink.Close()
	if sink.Name() != "mock" {
		t.Errorf("Expected mock sink, got %s", sink.Name())
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad backend", func(c *Config) { c.Backend = "alsa" }, true},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"zero buffer", func(c *Config) { c.BufferDuration = 0 }, true},
		{"zero playback", func(c *Config) { c.PlaybackRate = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_BufferSize(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BufferSize() != 1024 {
		t.Errorf("Expected 1024 frames, got %d", cfg.BufferSize())
	}
	cfg.SampleRate = 44100
	cfg.BufferDuration = 10 * time.Millisecond
	if cfg.BufferSize() != 441 {
		t.Errorf("Expected 441 frames, got %d", cfg.BufferSize())
	}
}
