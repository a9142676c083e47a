//go:build cgo

package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
)

// resampleQuality is the beep resampler quality (1 to 64).
const resampleQuality = 4

// BeepSink plays audio through the beep speaker.
// The speaker is process wide, so playback is serialized.
type BeepSink struct {
	cfg    Config
	logger *slog.Logger
	rate   beep.SampleRate

	mu     sync.Mutex
	closed bool
}

// newBeepSink initializes the speaker at cfg.PlaybackRate.
func newBeepSink(cfg Config, logger *slog.Logger) (Sink, error) {
	rate := beep.SampleRate(cfg.PlaybackRate)

	var err error
	QuietStderr(func() { err = speaker.Init(rate, rate.N(time.Second/10)) })
	if err != nil {
		return nil, fmt.Errorf("speaker init: %w", err)
	}

	logger.Info("beep sink created", "sample_rate", cfg.PlaybackRate)
	return &BeepSink{cfg: cfg, logger: logger, rate: rate}, nil
}

// Play plays decoded PCM.
func (s *BeepSink) Play(ctx context.Context, sound *Sound) error {
	if sound == nil || sound.Frames() == 0 {
		return nil
	}
	return s.play(ctx, beep.SampleRate(sound.SampleRate), &soundStreamer{sound: sound})
}

// PlayMP3 decodes r on the fly and plays it.
func (s *BeepSink) PlayMP3(ctx context.Context, r io.Reader) error {
	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	streamer, format, err := mp3.Decode(rc)
	if err != nil {
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	if err := s.play(ctx, format.SampleRate, streamer); err != nil {
		return err
	}
	return streamer.Err()
}

func (s *BeepSink) play(ctx context.Context, rate beep.SampleRate, src beep.Streamer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}

	if rate != s.rate {
		src = beep.Resample(resampleQuality, rate, s.rate, src)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(src, beep.Callback(func() {
		close(done)
	})))

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		speaker.Clear()
		return ctx.Err()
	}
}

// Name returns "beep".
func (s *BeepSink) Name() string {
	return "beep"
}

// Close stops playback and releases the speaker.
func (s *BeepSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	speaker.Clear()
	speaker.Close()
	return nil
}

// soundStreamer adapts a Sound to beep.Streamer.
type soundStreamer struct {
	sound *Sound
	pos   int
}

func (st *soundStreamer) Stream(samples [][2]float64) (int, bool) {
	frames := st.sound.Frames()
	ch := st.sound.Channels
	n := 0
	for n < len(samples) && st.pos < frames {
		left := float64(st.sound.Samples[st.pos*ch]) / 32768
		right := left
		if ch > 1 {
			right = float64(st.sound.Samples[st.pos*ch+1]) / 32768
		}
		samples[n] = [2]float64{left, right}
		n++
		st.pos++
	}
	return n, n > 0
}

func (st *soundStreamer) Err() error { return nil }

var _ Sink = (*BeepSink)(nil)
