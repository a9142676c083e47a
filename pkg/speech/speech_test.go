package speech_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/speech"
	"github.com/teslashibe/go-rotary/pkg/stt"
)

// With the default 1024-frame buffers at 16kHz each chunk is 64ms, so the
// detector keeps 8 buffers of pre-roll, ends a phrase after 14 quiet buffers
// and needs 5 loud buffers for a phrase to count.
const frames = 1024

func chunks(n int, level int16) [][]int16 {
	out := make([][]int16, n)
	for i := range out {
		out[i] = audioio.Level(frames, level)
	}
	return out
}

func script(parts ...[][]int16) [][]int16 {
	var out [][]int16
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func newListener(src audioio.Source) *speech.Listener {
	return speech.NewListener(src, speech.DefaultListenerConfig(), nil)
}

func TestListenTimeout(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	l := newListener(src)

	_, err := l.Listen(context.Background(), time.Second, 5*time.Second)
	if !errors.Is(err, speech.ErrSpeechTimeout) {
		t.Fatalf("expected ErrSpeechTimeout, got %v", err)
	}
	if src.ChunksRead() != 16 {
		t.Errorf("expected 16 buffers before timing out, got %d", src.ChunksRead())
	}
}

func TestListenCapturesPhrase(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil,
		audioio.WithScript(script(chunks(3, 0), chunks(10, 500))...))
	l := newListener(src)

	clip, err := l.Listen(context.Background(), 10*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	// 3 pre-roll + 10 speech + 8 kept of 14 trailing quiet buffers
	if want := 21 * frames; len(clip.Samples) != want {
		t.Errorf("clip has %d samples, want %d", len(clip.Samples), want)
	}
	if clip.SampleRate != 16000 {
		t.Errorf("clip rate = %d", clip.SampleRate)
	}
	if src.Starts() != 1 {
		t.Errorf("expected one capture start, got %d", src.Starts())
	}
}

func TestListenPhraseLimit(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil, audioio.WithSineWave(300, 0.5))
	l := newListener(src)

	clip, err := l.Listen(context.Background(), time.Second, 2*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if want := 32 * frames; len(clip.Samples) != want {
		t.Errorf("clip has %d samples, want %d", len(clip.Samples), want)
	}
}

func TestListenDiscardsShortBurst(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil,
		audioio.WithScript(script(chunks(2, 900), chunks(20, 0), chunks(10, 500))...))
	l := newListener(src)

	clip, err := l.Listen(context.Background(), 10*time.Second, 5*time.Second)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	if want := 24 * frames; len(clip.Samples) != want {
		t.Errorf("clip has %d samples, want %d", len(clip.Samples), want)
	}
	for _, s := range clip.Samples {
		if s == 900 || s == -900 {
			t.Fatal("clip contains the discarded burst")
		}
	}
}

func TestListenCancelled(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	l := newListener(src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := l.Listen(ctx, time.Second, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCalibrateFollowsAmbientNoise(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil, audioio.WithScript(chunks(40, 100)...))
	l := newListener(src)

	threshold, err := l.Calibrate(context.Background(), 2*time.Second)
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	// Converges toward 1.5x the ambient RMS of 100.
	if threshold < 140 || threshold > 150 {
		t.Errorf("threshold = %v, want close to 150", threshold)
	}
	if l.Threshold() != threshold {
		t.Error("Calibrate did not store the threshold")
	}
}

func TestDynamicThresholdAdaptsWhileWaiting(t *testing.T) {
	cfg := speech.DefaultListenerConfig()
	cfg.Dynamic = true
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil, audioio.WithScript(chunks(40, 30)...))
	l := speech.NewListener(src, cfg, nil)

	if _, err := l.Listen(context.Background(), time.Second, time.Second); !errors.Is(err, speech.ErrSpeechTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	// Quiet buffers pull the threshold from 40 toward 1.5x their RMS of 30.
	if got := l.Threshold(); got <= 43 || got >= 45 {
		t.Errorf("threshold = %v, want between 43 and 45", got)
	}
}

func newBridge(src *audioio.MockSource, rec stt.Recognizer) *speech.Bridge {
	cfg := speech.DefaultBridgeConfig()
	cfg.CaptureBackoff = 0
	return speech.NewBridge(newListener(src), rec, cfg, nil)
}

func phrase() [][]int16 {
	return chunks(8, 600)
}

func TestHearOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		audio  [][]int16
		result any
		want   speech.Outcome
		text   string
	}{
		{"text", phrase(), "Alice", speech.OutcomeText, "Alice"},
		{"empty", phrase(), "", speech.OutcomeEmpty, ""},
		{"ambiguous", phrase(), stt.Ambiguous(), speech.OutcomeAmbiguous, ""},
		{"unavailable", phrase(), stt.Unavailable(errors.New("dns failure")), speech.OutcomeUnavailable, ""},
		{"timeout", nil, "never", speech.OutcomeTimeout, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := audioio.NewMockSource(audioio.DefaultConfig(), nil, audioio.WithScript(tt.audio...))
			rec := stt.NewMock(tt.result)
			res := newBridge(src, rec).Hear(context.Background(), time.Second, 5*time.Second)

			if res.Outcome != tt.want {
				t.Fatalf("outcome = %v, want %v (err %v)", res.Outcome, tt.want, res.Err)
			}
			if res.Text != tt.text {
				t.Errorf("text = %q, want %q", res.Text, tt.text)
			}
			if tt.want == speech.OutcomeTimeout && rec.CallCount() != 0 {
				t.Error("recognizer called after timeout")
			}
			if tt.want != speech.OutcomeTimeout && res.Audio <= 0 {
				t.Error("expected captured audio duration")
			}
		})
	}
}

func TestHearCaptureFailure(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	src.Close()
	res := newBridge(src, stt.NewMock("x")).Hear(context.Background(), time.Second, time.Second)
	if res.Outcome != speech.OutcomeUnavailable {
		t.Fatalf("outcome = %v, want unavailable", res.Outcome)
	}
}

func TestHearCancelled(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := newBridge(src, stt.NewMock("x")).Hear(ctx, time.Second, time.Second)
	if res.Outcome != speech.OutcomeCancelled {
		t.Fatalf("outcome = %v, want cancelled", res.Outcome)
	}
}

func TestBridgeCalibrateFixed(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil)
	l := newListener(src)
	l.SetThreshold(999)

	b := speech.NewBridge(l, stt.NewMock(), speech.DefaultBridgeConfig(), nil)
	got, err := b.Calibrate(context.Background())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if got != 40 || l.Threshold() != 40 {
		t.Errorf("threshold = %v / %v, want 40", got, l.Threshold())
	}
	if src.ChunksRead() != 0 {
		t.Error("fixed calibration should not read audio")
	}
}

func TestBridgeCalibrateDynamic(t *testing.T) {
	src := audioio.NewMockSource(audioio.DefaultConfig(), nil, audioio.WithScript(chunks(40, 200)...))
	cfg := speech.DefaultBridgeConfig()
	cfg.Dynamic = true
	b := speech.NewBridge(newListener(src), stt.NewMock(), cfg, nil)

	got, err := b.Calibrate(context.Background())
	if err != nil {
		t.Fatalf("Calibrate: %v", err)
	}
	if got < 280 || got > 300 {
		t.Errorf("threshold = %v, want close to 300", got)
	}
}

func TestOutcomeString(t *testing.T) {
	if speech.OutcomeAmbiguous.String() != "ambiguous" || speech.Outcome(99).String() != "unknown" {
		t.Error("unexpected outcome names")
	}
}
