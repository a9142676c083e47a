package voice

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/tts"
)

func newTestVoice(cfg Config) (*Voice, *tts.Mock, *audioio.MockSink) {
	provider := tts.NewMock()
	sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
	return New(provider, sink, cfg, nil), provider, sink
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Enabled {
		t.Error("expected speech enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	cfg.Timeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Error("expected negative timeout to be rejected")
	}
}

func TestSpeakPlaysSynthesizedAudio(t *testing.T) {
	v, provider, sink := newTestVoice(DefaultConfig())

	var spoken int
	v.OnSpoken = func(firstAudio, total time.Duration) { spoken++ }

	v.Speak(context.Background(), "voice-3", "This is Damian.")

	call := provider.LastCall()
	if call == nil || call.Method != "Stream" || call.VoiceID != "voice-3" || call.Text != "This is Damian." {
		t.Fatalf("unexpected provider call: %+v", call)
	}
	plays := sink.Plays()
	if len(plays) != 1 || string(plays[0].MP3) != "This is Damian." {
		t.Fatalf("unexpected plays: %+v", plays)
	}
	if spoken != 1 {
		t.Errorf("OnSpoken called %d times", spoken)
	}
}

func TestSpeakDisabled(t *testing.T) {
	v, provider, sink := newTestVoice(DefaultConfig().WithEnabled(false))

	v.Speak(context.Background(), "", "hello")
	v.PlayTone(context.Background(), &audioio.Sound{Samples: make([]int16, 10), SampleRate: 44100, Channels: 1})

	if provider.CallCount("Stream") != 0 {
		t.Error("provider should not be called when disabled")
	}
	if len(sink.Plays()) != 0 {
		t.Error("nothing should play when disabled")
	}
}

func TestSpeakSwallowsFailures(t *testing.T) {
	t.Run("synthesis", func(t *testing.T) {
		provider := tts.WithError(&tts.APIError{StatusCode: 401, Message: "quota", Provider: "elevenlabs"})
		sink := audioio.NewMockSink(audioio.DefaultConfig(), nil)
		v := New(provider, sink, DefaultConfig(), nil)

		v.Speak(context.Background(), "v", "hello")
		if len(sink.Plays()) != 0 {
			t.Error("failed synthesis should not play")
		}
	})

	t.Run("playback", func(t *testing.T) {
		v, _, sink := newTestVoice(DefaultConfig())
		sink.PlayFunc = func(ctx context.Context, p audioio.MockPlay) error {
			return errors.New("device gone")
		}
		var spoken bool
		v.OnSpoken = func(time.Duration, time.Duration) { spoken = true }

		v.Speak(context.Background(), "v", "hello")
		if spoken {
			t.Error("OnSpoken should not fire when playback fails")
		}
	})
}

func TestSpeakSkipsEmptyText(t *testing.T) {
	v, provider, _ := newTestVoice(DefaultConfig())
	v.Speak(context.Background(), "v", "")
	if provider.CallCount("Stream") != 0 {
		t.Error("empty text should not be synthesized")
	}
}

func TestPlayTone(t *testing.T) {
	v, _, sink := newTestVoice(DefaultConfig())
	tone := &audioio.Sound{Samples: make([]int16, 200), SampleRate: 44100, Channels: 2}

	v.PlayTone(context.Background(), tone)
	v.PlayTone(context.Background(), nil)

	plays := sink.Plays()
	if len(plays) != 1 || plays[0].Sound != tone {
		t.Fatalf("unexpected plays: %+v", plays)
	}
}

func TestLoadTonesSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.mp3")
	if err := os.WriteFile(bad, []byte("not an mp3"), 0o644); err != nil {
		t.Fatal(err)
	}

	d, err := directory.New(map[int]directory.Role{
		1: {Name: "Broken", VoiceID: "a", Greeting: "hi", DialTone: bad},
		2: {Name: "Missing", VoiceID: "b", Greeting: "hi", DialTone: filepath.Join(dir, "nope.mp3")},
		3: {Name: "Silent", VoiceID: "c", Greeting: "hi"},
	})
	if err != nil {
		t.Fatalf("directory: %v", err)
	}

	tones := LoadTones(d, nil)
	if len(tones) != 0 {
		t.Errorf("expected no tones, got %d", len(tones))
	}
	if tones.Get(1) != nil {
		t.Error("expected nil tone for broken file")
	}
}
