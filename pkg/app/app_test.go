package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-rotary/internal/config"
	"github.com/teslashibe/go-rotary/pkg/gpio"
	"github.com/teslashibe/go-rotary/pkg/inference"
	"github.com/teslashibe/go-rotary/pkg/phone"
	"github.com/teslashibe/go-rotary/pkg/tts"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Speak:              false,
		TestDigit:          -1,
		DefaultDigit:       1,
		OperatorVoiceID:    "operator",
		OperatorGreeting:   "Please dial.",
		WrongNumberMessage: "Disconnected.",
		RolesFile:          filepath.Join(t.TempDir(), "missing.yaml"),
		ListenTimeout:      time.Second,
		PhraseTimeout:      time.Second,
		DialTimeout:        time.Second,
		GPIOBackend:        "none",
		AudioBackend:       "mock",
		OpenAIKey:          "sk-test",
		OpenAIBaseURL:      "http://127.0.0.1:1/v1",
		ChatModel:          "gpt-3.5-turbo",
		ChatPromptMode:     "transcript",
		ChatFailurePolicy:  "hangup",
		ApologyPrompt:      "Sorry?",
		STTProvider:        ProviderWhisper,
		STTLanguage:        "en-US",
		ElevenLabsKey:      "el-test",
		ElevenLabsModelID:  "eleven_turbo_v2_5",
		TTSProvider:        ProviderElevenLabs,
		MetricsNamespace:   "rotary",
	}
}

func TestNewMissingCredentials(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAIKey = ""

	_, err := New(cfg, testLogger())
	if !errors.Is(err, config.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestRunBeforeInit(t *testing.T) {
	a, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("expected error from Run before Init")
	}
}

func TestInitBuildsController(t *testing.T) {
	a, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()

	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if a.Controller() == nil {
		t.Fatal("controller not built")
	}
	if got := a.Controller().Status().State; got != phone.StateIdle {
		t.Errorf("initial state = %v, want idle", got)
	}
	if a.console != nil {
		t.Error("console built without CONSOLE_ADDR")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Shutdown()
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestShutdownIdempotent(t *testing.T) {
	a, err := New(testConfig(t), testLogger())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := a.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	a.Shutdown()
	a.Shutdown()
}

func TestGPIOConfigBypass(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		skip    bool
		digit   int
		want    gpio.Backend
	}{
		{"auto with dialing", "auto", false, -1, gpio.BackendAuto},
		{"auto skip dialing keeps the hook", "auto", true, -1, gpio.BackendAuto},
		{"auto test digit keeps the hook", "auto", false, 3, gpio.BackendAuto},
		{"explicit rpio kept", "rpio", true, -1, gpio.BackendRPIO},
		{"explicit none kept", "none", false, -1, gpio.BackendNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.GPIOBackend = tt.backend
			cfg.SkipDialing = tt.skip
			cfg.TestDigit = tt.digit
			a := &App{config: cfg, logger: testLogger()}
			if got := a.gpioConfig().Backend; got != tt.want {
				t.Errorf("backend = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCheckLine(t *testing.T) {
	tests := []struct {
		name    string
		pins    *gpio.Pins
		digit   int
		skip    bool
		want    bool
		warning bool
	}{
		{"hardware present", &gpio.Pins{Backend: gpio.BackendRPIO}, -1, false, true, false},
		{"fixed levels without bypass", gpio.None(), -1, false, false, true},
		{"fixed levels with test digit", gpio.None(), 3, false, true, false},
		{"fixed levels skipping dialing", gpio.None(), -1, true, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			cfg := testConfig(t)
			cfg.TestDigit = tt.digit
			cfg.SkipDialing = tt.skip
			a := &App{config: cfg, logger: slog.New(slog.NewTextHandler(&buf, nil)), pins: tt.pins}

			if got := a.checkLine(); got != tt.want {
				t.Errorf("checkLine() = %v, want %v", got, tt.want)
			}
			if warned := strings.Contains(buf.String(), "TEST_DIGIT"); warned != tt.warning {
				t.Errorf("warning logged = %v, want %v: %s", warned, tt.warning, buf.String())
			}
		})
	}
}

func TestProviderSelection(t *testing.T) {
	t.Run("unknown recognizer", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.STTProvider = "vosk"
		a := &App{config: cfg, logger: testLogger()}
		if _, err := a.newRecognizer(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("unknown synthesizer", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TTSProvider = "polly"
		a := &App{config: cfg, logger: testLogger()}
		if _, err := a.newSynthesizer(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("elevenlabs websocket", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TTSProvider = ProviderElevenLabsWS
		a := &App{config: cfg, logger: testLogger()}
		p, err := a.newSynthesizer(context.Background())
		if err != nil {
			t.Fatalf("newSynthesizer: %v", err)
		}
		defer p.Close()
		if _, ok := p.(*tts.ElevenLabsWS); !ok {
			t.Errorf("got %T, want *tts.ElevenLabsWS", p)
		}
	})

	t.Run("same fallback is ignored", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.TTSFallback = ProviderElevenLabs
		a := &App{config: cfg, logger: testLogger()}
		p, err := a.newSynthesizer(context.Background())
		if err != nil {
			t.Fatalf("newSynthesizer: %v", err)
		}
		defer p.Close()
		if _, ok := p.(*tts.ElevenLabs); !ok {
			t.Errorf("got %T, want *tts.ElevenLabs", p)
		}
	})

	t.Run("chat fallback model", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.ChatFallbackModel = "gpt-4o-mini"
		a := &App{config: cfg, logger: testLogger()}
		p, err := a.newChat()
		if err != nil {
			t.Fatalf("newChat: %v", err)
		}
		defer p.Close()
		chain, ok := p.(*inference.Chain)
		if !ok {
			t.Fatalf("got %T, want *inference.Chain", p)
		}
		if n := len(chain.Providers()); n != 2 {
			t.Errorf("chain has %d providers, want 2", n)
		}
	})

	t.Run("single chat model", func(t *testing.T) {
		a := &App{config: testConfig(t), logger: testLogger()}
		p, err := a.newChat()
		if err != nil {
			t.Fatalf("newChat: %v", err)
		}
		defer p.Close()
		if c, ok := p.(*inference.Client); !ok || c.Model() != "gpt-3.5-turbo" {
			t.Errorf("got %T, want client for gpt-3.5-turbo", p)
		}
	})
}
