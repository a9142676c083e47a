// Package app wires the phone together from a config.Config: hardware,
// audio, the three vendor services, the call flow and the operator console.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/teslashibe/go-rotary/internal/config"
	"github.com/teslashibe/go-rotary/internal/observability"
	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/gpio"
	"github.com/teslashibe/go-rotary/pkg/inference"
	"github.com/teslashibe/go-rotary/pkg/phone"
	"github.com/teslashibe/go-rotary/pkg/rotary"
	"github.com/teslashibe/go-rotary/pkg/speech"
	"github.com/teslashibe/go-rotary/pkg/stt"
	"github.com/teslashibe/go-rotary/pkg/tts"
	"github.com/teslashibe/go-rotary/pkg/voice"
	"github.com/teslashibe/go-rotary/pkg/web"
)

// App is the phone application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config config.Config
	logger *slog.Logger

	directory  *directory.Directory
	pins       *gpio.Pins
	source     audioio.Source
	sink       audioio.Sink
	recognizer stt.Recognizer
	synth      tts.Provider
	chat       inference.Provider
	voice      *voice.Voice
	metrics    *observability.Metrics
	console    *web.Server
	controller *phone.Controller

	closeOnce sync.Once
}

// New checks cfg and returns an uninitialized App. A missing credential is
// reported as config.ErrMissingCredentials.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{config: cfg, logger: logger}, nil
}

// Init builds every component. Call it once, after New and before Run.
func (a *App) Init(ctx context.Context) error {
	cfg := a.config

	dir, fromFile, err := directory.LoadOrDefault(cfg.RolesFile)
	if err != nil {
		return fmt.Errorf("roles: %w", err)
	}
	a.directory = dir
	a.metrics = observability.NewMetrics(cfg.MetricsNamespace)

	if cfg.ConsoleAddr != "" {
		a.console = web.NewServer(web.Config{Addr: cfg.ConsoleAddr}, dir, a.metrics, a.logger)
		a.logger = slog.New(a.console.LogHandler(a.logger.Handler()))
	}
	logger := a.logger
	logger.Info("directory loaded", "roles", dir.Len(), "from_file", fromFile, "listing", dir.Listing())

	if a.pins, err = gpio.Open(a.gpioConfig(), logger); err != nil {
		return fmt.Errorf("gpio: %w", err)
	}
	a.checkLine()
	if err := a.initAudio(); err != nil {
		return err
	}
	if err := a.initProviders(ctx); err != nil {
		return err
	}

	a.voice = voice.New(a.synth, a.sink, voice.DefaultConfig().WithEnabled(cfg.Speak), logger)
	a.voice.OnSpoken = a.metrics.ObserveSpoken
	tones := voice.LoadTones(dir, logger)

	mode, err := phone.ParsePromptMode(cfg.ChatPromptMode)
	if err != nil {
		return err
	}
	policy, err := phone.ParseChatFailurePolicy(cfg.ChatFailurePolicy)
	if err != nil {
		return err
	}

	listener := speech.NewListener(a.source, a.listenerConfig(), logger)
	bridge := speech.NewBridge(listener, a.recognizer, speech.BridgeConfig{
		Dynamic:           cfg.DynamicEnergyThreshold,
		EnergyThreshold:   cfg.EnergyThreshold,
		CalibrationWindow: cfg.CalibrationWindow,
		CaptureBackoff:    speech.DefaultBridgeConfig().CaptureBackoff,
	}, logger)

	observers := phone.Observers{a.metrics}
	if a.console != nil {
		observers = append(observers, a.console)
	}

	scfg := phone.DefaultSessionConfig()
	scfg.ListenTimeout = cfg.ListenTimeout
	scfg.PhraseTimeout = cfg.PhraseTimeout
	scfg.ApologyPrompt = cfg.ApologyPrompt
	scfg.ChatFailure = policy
	if err := scfg.Validate(); err != nil {
		return err
	}

	ccfg := phone.DefaultControllerConfig()
	ccfg.OperatorVoiceID = cfg.OperatorVoiceID
	ccfg.OperatorGreeting = cfg.OperatorGreeting
	ccfg.WrongNumberMessage = cfg.WrongNumberMessage
	ccfg.DialTimeout = cfg.DialTimeout
	ccfg.ConnectDelay = cfg.ConnectDelay
	ccfg.TestDigit = cfg.TestDigit
	ccfg.SkipDialing = cfg.SkipDialing
	ccfg.DefaultDigit = cfg.DefaultDigit
	if err := ccfg.Validate(); err != nil {
		return err
	}

	session := phone.NewSession(bridge, a.voice, phone.NewChat(a.chat, mode, logger), a.pins.Hook, scfg, observers, logger)
	a.controller = phone.NewController(phone.ControllerDeps{
		Directory: dir,
		Hook:      a.pins.Hook,
		Dial:      rotary.NewDecoder(a.pins.Dial, logger),
		Speaker:   a.voice,
		Tones:     tones,
		Session:   session,
		Observer:  observers,
	}, ccfg, logger)

	if a.console != nil {
		a.console.SetLine(a.controller)
	}
	return nil
}

func (a *App) gpioConfig() gpio.Config {
	gcfg := gpio.DefaultConfig()
	gcfg.Backend = gpio.Backend(a.config.GPIOBackend)
	gcfg.HookPin = a.config.HookGPIO
	gcfg.DialPin = a.config.DialGPIO
	return gcfg
}

// checkLine warns when nothing can move the line: with fixed levels the
// handset always reads lifted and the dial never turns, so only a bypass
// mode gets past the operator greeting.
func (a *App) checkLine() bool {
	if a.pins.Backend != gpio.BackendNone || a.config.HardwareBypassed() {
		return true
	}
	a.logger.Warn("no hook or dial hardware, the operator greeting will repeat every dial timeout; set TEST_DIGIT or SKIP_DIALING",
		"dial_timeout", a.config.DialTimeout)
	return false
}

func (a *App) listenerConfig() speech.ListenerConfig {
	lcfg := speech.DefaultListenerConfig()
	lcfg.EnergyThreshold = a.config.EnergyThreshold
	lcfg.Dynamic = a.config.DynamicEnergyThreshold
	return lcfg
}

func (a *App) initAudio() error {
	acfg := audioio.DefaultConfig()
	acfg.Backend = audioio.Backend(a.config.AudioBackend)
	acfg.Device = a.config.AudioDevice

	var err error
	// PortAudio and ALSA print device probing noise on open.
	audioio.QuietStderr(func() {
		if a.source, err = audioio.NewSource(acfg, a.logger); err != nil {
			return
		}
		a.sink, err = audioio.NewSink(acfg, a.logger)
	})
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	return nil
}

// Run starts the console (when configured) and handles calls until ctx ends.
func (a *App) Run(ctx context.Context) error {
	if a.controller == nil {
		return errors.New("app: Run called before Init")
	}

	consoleErr := make(chan error, 1)
	if a.console != nil {
		go func() { consoleErr <- a.console.Run(ctx) }()
	} else {
		close(consoleErr)
	}

	a.logger.Info("phone ready", "speak", a.config.Speak, "skip_dialing", a.config.SkipDialing, "test_digit", a.config.TestDigit)
	err := a.controller.Run(ctx)

	if cerr := <-consoleErr; cerr != nil {
		a.logger.Error("operator console stopped", "error", cerr)
	}
	return err
}

// Controller returns the call controller. It is nil before Init.
func (a *App) Controller() *phone.Controller {
	return a.controller
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown() {
	a.closeOnce.Do(func() {
		type part struct {
			name string
			c    io.Closer
		}
		var parts []part
		if a.chat != nil {
			parts = append(parts, part{"chat", a.chat})
		}
		if a.synth != nil {
			parts = append(parts, part{"tts", a.synth})
		}
		if a.source != nil {
			parts = append(parts, part{"audio source", a.source})
		}
		if a.sink != nil {
			parts = append(parts, part{"audio sink", a.sink})
		}
		if a.pins != nil {
			parts = append(parts, part{"gpio", a.pins})
		}
		for _, p := range parts {
			if err := p.c.Close(); err != nil {
				a.logger.Warn("shutdown", "part", p.name, "error", err)
			}
		}
		a.logger.Info("goodbye")
	})
}
