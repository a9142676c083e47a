// Say speaks one line through the handset. Handy for auditioning voices.
//
//	say -digit 3 "Hello there"
//	say -voice qHR09fcvu6SoDtFzqFvm "Please dial a single digit"
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-rotary/internal/config"
	rlog "github.com/teslashibe/go-rotary/internal/log"
	"github.com/teslashibe/go-rotary/pkg/app"
	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/voice"
)

func main() {
	voiceID := flag.String("voice", "", "Voice ID (defaults to the operator voice)")
	digit := flag.Int("digit", -1, "Speak in the voice of the role on this digit")
	flag.Parse()

	text := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: say [-voice ID | -digit N] text...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	rlog.Init(cfg.LogLevel, cfg.LogFormat)
	logger := rlog.Component("say")

	id := cfg.OperatorVoiceID
	switch {
	case *voiceID != "":
		id = *voiceID
	case *digit >= 0:
		dir, _, err := directory.LoadOrDefault(cfg.RolesFile)
		if err != nil {
			logger.Error("roles", "error", err)
			os.Exit(1)
		}
		role, ok := dir.Lookup(*digit)
		if !ok {
			logger.Error("no role on digit", "digit", *digit)
			os.Exit(1)
		}
		id = role.VoiceID
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	synth, err := app.NewSynthesizer(ctx, cfg, rlog.L())
	if err != nil {
		logger.Error("speech synthesis", "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	acfg := audioio.DefaultConfig()
	acfg.Backend = audioio.Backend(cfg.AudioBackend)
	acfg.Device = cfg.AudioDevice
	sink, err := audioio.NewSink(acfg, rlog.L())
	if err != nil {
		logger.Error("audio", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	v := voice.New(synth, sink, voice.DefaultConfig(), rlog.L())
	v.OnSpoken = func(firstAudio, total time.Duration) {
		logger.Info("spoken", "first_audio", firstAudio, "total", total)
	}
	v.Speak(ctx, id, text)
}
