package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teslashibe/go-rotary/internal/config"
	"github.com/teslashibe/go-rotary/pkg/inference"
	"github.com/teslashibe/go-rotary/pkg/stt"
	"github.com/teslashibe/go-rotary/pkg/tts"
)

// Provider names accepted in STT_PROVIDER, TTS_PROVIDER and TTS_FALLBACK.
const (
	ProviderWhisper      = "whisper"
	ProviderGoogle       = "google"
	ProviderElevenLabs   = "elevenlabs"
	ProviderElevenLabsWS = "elevenlabs-ws"
)

func (a *App) initProviders(ctx context.Context) error {
	var err error
	if a.recognizer, err = a.newRecognizer(ctx); err != nil {
		return fmt.Errorf("speech recognition: %w", err)
	}
	if a.synth, err = a.newSynthesizer(ctx); err != nil {
		return fmt.Errorf("speech synthesis: %w", err)
	}
	if a.chat, err = a.newChat(); err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

func (a *App) newRecognizer(ctx context.Context) (stt.Recognizer, error) {
	cfg := a.config
	switch cfg.STTProvider {
	case ProviderWhisper:
		return stt.NewWhisper(
			stt.WithAPIKey(cfg.OpenAIKey),
			stt.WithBaseURL(cfg.OpenAIBaseURL),
			stt.WithLanguage(cfg.STTLanguage),
			stt.WithLogger(a.logger),
		)
	case ProviderGoogle:
		return stt.NewGoogle(ctx,
			stt.WithCredentialsFile(cfg.GoogleCredentials),
			stt.WithLanguage(cfg.STTLanguage),
			stt.WithLogger(a.logger),
		)
	default:
		return nil, fmt.Errorf("unknown STT_PROVIDER %q", cfg.STTProvider)
	}
}

// NewSynthesizer builds the speech synthesizer named by cfg.TTSProvider,
// chained with cfg.TTSFallback when that names a different provider.
func NewSynthesizer(ctx context.Context, cfg config.Config, logger *slog.Logger) (tts.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{config: cfg, logger: logger}
	return a.newSynthesizer(ctx)
}

func (a *App) newSynthesizer(ctx context.Context) (tts.Provider, error) {
	primary, err := a.synthesizer(ctx, a.config.TTSProvider)
	if err != nil {
		return nil, err
	}
	if a.config.TTSFallback == "" || a.config.TTSFallback == a.config.TTSProvider {
		return primary, nil
	}

	fallback, err := a.synthesizer(ctx, a.config.TTSFallback)
	if err != nil {
		primary.Close()
		return nil, fmt.Errorf("fallback: %w", err)
	}
	a.logger.Info("tts fallback enabled", "primary", a.config.TTSProvider, "fallback", a.config.TTSFallback)
	return tts.NewChainWithLogger(a.logger, primary, fallback)
}

func (a *App) synthesizer(ctx context.Context, name string) (tts.Provider, error) {
	cfg := a.config
	eleven := []tts.Option{
		tts.WithAPIKey(cfg.ElevenLabsKey),
		tts.WithModel(cfg.ElevenLabsModelID),
		tts.WithVoice(cfg.OperatorVoiceID),
		tts.WithLogger(a.logger),
	}
	if cfg.ElevenLabsBaseURL != "" {
		eleven = append(eleven, tts.WithBaseURL(cfg.ElevenLabsBaseURL))
	}

	switch name {
	case ProviderElevenLabs:
		return tts.NewElevenLabs(eleven...)
	case ProviderElevenLabsWS:
		return tts.NewElevenLabsWS(eleven...)
	case ProviderGoogle:
		return tts.NewGoogle(ctx,
			tts.WithCredentialsFile(cfg.GoogleCredentials),
			tts.WithVoice(cfg.GoogleTTSVoice),
			tts.WithLanguage(cfg.STTLanguage),
			tts.WithLogger(a.logger),
		)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q", name)
	}
}

func (a *App) newChat() (inference.Provider, error) {
	cfg := a.config
	client := func(model string) (*inference.Client, error) {
		return inference.NewClient(
			inference.WithAPIKey(cfg.OpenAIKey),
			inference.WithBaseURL(cfg.OpenAIBaseURL),
			inference.WithModel(model),
			inference.WithLogger(a.logger),
		)
	}

	primary, err := client(cfg.ChatModel)
	if err != nil {
		return nil, err
	}
	if cfg.ChatFallbackModel == "" || cfg.ChatFallbackModel == cfg.ChatModel {
		return primary, nil
	}
	fallback, err := client(cfg.ChatFallbackModel)
	if err != nil {
		return nil, err
	}
	return inference.NewChainWithLogger(a.logger, primary, fallback)
}
