package stt

import (
	"bytes"
	"context"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-rotary/internal/httpc"
	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// Whisper transcribes with the OpenAI audio transcription endpoint.
type Whisper struct {
	cfg    *Config
	client *openai.Client
	logger *slog.Logger
}

// NewWhisper creates a Whisper recognizer.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Model = openai.Whisper1
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = httpc.NewClient(cfg.Timeout)
	}

	return &Whisper{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
		logger: cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe uploads clip as a WAV file.
func (w *Whisper) Transcribe(ctx context.Context, clip *audioio.Clip) (string, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return "", ambiguous(w.Name())
	}

	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.cfg.Model,
		FilePath: "utterance.wav",
		Reader:   bytes.NewReader(clip.WAV()),
		Language: isoLanguage(w.cfg.Language),
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", unavailable(w.Name(), err)
	}

	text := strings.TrimSpace(resp.Text)
	w.logger.Debug("transcription complete", "chars", len(text), "audio_ms", clip.Duration().Milliseconds())
	return text, nil
}

// Name returns "whisper".
func (w *Whisper) Name() string {
	return "whisper"
}

var _ Recognizer = (*Whisper)(nil)
