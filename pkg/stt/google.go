package stt

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	speech "google.golang.org/api/speech/v1"

	"github.com/teslashibe/go-rotary/internal/gcp"
	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// Google transcribes with Cloud Speech-to-Text synchronous recognition.
type Google struct {
	cfg    *Config
	svc    *speech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google recognizer. Credentials come from
// WithCredentialsFile or application default credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.Model = "default"
	cfg.Apply(opts...)

	copts, err := gcp.ClientOptions(ctx, gcp.Config{
		CredentialsFile: cfg.CredentialsFile,
		Endpoint:        cfg.BaseURL,
		Anonymous:       cfg.Anonymous,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return nil, fmt.Errorf("stt [google]: %w", err)
	}

	svc, err := speech.NewService(ctx, copts...)
	if err != nil {
		return nil, fmt.Errorf("stt [google]: create service: %w", err)
	}

	return &Google{
		cfg:    cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "stt.google"),
	}, nil
}

// Transcribe sends clip as LINEAR16 at the configured sample rate.
func (g *Google) Transcribe(ctx context.Context, clip *audioio.Clip) (string, error) {
	if clip == nil || len(clip.Samples) == 0 {
		return "", ambiguous(g.Name())
	}
	if clip.SampleRate != g.cfg.SampleRate {
		clip = clip.Resampled(g.cfg.SampleRate)
	}

	req := &speech.RecognizeRequest{
		Config: &speech.RecognitionConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: int64(clip.SampleRate),
			LanguageCode:    g.cfg.Language,
			Model:           g.cfg.Model,
			MaxAlternatives: 1,
		},
		Audio: &speech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(audioio.SamplesToBytes(clip.Samples)),
		},
	}

	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	if err != nil {
		return "", unavailable(g.Name(), err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if t := strings.TrimSpace(result.Alternatives[0].Transcript); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ambiguous(g.Name())
	}

	text := strings.Join(parts, " ")
	g.logger.Debug("transcription complete", "chars", len(text), "results", len(resp.Results))
	return text, nil
}

// Name returns "google".
func (g *Google) Name() string {
	return "google"
}

var _ Recognizer = (*Google)(nil)
