package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	texttospeech "google.golang.org/api/texttospeech/v1"

	"github.com/teslashibe/go-rotary/internal/gcp"
)

const providerGoogle = "google"

// DefaultGoogleVoice is used when the requested voice is not a Google voice name.
const DefaultGoogleVoice = "en-US-Neural2-D"

// Google implements Provider with Cloud Text-to-Speech. It has no streaming
// endpoint, so Stream synthesizes the whole utterance first.
type Google struct {
	config *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogle creates a Google TTS provider. Credentials come from
// WithCredentialsFile or application default credentials.
func NewGoogle(ctx context.Context, opts ...Option) (*Google, error) {
	cfg := DefaultConfig()
	cfg.VoiceID = DefaultGoogleVoice
	cfg.Apply(opts...)

	copts, err := gcp.ClientOptions(ctx, gcp.Config{
		CredentialsFile: cfg.CredentialsFile,
		Endpoint:        cfg.BaseURL,
		Anonymous:       cfg.Anonymous,
		HTTPClient:      cfg.HTTPClient,
	})
	if err != nil {
		return nil, WrapError(providerGoogle, err)
	}

	svc, err := texttospeech.NewService(ctx, copts...)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("create service: %w", err))
	}

	return &Google{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.google"),
	}, nil
}

// Synthesize returns MP3 audio for text.
func (g *Google) Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error) {
	voice := g.voiceName(voiceID)
	start := time.Now()

	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: g.config.Language,
			Name:         voice,
		},
		AudioConfig: &texttospeech.AudioConfig{
			AudioEncoding: "MP3",
		},
	}

	resp, err := g.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, WrapError(providerGoogle, err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(providerGoogle, fmt.Errorf("decode audio: %w", err))
	}
	latency := time.Since(start)

	g.logger.Debug("synthesized audio", "voice", voice, "chars", len(text), "bytes", len(audio), "latency", latency)

	return &AudioResult{
		Audio:     audio,
		Format:    AudioFormat{Encoding: EncodingMP3, SampleRate: 24000, Channels: 1},
		CharCount: len(text),
		Latency:   latency,
	}, nil
}

// Stream synthesizes text and returns it as a single chunk.
func (g *Google) Stream(ctx context.Context, voiceID, text string) (AudioStream, error) {
	result, err := g.Synthesize(ctx, voiceID, text)
	if err != nil {
		return nil, err
	}
	return NewBufferStream(result.Audio, result.Format), nil
}

// Health lists voices for the configured language.
func (g *Google) Health(ctx context.Context) error {
	if _, err := g.svc.Voices.List().LanguageCode(g.config.Language).Context(ctx).Do(); err != nil {
		return WrapError(providerGoogle, fmt.Errorf("health check: %w", err))
	}
	return nil
}

// Close is a no-op.
func (g *Google) Close() error {
	return nil
}

// voiceName keeps Google voice names and replaces anything else, such as an
// ElevenLabs ID, with the configured default.
func (g *Google) voiceName(voiceID string) string {
	if IsGoogleVoice(voiceID) {
		return voiceID
	}
	return g.config.VoiceID
}

// IsGoogleVoice reports whether name looks like "en-US-Neural2-D".
func IsGoogleVoice(name string) bool {
	parts := strings.Split(name, "-")
	return len(parts) >= 3 && len(parts[0]) == 2 && len(parts[1]) == 2
}

var _ Provider = (*Google)(nil)
