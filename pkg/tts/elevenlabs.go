package tts

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/teslashibe/go-rotary/internal/httpc"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs.
const (
	ModelTurboV2_5      = "eleven_turbo_v2_5"
	ModelFlashV2_5      = "eleven_flash_v2_5"
	ModelMultilingualV2 = "eleven_multilingual_v2"
)

// ElevenLabs speaks through the ElevenLabs HTTP API. Stream uses the
// chunked /stream endpoint so playback can start on the first bytes.
type ElevenLabs struct {
	config  *Config
	client  *http.Client
	stream  *http.Client
	logger  *slog.Logger
	baseURL string
}

func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &ElevenLabs{
		config:  cfg,
		client:  cfg.HTTPClient,
		stream:  cfg.HTTPClient,
		logger:  cfg.Logger.With("component", "tts.elevenlabs"),
		baseURL: cmp.Or(cfg.BaseURL, elevenLabsBaseURL),
	}
	if e.client == nil {
		e.client = httpc.NewClient(cfg.Timeout)
		e.stream = httpc.NewClient(cfg.StreamTimeout)
	}
	return e, nil
}

func (e *ElevenLabs) Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error) {
	voiceID, err := e.config.voice(voiceID)
	if err != nil {
		return nil, err
	}
	start := time.Now()

	resp, err := e.send(ctx, e.client, voiceID, "", text)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("read audio: %w", err))
	}
	res := &AudioResult{
		Audio:     audio,
		Format:    formatFor(e.config.OutputFormat),
		CharCount: len(text),
		Latency:   time.Since(start),
	}
	e.logger.Debug("synthesized",
		"voice", voiceID,
		"model", e.config.ModelID,
		"chars", res.CharCount,
		"bytes", len(audio),
		"latency", res.Latency,
	)
	return res, nil
}

func (e *ElevenLabs) Stream(ctx context.Context, voiceID, text string) (AudioStream, error) {
	voiceID, err := e.config.voice(voiceID)
	if err != nil {
		return nil, err
	}
	resp, err := e.send(ctx, e.stream, voiceID, "/stream", text)
	if err != nil {
		return nil, err
	}
	e.logger.Debug("stream opened", "voice", voiceID, "chars", len(text))
	return &bodyStream{body: resp.Body, format: formatFor(e.config.OutputFormat)}, nil
}

// Health fetches the account, which fails on a bad key.
func (e *ElevenLabs) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/user", nil)
	if err != nil {
		return WrapError(providerElevenLabs, err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return WrapError(providerElevenLabs, fmt.Errorf("health check: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeElevenLabsError(resp)
	}
	return nil
}

func (e *ElevenLabs) Close() error {
	e.client.CloseIdleConnections()
	e.stream.CloseIdleConnections()
	return nil
}

func (e *ElevenLabs) ModelID() string {
	return e.config.ModelID
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

func (e *ElevenLabs) request(text string) elevenLabsRequest {
	vs := e.config.VoiceSettings
	return elevenLabsRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       vs.Stability,
			SimilarityBoost: vs.SimilarityBoost,
			Style:           vs.Style,
			SpeakerBoost:    vs.SpeakerBoost,
		},
	}
}

// send posts a synthesis request, retrying temporary failures. The caller
// closes the returned body.
func (e *ElevenLabs) send(ctx context.Context, client *http.Client, voiceID, suffix, text string) (*http.Response, error) {
	body, err := json.Marshal(e.request(text))
	if err != nil {
		return nil, WrapError(providerElevenLabs, fmt.Errorf("encode request: %w", err))
	}
	endpoint := fmt.Sprintf("%s/text-to-speech/%s%s?%s", e.baseURL, url.PathEscape(voiceID), suffix,
		url.Values{"output_format": {string(e.config.OutputFormat)}}.Encode())
	accept := "audio/pcm"
	if e.config.OutputFormat == EncodingMP3 {
		accept = "audio/mpeg"
	}

	var lastErr error
	for attempt := range e.config.MaxRetries + 1 {
		if attempt > 0 {
			e.logger.Warn("retrying synthesis", "attempt", attempt, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(e.config.RetryDelay * time.Duration(attempt)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(providerElevenLabs, err)
		}
		req.Header.Set("xi-api-key", e.config.APIKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", accept)

		resp, err := client.Do(req)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			lastErr = WrapError(providerElevenLabs, err)
			continue
		case resp.StatusCode == http.StatusOK:
			return resp, nil
		}

		lastErr = decodeElevenLabsError(resp)
		resp.Body.Close()
		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.Temporary() {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// decodeElevenLabsError turns an error response into an *APIError. The
// API reports {"detail": {"status": code, "message": text}}; anything else
// becomes the message verbatim.
func decodeElevenLabsError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Provider: providerElevenLabs, StatusCode: resp.StatusCode, Message: string(raw)}

	var body struct {
		Detail struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Detail.Message != "" {
		apiErr.Code = body.Detail.Status
		apiErr.Message = body.Detail.Message
	}
	return apiErr
}

// formatFor describes audio in enc. MP3 decodes to stereo.
func formatFor(enc Encoding) AudioFormat {
	f := AudioFormat{Encoding: enc, SampleRate: SampleRateFromEncoding(enc), Channels: 1}
	if enc == EncodingMP3 {
		f.Channels = 2
	}
	return f
}

// bodyStream hands out an HTTP body in the chunks it arrives in.
type bodyStream struct {
	body   io.ReadCloser
	format AudioFormat
	buf    [4096]byte
}

func (s *bodyStream) Read() ([]byte, error) {
	for {
		n, err := s.body.Read(s.buf[:])
		switch {
		case n > 0:
			return bytes.Clone(s.buf[:n]), nil
		case err == io.EOF:
			return nil, nil
		case err != nil:
			return nil, WrapError(providerElevenLabs, err)
		}
	}
}

func (s *bodyStream) Close() error        { return s.body.Close() }
func (s *bodyStream) Format() AudioFormat { return s.format }

var _ Provider = (*ElevenLabs)(nil)
