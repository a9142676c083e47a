package tts

import (
	"log/slog"
	"net/http"
	"time"
)

// Config is shared by every provider; each reads the fields it needs.
type Config struct {
	APIKey    string
	BaseURL   string
	WSBaseURL string

	// Google only. Anonymous skips credentials entirely, for local fakes.
	CredentialsFile string
	Anonymous       bool
	Language        string

	// VoiceID is spoken with when a call names no voice.
	VoiceID       string
	ModelID       string
	VoiceSettings VoiceSettings
	OutputFormat  Encoding

	Timeout       time.Duration
	StreamTimeout time.Duration
	HTTPClient    *http.Client

	// MaxRetries applies to Synthesize only; a stream that has started
	// playing is never retried.
	MaxRetries int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

func WithAPIKey(key string) Option        { return func(c *Config) { c.APIKey = key } }
func WithBaseURL(url string) Option       { return func(c *Config) { c.BaseURL = url } }
func WithWSBaseURL(url string) Option     { return func(c *Config) { c.WSBaseURL = url } }
func WithVoice(voiceID string) Option     { return func(c *Config) { c.VoiceID = voiceID } }
func WithModel(modelID string) Option     { return func(c *Config) { c.ModelID = modelID } }
func WithLanguage(lang string) Option     { return func(c *Config) { c.Language = lang } }
func WithCredentialsFile(p string) Option { return func(c *Config) { c.CredentialsFile = p } }

// WithoutAuthentication sends Google requests with no credentials.
func WithoutAuthentication() Option { return func(c *Config) { c.Anonymous = true } }

func WithOutputFormat(enc Encoding) Option { return func(c *Config) { c.OutputFormat = enc } }

func WithVoiceSettings(s VoiceSettings) Option { return func(c *Config) { c.VoiceSettings = s } }

// WithHTTPClient replaces the shared client from internal/httpc.
func WithHTTPClient(hc *http.Client) Option { return func(c *Config) { c.HTTPClient = hc } }

// WithTimeout bounds a whole Synthesize request.
func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithStreamTimeout bounds a Stream from request to last chunk.
func WithStreamTimeout(d time.Duration) Option { return func(c *Config) { c.StreamTimeout = d } }

func WithRetry(n int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = n
		c.RetryDelay = delay
	}
}

// WithLogger ignores a nil logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// DefaultConfig speaks MP3, which the earpiece decodes as it arrives.
func DefaultConfig() *Config {
	return &Config{
		ModelID:       ModelTurboV2_5,
		OutputFormat:  EncodingMP3,
		VoiceSettings: DefaultVoiceSettings(),
		Language:      "en-US",
		Timeout:       30 * time.Second,
		StreamTimeout: time.Minute,
		RetryDelay:    100 * time.Millisecond,
		Logger:        slog.Default(),
	}
}

func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate requires an API key.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrNoAPIKey
	}
	return nil
}

// voice resolves an empty voiceID to the configured default.
func (c *Config) voice(voiceID string) (string, error) {
	switch {
	case voiceID != "":
		return voiceID, nil
	case c.VoiceID != "":
		return c.VoiceID, nil
	}
	return "", ErrNoVoiceID
}
