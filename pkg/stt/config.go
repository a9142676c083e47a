package stt

import (
	"log/slog"
	"net/http"
	"time"
)

// Config holds recognizer configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Provider credentials
	APIKey          string
	BaseURL         string
	CredentialsFile string
	Anonymous       bool

	// Recognition
	Model      string
	Language   string // BCP-47, e.g. "en-US"
	SampleRate int    // rate sent to the service; clips are resampled

	// Transport
	Timeout    time.Duration
	HTTPClient *http.Client

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring recognizers.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithCredentialsFile sets a Google service account file.
func WithCredentialsFile(path string) Option {
	return func(c *Config) {
		c.CredentialsFile = path
	}
}

// WithoutAuthentication disables credentials (local test servers).
func WithoutAuthentication() Option {
	return func(c *Config) {
		c.Anonymous = true
	}
}

// WithModel sets the recognition model.
func WithModel(model string) Option {
	return func(c *Config) {
		c.Model = model
	}
}

// WithLanguage sets the spoken language.
func WithLanguage(lang string) Option {
	return func(c *Config) {
		c.Language = lang
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Language:   "en-US",
		SampleRate: 16000,
		Timeout:    30 * time.Second,
		Logger:     slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// isoLanguage returns the ISO-639-1 part of a BCP-47 tag ("en-US" -> "en").
func isoLanguage(tag string) string {
	for i, r := range tag {
		if r == '-' || r == '_' {
			return tag[:i]
		}
	}
	return tag
}
