package inference

import (
	"log/slog"
	"net/http"
	"time"
)

// DefaultModel is the chat model the characters were written for.
const DefaultModel = "gpt-3.5-turbo"

// Config configures a Client.
type Config struct {
	BaseURL string
	APIKey  string // optional for local OpenAI-compatible servers
	Model   string

	// Zero leaves the service default in place.
	MaxTokens   int
	Temperature float64

	Timeout    time.Duration
	HTTPClient *http.Client // nil uses the shared httpc client

	// A caller waits on every retry, so the phone keeps this at zero.
	MaxRetries int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Option sets one Config field.
type Option func(*Config)

// WithBaseURL points the client at an OpenAI-compatible server, e.g.
// "http://localhost:11434/v1". An empty url keeps the default.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		if url != "" {
			c.BaseURL = url
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) { c.HTTPClient = client }
}

// WithRetry retries rate limits, server errors and transport failures
// maxRetries times, waiting delay times the attempt number in between.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		if l != nil {
			c.Logger = l
		}
	}
}

// DefaultConfig targets api.openai.com with DefaultModel and no retries.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    openAIBaseURL,
		Model:      DefaultModel,
		Timeout:    30 * time.Second,
		RetryDelay: 100 * time.Millisecond,
		Logger:     slog.Default(),
	}
}

// Apply runs opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate reports a missing model. The key is checked by NewClient since
// local servers accept none.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrNoModel
	}
	return nil
}
