package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/teslashibe/go-rotary/internal/httpc"
)

const (
	providerClient = "client"
	openAIBaseURL  = "https://api.openai.com/v1"
)

// Client is the standard inference provider built on go-openai.
// Works with any OpenAI-compatible API (OpenAI, Ollama, vLLM, Groq, etc.).
type Client struct {
	config *Config
	api    *openai.Client
	logger *slog.Logger
}

// NewClient creates a new inference client. The API key is required when
// talking to api.openai.com.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.APIKey == "" && (baseURL == "" || baseURL == openAIBaseURL) {
		return nil, ErrNoAPIKey
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if baseURL != "" {
		oc.BaseURL = baseURL
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	} else {
		oc.HTTPClient = httpc.NewClient(cfg.Timeout)
	}

	return &Client{
		config: cfg,
		api:    openai.NewClientWithConfig(oc),
		logger: cfg.Logger.With("component", "inference.client"),
	}, nil
}

// Chat generates a chat completion.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()

	model := req.Model
	if model == "" {
		model = c.config.Model
	}

	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(msg.Role), Content: msg.Content}
	}

	creq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	}
	if n := firstNonZero(req.MaxTokens, c.config.MaxTokens); n > 0 {
		creq.MaxTokens = n
	}
	if t := firstNonZeroFloat(req.Temperature, c.config.Temperature); t > 0 {
		creq.Temperature = float32(t)
	}

	resp, err := c.createWithRetry(ctx, creq)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, WrapError(providerClient, fmt.Errorf("no choices returned"))
	}

	choice := resp.Choices[0]
	latency := time.Since(start)
	c.logger.Debug("completion",
		"model", resp.Model,
		"messages", len(req.Messages),
		"finish_reason", choice.FinishReason,
		"tokens", resp.Usage.TotalTokens,
		"latency", latency,
	)

	return &ChatResponse{
		Message:      NewAssistantMessage(choice.Message.Content),
		FinishReason: string(choice.FinishReason),
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model:   resp.Model,
		Latency: latency,
	}, nil
}

// Health checks API connectivity.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return WrapError(providerClient, fmt.Errorf("health check: %w", translateError(err)))
	}
	return nil
}

// Close releases resources.
func (c *Client) Close() error {
	return nil
}

// Model returns the default chat model.
func (c *Client) Model() string {
	return c.config.Model
}

// createWithRetry retries rate limits, server errors and transport failures.
func (c *Client) createWithRetry(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return openai.ChatCompletionResponse{}, ctx.Err()
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return openai.ChatCompletionResponse{}, ctx.Err()
		}

		lastErr = translateError(err)
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && !apiErr.Temporary() {
			return openai.ChatCompletionResponse{}, lastErr
		}
		c.logger.Warn("request failed",
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	return openai.ChatCompletionResponse{}, lastErr
}

// translateError maps go-openai errors onto APIError.
func translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := ""
		if apiErr.Code != nil {
			code = fmt.Sprint(apiErr.Code)
		}
		return &APIError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    apiErr.Message,
			Code:       code,
			Provider:   providerClient,
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Provider:   providerClient,
		}
	}
	return WrapError(providerClient, err)
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}

func firstNonZeroFloat(a, b float64) float64 {
	if a != 0 {
		return a
	}
	return b
}

// Verify Client implements Provider at compile time.
var _ Provider = (*Client)(nil)
