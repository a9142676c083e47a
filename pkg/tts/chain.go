package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain falls back across providers, usually ElevenLabs then Google. The
// voice id is passed through unchanged; a provider that does not know it
// speaks in its own default voice, so a caller still hears the reply.
type Chain struct {
	providers []Provider
	logger    *slog.Logger
}

// NewChain creates a chain logging to slog.Default.
func NewChain(providers ...Provider) (*Chain, error) {
	return NewChainWithLogger(nil, providers...)
}

// NewChainWithLogger creates a chain. At least one provider is required.
func NewChainWithLogger(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{providers: providers, logger: logger.With("component", "tts.chain")}, nil
}

func (c *Chain) Synthesize(ctx context.Context, voiceID, text string) (*AudioResult, error) {
	return firstOf(ctx, c, "synthesize", func(p Provider) (*AudioResult, error) {
		return p.Synthesize(ctx, voiceID, text)
	})
}

func (c *Chain) Stream(ctx context.Context, voiceID, text string) (AudioStream, error) {
	return firstOf(ctx, c, "stream", func(p Provider) (AudioStream, error) {
		return p.Stream(ctx, voiceID, text)
	})
}

// firstOf returns the first successful result of call across c's providers.
func firstOf[T any](ctx context.Context, c *Chain, op string, call func(Provider) (T, error)) (T, error) {
	var zero T
	failed := &ChainError{}
	for i, p := range c.providers {
		v, err := call(p)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback voice used", "op", op, "provider", providerName(p))
			}
			return v, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		failed.add(providerName(p), err)
		c.logger.Warn("tts provider failed", "op", op, "provider", providerName(p), "error", err)
	}
	return zero, failed
}

// Health succeeds when at least one provider is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, p := range c.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		errs = append(errs, WrapError(providerName(p), err))
	}
	return errors.Join(errs...)
}

// Close closes every provider and joins their errors.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}

// Providers returns the providers in the order they are tried.
func (c *Chain) Providers() []Provider {
	return c.providers
}

func providerName(p Provider) string {
	switch p.(type) {
	case *ElevenLabs:
		return providerElevenLabs
	case *ElevenLabsWS:
		return providerElevenLabsWS
	case *Google:
		return providerGoogle
	}
	return fmt.Sprintf("%T", p)
}

var _ Provider = (*Chain)(nil)
