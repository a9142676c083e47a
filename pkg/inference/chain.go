package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Chain asks each provider in turn until one answers. The phone uses it to
// fall back to a second model so a character keeps talking when the first
// one is overloaded.
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
	return &Chain{
		providers: providers,
		logger:    logger.With("component", "inference.chain"),
	}, nil
}

// Chat returns the first successful reply. When every provider fails the
// error is a *ChainError; when ctx ends the context error is returned and
// the remaining providers are not tried.
func (c *Chain) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	failed := &ChainError{}
	for i, p := range c.providers {
		resp, err := p.Chat(ctx, req)
		if err == nil {
			if i > 0 {
				c.logger.Info("answered by fallback", "provider", providerName(p), "failed", failed.Providers)
			}
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		failed.add(providerName(p), err)
		c.logger.Warn("chat provider failed", "provider", providerName(p), "error", err)
	}
	return nil, failed
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

// providerName identifies p in logs: its model when it has one.
func providerName(p Provider) string {
	if m, ok := p.(interface{ Model() string }); ok && m.Model() != "" {
		return m.Model()
	}
	return fmt.Sprintf("%T", p)
}

var _ Provider = (*Chain)(nil)
