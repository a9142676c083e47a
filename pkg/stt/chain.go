package stt

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// Chain tries recognizers in order while they report ErrUnavailable.
// Any other outcome, including ErrAmbiguous, is returned as is.
type Chain struct {
	recognizers []Recognizer
	logger      *slog.Logger
}

// NewChain creates a recognizer chain. At least one recognizer is required.
func NewChain(logger *slog.Logger, recognizers ...Recognizer) (*Chain, error) {
	if len(recognizers) == 0 {
		return nil, ErrNoRecognizers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		recognizers: recognizers,
		logger:      logger.With("component", "stt.chain"),
	}, nil
}

// Transcribe implements Recognizer.
func (c *Chain) Transcribe(ctx context.Context, clip *audioio.Clip) (string, error) {
	var err error
	for i, r := range c.recognizers {
		var text string
		text, err = r.Transcribe(ctx, clip)
		if !errors.Is(err, ErrUnavailable) {
			if i > 0 && err == nil {
				c.logger.Info("fallback recognizer succeeded", "recognizer", r.Name())
			}
			return text, err
		}
		c.logger.Warn("recognizer unavailable, trying next", "recognizer", r.Name(), "error", err)
	}
	return "", err
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

var _ Recognizer = (*Chain)(nil)
