package stt

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for recognition outcomes.
var (
	// ErrUnavailable is returned when the recognition service is unreachable
	// or rejects the request.
	ErrUnavailable = errors.New("stt: recognition service unavailable")

	// ErrAmbiguous is returned when no confident transcription exists.
	ErrAmbiguous = errors.New("stt: speech not recognized")

	// ErrNoAPIKey is returned when the API key is missing.
	ErrNoAPIKey = errors.New("stt: API key required")

	// ErrNoRecognizers is returned by NewChain without recognizers.
	ErrNoRecognizers = errors.New("stt: no recognizers configured")
)

// ProviderError wraps an error with provider context.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("stt [%s]: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// unavailable marks err as ErrUnavailable unless it is a context error,
// which is passed through so cancellation stays recognizable.
func unavailable(provider string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &ProviderError{Provider: provider, Err: fmt.Errorf("%w: %w", ErrUnavailable, err)}
}

// ambiguous marks a result as ErrAmbiguous.
func ambiguous(provider string) error {
	return &ProviderError{Provider: provider, Err: ErrAmbiguous}
}
