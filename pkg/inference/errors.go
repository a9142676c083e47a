package inference

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoAPIKey            = errors.New("inference: API key required")
	ErrNoModel             = errors.New("inference: model required")
	ErrProviderUnavailable = errors.New("inference: provider unavailable")
	ErrAllProvidersFailed  = errors.New("inference: all providers failed")

	// ErrEmptyReply is returned when the model answers with no text.
	ErrEmptyReply = errors.New("inference: empty reply")
)

// Failure classes an APIError matches with errors.Is.
var (
	ErrUnauthorized = errors.New("inference: credentials rejected")
	ErrRateLimited  = errors.New("inference: rate limited")
	ErrUnknownModel = errors.New("inference: model not found")
	ErrServer       = errors.New("inference: server error")
)

// APIError is an HTTP error answered by a chat endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string // vendor error code, e.g. "invalid_api_key"
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "inference [%s]: %d", e.Provider, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Is matches the failure class of the status code.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	case ErrUnknownModel:
		return e.StatusCode == http.StatusNotFound
	case ErrServer:
		return e.StatusCode >= 500 && e.StatusCode < 600
	}
	return false
}

// Temporary reports whether the same request may succeed if sent again.
func (e *APIError) Temporary() bool {
	return e.Is(ErrRateLimited) || e.Is(ErrServer)
}

// ProviderError tags an error with the backend that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError tags err with provider. A nil err stays nil.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Provider: provider, Err: err}
}

// ChainError lists why each provider of a Chain failed, in order.
type ChainError struct {
	Providers []string
	Errors    []error
}

func (e *ChainError) add(provider string, err error) {
	e.Providers = append(e.Providers, provider)
	e.Errors = append(e.Errors, err)
}

func (e *ChainError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		parts[i] = fmt.Sprintf("%s: %v", e.Providers[i], err)
	}
	return fmt.Sprintf("inference: all %d providers failed (%s)", len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap exposes every provider's error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error { return e.Errors }

func (e *ChainError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}
