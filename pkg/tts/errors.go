package tts

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoAPIKey            = errors.New("tts: API key required")
	ErrNoVoiceID           = errors.New("tts: voice ID required")
	ErrProviderUnavailable = errors.New("tts: no providers available")
	ErrAllProvidersFailed  = errors.New("tts: all providers failed")
)

// Failure classes an APIError matches with errors.Is. ErrUnknownVoice
// usually means a role's voice_id is wrong.
var (
	ErrUnauthorized = errors.New("tts: credentials rejected")
	ErrUnknownVoice = errors.New("tts: voice not found")
	ErrQuota        = errors.New("tts: quota or rate limit reached")
	ErrServer       = errors.New("tts: server error")
)

// APIError is an error answered by a synthesis service. StatusCode is zero
// for errors reported inside a websocket stream.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "tts [%s]:", e.Provider)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " %d", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	return b.String()
}

// Is matches the failure class of the status code. ElevenLabs reports an
// exhausted character quota as 401 with code "quota_exceeded".
func (e *APIError) Is(target error) bool {
	quota := e.Code == "quota_exceeded"
	switch target {
	case ErrUnauthorized:
		return !quota && (e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden)
	case ErrUnknownVoice:
		return e.StatusCode == http.StatusNotFound || e.Code == "voice_not_found"
	case ErrQuota:
		return quota || e.StatusCode == http.StatusTooManyRequests
	case ErrServer:
		return e.StatusCode >= 500 && e.StatusCode < 600
	}
	return false
}

// Temporary reports whether the same request may succeed if sent again.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.Is(ErrServer)
}

// ProviderError tags an error with the backend that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("tts [%s]: %v", e.Provider, e.Err)
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
	return fmt.Sprintf("tts: all %d providers failed (%s)", len(e.Errors), strings.Join(parts, "; "))
}

// Unwrap exposes every provider's error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error { return e.Errors }

func (e *ChainError) Is(target error) bool {
	return target == ErrAllProvidersFailed
}
