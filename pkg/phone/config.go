package phone

import (
	"errors"
	"time"

	"github.com/teslashibe/go-rotary/pkg/tts"
)

// Default prompts spoken by the operator and by characters.
const (
	DefaultOperatorGreeting   = "Please dial a single digit to proceed. For a directory, please dial zero."
	DefaultWrongNumberMessage = "That number is disconnected. Please hang up and try again."
	DefaultStillTherePrompt   = "You still there?"
	DefaultWhatWasThatPrompt  = "What was that?"
	DefaultApologyPrompt      = "Sorry, I lost my train of thought. Say that again?"
)

// NoTestDigit disables the forced-digit bypass.
const NoTestDigit = -1

// SessionConfig controls one call.
type SessionConfig struct {
	// ListenTimeout bounds the wait for the caller to start speaking.
	ListenTimeout time.Duration
	// PhraseTimeout bounds one utterance.
	PhraseTimeout time.Duration

	StillTherePrompt  string
	WhatWasThatPrompt string
	ApologyPrompt     string

	ChatFailure ChatFailurePolicy
}

// DefaultSessionConfig returns a 10s onset wait, 5s phrases and the
// hang-up chat failure policy.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ListenTimeout:     10 * time.Second,
		PhraseTimeout:     5 * time.Second,
		StillTherePrompt:  DefaultStillTherePrompt,
		WhatWasThatPrompt: DefaultWhatWasThatPrompt,
		ApologyPrompt:     DefaultApologyPrompt,
		ChatFailure:       ChatFailureHangUp,
	}
}

// Validate checks the timeouts and policy.
func (c *SessionConfig) Validate() error {
	if c.ListenTimeout <= 0 {
		return errors.New("phone: listen timeout must be positive")
	}
	if c.PhraseTimeout <= 0 {
		return errors.New("phone: phrase timeout must be positive")
	}
	if _, err := ParseChatFailurePolicy(string(c.ChatFailure)); err != nil {
		return err
	}
	return nil
}

// ControllerConfig controls the dial flow around calls.
type ControllerConfig struct {
	OperatorVoiceID    string
	OperatorGreeting   string
	WrongNumberMessage string

	// DialTimeout bounds the wait for the first pulse after the greeting.
	DialTimeout time.Duration
	// ConnectDelay is the pause between a valid digit and the dial tone.
	ConnectDelay time.Duration

	// TestDigit, when not NoTestDigit, connects every call straight to
	// this digit without the operator or the dial.
	TestDigit int
	// SkipDialing connects every call straight to DefaultDigit.
	SkipDialing  bool
	DefaultDigit int
}

// DefaultControllerConfig returns the stock operator prompts and timings.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		OperatorVoiceID:    tts.OperatorVoice,
		OperatorGreeting:   DefaultOperatorGreeting,
		WrongNumberMessage: DefaultWrongNumberMessage,
		DialTimeout:        10 * time.Second,
		ConnectDelay:       time.Second,
		TestDigit:          NoTestDigit,
		DefaultDigit:       1,
	}
}

// Validate checks the bypass digits and timings.
func (c *ControllerConfig) Validate() error {
	if c.DialTimeout <= 0 {
		return errors.New("phone: dial timeout must be positive")
	}
	if c.ConnectDelay < 0 {
		return errors.New("phone: connect delay must not be negative")
	}
	if c.TestDigit != NoTestDigit && (c.TestDigit < 1 || c.TestDigit > 9) {
		return errors.New("phone: test digit must be between 1 and 9")
	}
	if c.SkipDialing && (c.DefaultDigit < 1 || c.DefaultDigit > 9) {
		return errors.New("phone: default digit must be between 1 and 9")
	}
	return nil
}

// bypassDigit returns the digit every call is forced to, if any.
func (c *ControllerConfig) bypassDigit() (int, bool) {
	if c.TestDigit != NoTestDigit {
		return c.TestDigit, true
	}
	if c.SkipDialing {
		return c.DefaultDigit, true
	}
	return 0, false
}
