package phone

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// State is the controller's position in the call flow.
type State int

const (
	StateIdle State = iota
	StateAwaitingDigit
	StateRouting
	StateInCall
	StateError
)

// String returns the state name used in logs, metrics and the console.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDigit:
		return "awaiting_digit"
	case StateRouting:
		return "routing"
	case StateInCall:
		return "in_call"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText lets State appear by name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ErrChatFailed ends a call when the chat service fails under ChatFailureHangUp.
var ErrChatFailed = errors.New("phone: chat service failed")

// ChatFailurePolicy decides what a chat-service error does to the call.
type ChatFailurePolicy string

const (
	// ChatFailureHangUp ends the call with ErrChatFailed.
	ChatFailureHangUp ChatFailurePolicy = "hangup"
	// ChatFailureApologize speaks an apology, forgets the caller's last
	// turn, and keeps listening.
	ChatFailureApologize ChatFailurePolicy = "apologize"
)

// ParseChatFailurePolicy validates a policy name.
func ParseChatFailurePolicy(s string) (ChatFailurePolicy, error) {
	switch p := ChatFailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case ChatFailureHangUp, ChatFailureApologize:
		return p, nil
	case "":
		return ChatFailureHangUp, nil
	default:
		return "", fmt.Errorf("phone: unknown chat failure policy %q", s)
	}
}

// EndReason says why a call ended.
type EndReason string

const (
	EndHungUp     EndReason = "hung_up"
	EndChatFailed EndReason = "chat_failed"
	EndAborted    EndReason = "aborted"
	EndShutdown   EndReason = "shutdown"
)

// CallInfo describes a connected call.
type CallInfo struct {
	ID      string    `json:"id"`
	Digit   int       `json:"digit"`
	Role    string    `json:"role"`
	Started time.Time `json:"started"`
}

// CallSummary describes a finished call.
type CallSummary struct {
	CallInfo
	Turns    int           `json:"turns"`
	Duration time.Duration `json:"duration"`
	Reason   EndReason     `json:"reason"`
}

// Stage names the timed steps of a turn.
type Stage string

const (
	StageCalibration Stage = "calibration"
	StageRecognition Stage = "recognition"
	StageChat        Stage = "chat"
	StageSynthesis   Stage = "synthesis"
)
