package phone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/speech"
)

// Listener captures and transcribes the caller. *speech.Bridge implements it.
type Listener interface {
	Calibrate(ctx context.Context) (float64, error)
	Hear(ctx context.Context, onset, maxPhrase time.Duration) speech.Result
}

// Voice plays synthesized speech and tones. Failures are handled inside
// the speaker and never reach the call. *voice.Voice implements it.
type Voice interface {
	Speak(ctx context.Context, voiceID, text string)
	PlayTone(ctx context.Context, sound *audioio.Sound)
}

// Replier produces a character's next line. *Chat implements it.
type Replier interface {
	Reply(ctx context.Context, t *Transcript, systemPrompt string) (string, error)
}

// HookSensor reports whether the handset is lifted. gpio.Input implements it.
type HookSensor interface {
	Value() bool
}

// ErrAborted is the cancellation cause of a call ended by the operator.
var ErrAborted = errors.New("phone: call aborted by operator")

// Call is the state of one connected call.
type Call struct {
	ID         string
	Digit      int
	Role       *directory.Role
	Started    time.Time
	Transcript *Transcript
}

// Info returns the call's public description.
func (c *Call) Info() CallInfo {
	return CallInfo{ID: c.ID, Digit: c.Digit, Role: c.Role.Name, Started: c.Started}
}

// Session runs calls with one character at a time.
type Session struct {
	listener Listener
	speaker  Voice
	chat     Replier
	hook     HookSensor
	cfg      SessionConfig
	observer Observer
	logger   *slog.Logger

	mu      sync.RWMutex
	current *Call
}

// NewSession creates a session. A nil hook means the line is never seen
// on-hook, so only a timeout without hardware or ctx ends a call. A nil
// observer is allowed.
func NewSession(listener Listener, speaker Voice, chat Replier, hook HookSensor, cfg SessionConfig, observer Observer, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &Session{
		listener: listener,
		speaker:  speaker,
		chat:     chat,
		hook:     hook,
		cfg:      cfg,
		observer: observer,
		logger:   logger.With("component", "phone.session"),
	}
}

// Current returns the call in progress, or nil.
func (s *Session) Current() *Call {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *Session) offHook() bool {
	return s.hook == nil || s.hook.Value()
}

// Run connects the caller to role and blocks until the call ends.
//
// It returns nil when the caller hangs up, an error wrapping ErrChatFailed
// when the chat service fails under ChatFailureHangUp, and the context's
// error when ctx ends first.
func (s *Session) Run(ctx context.Context, digit int, role *directory.Role) error {
	call := &Call{
		ID:         uuid.NewString(),
		Digit:      digit,
		Role:       role,
		Started:    time.Now(),
		Transcript: NewTranscript(),
	}
	logger := s.logger.With("call_id", call.ID, "role", role.Name)

	s.mu.Lock()
	s.current = call
	s.mu.Unlock()
	s.observer.CallStarted(call.Info())

	err := s.converse(ctx, call, logger)

	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()

	reason := endReason(ctx, err)
	logger.Info("call ended", "reason", reason, "turns", call.Transcript.Len())
	s.observer.CallEnded(CallSummary{
		CallInfo: call.Info(),
		Turns:    call.Transcript.Len(),
		Duration: time.Since(call.Started),
		Reason:   reason,
	})
	return err
}

func (s *Session) converse(ctx context.Context, call *Call, logger *slog.Logger) error {
	role := call.Role

	start := time.Now()
	if threshold, err := s.listener.Calibrate(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("calibration failed", "error", err)
	} else {
		logger.Debug("calibrated", "threshold", threshold)
	}
	s.observer.StageTimed(StageCalibration, time.Since(start))

	logger.Info("greeting", "text", role.Greeting)
	s.speaker.Speak(ctx, role.VoiceID, role.Greeting)

	for s.offHook() {
		if err := ctx.Err(); err != nil {
			return err
		}

		logger.Info("listening")
		res := s.listener.Hear(ctx, s.cfg.ListenTimeout, s.cfg.PhraseTimeout)
		s.observer.SpeechOutcome(res.Outcome)
		if res.Recognition > 0 {
			logger.Debug("recognition took", "duration", res.Recognition)
			s.observer.StageTimed(StageRecognition, res.Recognition)
		}

		switch res.Outcome {
		case speech.OutcomeTimeout:
			if !s.offHook() {
				logger.Info("caller hung up")
				return nil
			}
			logger.Warn("no speech heard")
			s.speaker.Speak(ctx, role.VoiceID, s.cfg.StillTherePrompt)

		case speech.OutcomeEmpty, speech.OutcomeAmbiguous:
			logger.Warn("could not understand caller", "outcome", res.Outcome)
			s.speaker.Speak(ctx, role.VoiceID, s.cfg.WhatWasThatPrompt)

		case speech.OutcomeUnavailable:
			logger.Error("speech recognition unavailable", "error", res.Err)

		case speech.OutcomeCancelled:
			return ctx.Err()

		case speech.OutcomeText:
			if err := s.exchange(ctx, call, res.Text, logger); err != nil {
				return err
			}
		}
	}

	logger.Info("caller hung up")
	return nil
}

// exchange handles one recognized utterance: the caller's turn, the reply
// and its playback.
func (s *Session) exchange(ctx context.Context, call *Call, text string, logger *slog.Logger) error {
	role := call.Role
	text = strings.TrimSpace(text)
	if text == "" {
		s.speaker.Speak(ctx, role.VoiceID, s.cfg.WhatWasThatPrompt)
		return nil
	}

	logger.Info("caller said", "text", text)
	// Observers hear about the caller's turn only once it is certain to
	// stay in the transcript.
	userTurn := call.Transcript.Append(SpeakerUser, text)

	start := time.Now()
	reply, err := s.chat.Reply(ctx, call.Transcript, role.SystemPrompt)
	elapsed := time.Since(start)
	logger.Debug("chat took", "duration", elapsed)
	s.observer.StageTimed(StageChat, elapsed)

	if err != nil && ctx.Err() == nil {
		logger.Error("chat failed", "error", err, "policy", s.cfg.ChatFailure)
		if s.cfg.ChatFailure == ChatFailureApologize {
			call.Transcript.DropLast(SpeakerUser)
			s.speaker.Speak(ctx, role.VoiceID, s.cfg.ApologyPrompt)
			return nil
		}
	}
	s.observer.TurnAdded(call.ID, userTurn)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", ErrChatFailed, err)
	}

	logger.Info("reply", "text", reply)
	s.observer.TurnAdded(call.ID, call.Transcript.Append(SpeakerAssistant, reply))
	s.speaker.Speak(ctx, role.VoiceID, reply)
	return nil
}

func endReason(ctx context.Context, err error) EndReason {
	switch {
	case err == nil:
		return EndHungUp
	case errors.Is(err, ErrChatFailed):
		return EndChatFailed
	case errors.Is(context.Cause(ctx), ErrAborted):
		return EndAborted
	default:
		return EndShutdown
	}
}
