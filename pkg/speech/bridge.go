package speech

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/stt"
)

// Outcome classifies one listen-and-transcribe attempt.
type Outcome int

const (
	// OutcomeText means the caller said something recognizable.
	OutcomeText Outcome = iota
	// OutcomeEmpty means recognition succeeded with no words.
	OutcomeEmpty
	// OutcomeTimeout means nobody started speaking in time.
	OutcomeTimeout
	// OutcomeUnavailable means capture or the recognizer failed.
	OutcomeUnavailable
	// OutcomeAmbiguous means the recognizer found no plausible speech.
	OutcomeAmbiguous
	// OutcomeCancelled means the context ended mid-attempt.
	OutcomeCancelled
)

// String returns the outcome name used in logs and metrics.
func (o Outcome) String() string {
	switch o {
	case OutcomeText:
		return "text"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeAmbiguous:
		return "ambiguous"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is the outcome of Hear.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error

	// Audio is the captured utterance length.
	Audio time.Duration
	// Recognition is how long transcription took.
	Recognition time.Duration
}

// BridgeConfig configures calibration.
type BridgeConfig struct {
	// Dynamic selects adaptive calibration over a fixed threshold.
	Dynamic bool
	// EnergyThreshold is the fixed threshold.
	EnergyThreshold float64
	// CalibrationWindow is how long adaptive calibration listens.
	CalibrationWindow time.Duration
	// CaptureBackoff is slept after a capture failure so a broken
	// microphone does not spin the call loop.
	CaptureBackoff time.Duration
}

// DefaultBridgeConfig returns a fixed threshold of 40.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		EnergyThreshold:   40,
		CalibrationWindow: 2 * time.Second,
		CaptureBackoff:    250 * time.Millisecond,
	}
}

// Bridge captures utterances and transcribes them.
type Bridge struct {
	listener   *Listener
	recognizer stt.Recognizer
	cfg        BridgeConfig
	logger     *slog.Logger
}

// NewBridge creates a bridge.
func NewBridge(listener *Listener, recognizer stt.Recognizer, cfg BridgeConfig, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		listener:   listener,
		recognizer: recognizer,
		cfg:        cfg,
		logger:     logger.With("component", "speech.bridge"),
	}
}

// Calibrate sets the energy threshold for a new call.
func (b *Bridge) Calibrate(ctx context.Context) (float64, error) {
	b.logger.Debug("determining ambient noise level")
	b.listener.SetDynamic(b.cfg.Dynamic)
	if !b.cfg.Dynamic {
		b.listener.SetThreshold(b.cfg.EnergyThreshold)
		b.logger.Debug("energy threshold set", "energy_threshold", b.cfg.EnergyThreshold)
		return b.cfg.EnergyThreshold, nil
	}
	return b.listener.Calibrate(ctx, b.cfg.CalibrationWindow)
}

// Listen captures one utterance. It fails with ErrSpeechTimeout when nobody
// speaks within onset.
func (b *Bridge) Listen(ctx context.Context, onset, maxPhrase time.Duration) (*audioio.Clip, error) {
	b.logger.Debug("listening")
	return b.listener.Listen(ctx, onset, maxPhrase)
}

// Transcribe converts clip to text. Errors are classified by stt.ErrUnavailable
// and stt.ErrAmbiguous.
func (b *Bridge) Transcribe(ctx context.Context, clip *audioio.Clip) (string, error) {
	return b.recognizer.Transcribe(ctx, clip)
}

// Hear listens once and transcribes what was heard.
func (b *Bridge) Hear(ctx context.Context, onset, maxPhrase time.Duration) Result {
	clip, err := b.Listen(ctx, onset, maxPhrase)
	switch {
	case err == nil:
	case errors.Is(err, ErrSpeechTimeout):
		b.logger.Warn("timed out waiting for speech")
		return Result{Outcome: OutcomeTimeout, Err: err}
	case ctx.Err() != nil:
		return Result{Outcome: OutcomeCancelled, Err: ctx.Err()}
	default:
		b.logger.Error("audio capture failed", "error", err)
		sleepCtx(ctx, b.cfg.CaptureBackoff)
		return Result{Outcome: OutcomeUnavailable, Err: err}
	}

	b.logger.Debug("analyzing heard audio", "audio_ms", clip.Duration().Milliseconds())
	start := time.Now()
	text, err := b.Transcribe(ctx, clip)
	res := Result{Text: text, Err: err, Audio: clip.Duration(), Recognition: time.Since(start)}

	switch {
	case err == nil && text == "":
		b.logger.Warn("couldn't transcribe audio")
		res.Outcome = OutcomeEmpty
	case err == nil:
		b.logger.Info("transcribed speech", "text", text)
		b.logger.Debug("recognition took", "duration", res.Recognition)
		res.Outcome = OutcomeText
	case ctx.Err() != nil:
		res.Outcome = OutcomeCancelled
		res.Err = ctx.Err()
	case errors.Is(err, stt.ErrAmbiguous):
		b.logger.Warn("unable to recognize speech")
		res.Outcome = OutcomeAmbiguous
	default:
		b.logger.Error("speech recognition unavailable", "error", err)
		res.Outcome = OutcomeUnavailable
	}
	return res
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
