package voice

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/tts"
)

// Voice synthesizes text and plays it to completion.
type Voice struct {
	provider tts.Provider
	sink     audioio.Sink
	cfg      Config
	logger   *slog.Logger

	// OnSpoken, when set, receives the synthesis latency to first audio and
	// the total time of every utterance that played.
	OnSpoken func(firstAudio, total time.Duration)
}

// New creates a Voice. A nil logger uses slog.Default().
func New(provider tts.Provider, sink audioio.Sink, cfg Config, logger *slog.Logger) *Voice {
	if logger == nil {
		logger = slog.Default()
	}
	return &Voice{
		provider: provider,
		sink:     sink,
		cfg:      cfg,
		logger:   logger.With("component", "voice"),
	}
}

// Enabled reports whether speech output is on.
func (v *Voice) Enabled() bool {
	return v.cfg.Enabled
}

// Speak says text in voiceID and returns when playback ends. Errors are
// logged, never returned. An empty voiceID uses the provider default.
func (v *Voice) Speak(ctx context.Context, voiceID, text string) {
	v.logger.Info("speaking", "text", text)
	if !v.cfg.Enabled || text == "" {
		return
	}

	if v.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	v.logger.Debug("generating audio from text", "voice", voiceID)
	stream, err := v.provider.Stream(ctx, voiceID, text)
	if err != nil {
		v.logFailure(ctx, "speech generation failed", err)
		return
	}
	defer stream.Close()
	firstAudio := time.Since(start)
	v.logger.Debug("synthesis took", "duration", firstAudio)

	if err := v.sink.PlayMP3(ctx, tts.NewReader(stream)); err != nil {
		v.logFailure(ctx, "speech playback failed", err)
		return
	}

	if v.OnSpoken != nil {
		v.OnSpoken(firstAudio, time.Since(start))
	}
}

// PlayTone plays a preloaded sound such as a dial tone. Nil sounds are skipped.
func (v *Voice) PlayTone(ctx context.Context, sound *audioio.Sound) {
	if !v.cfg.Enabled || sound == nil {
		return
	}
	v.logger.Debug("playing tone", "duration", sound.Duration())
	if err := v.sink.Play(ctx, sound); err != nil {
		v.logFailure(ctx, "tone playback failed", err)
	}
}

// logFailure keeps hang-up cancellation out of the error log.
func (v *Voice) logFailure(ctx context.Context, msg string, err error) {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		v.logger.Debug(msg+": cancelled", "error", err)
		return
	}
	v.logger.Error(msg, "error", err)
}
