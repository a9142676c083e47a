// Package speech captures caller utterances and turns them into text.
//
// A Listener gates the microphone on signal energy: it waits for a buffer
// louder than its threshold, records until the caller pauses, and returns the
// utterance as a clip. A Bridge pairs a Listener with a stt.Recognizer and
// reports every attempt as an explicit Outcome.
package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
)

// ErrSpeechTimeout is returned by Listen when nobody speaks before the onset timeout.
var ErrSpeechTimeout = errors.New("speech: timed out waiting for speech")

// ListenerConfig tunes the energy detector.
type ListenerConfig struct {
	// EnergyThreshold is the RMS level above which a buffer counts as speech.
	EnergyThreshold float64

	// Dynamic lets the threshold follow ambient noise while waiting for speech.
	Dynamic bool

	// PauseThreshold is the silence that ends a phrase.
	PauseThreshold time.Duration

	// PhraseThreshold is the minimum speech that counts as a phrase. Shorter
	// bursts (clicks, bumps) are discarded and listening resumes.
	PhraseThreshold time.Duration

	// NonSpeaking is the silence kept on either side of a phrase.
	NonSpeaking time.Duration

	// Damping is the fraction of the old threshold kept per second of
	// dynamic adjustment.
	Damping float64

	// Ratio scales ambient energy into the dynamic threshold target.
	Ratio float64
}

// DefaultListenerConfig returns the detector settings used on the phone.
func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		EnergyThreshold: 40,
		PauseThreshold:  800 * time.Millisecond,
		PhraseThreshold: 300 * time.Millisecond,
		NonSpeaking:     500 * time.Millisecond,
		Damping:         0.15,
		Ratio:           1.5,
	}
}

// Listener records utterances from a Source.
// Time is measured in captured audio, not wall clock.
type Listener struct {
	source audioio.Source
	cfg    ListenerConfig
	logger *slog.Logger

	mu        sync.Mutex
	threshold float64
}

// NewListener creates a listener reading from source.
func NewListener(source audioio.Source, cfg ListenerConfig, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{
		source:    source,
		cfg:       cfg,
		logger:    logger.With("component", "speech.listener"),
		threshold: cfg.EnergyThreshold,
	}
}

// Threshold returns the current energy threshold.
func (l *Listener) Threshold() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.threshold
}

// SetThreshold replaces the energy threshold.
func (l *Listener) SetThreshold(v float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threshold = v
}

// SetDynamic toggles dynamic threshold adjustment.
func (l *Listener) SetDynamic(dynamic bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg.Dynamic = dynamic
}

func (l *Listener) dynamic() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cfg.Dynamic
}

// adjust moves the threshold toward energy*Ratio.
func (l *Listener) adjust(energy, secondsPerBuffer float64) {
	damping := math.Pow(l.cfg.Damping, secondsPerBuffer)
	target := energy * l.cfg.Ratio
	l.mu.Lock()
	l.threshold = l.threshold*damping + target*(1-damping)
	l.mu.Unlock()
}

// Calibrate listens to ambient noise for window and adapts the threshold to it.
func (l *Listener) Calibrate(ctx context.Context, window time.Duration) (float64, error) {
	if err := l.source.Start(ctx); err != nil {
		return l.Threshold(), fmt.Errorf("start capture: %w", err)
	}
	defer l.source.Stop()

	var elapsed float64
	for elapsed <= window.Seconds() {
		chunk, err := l.source.Read(ctx)
		if err != nil {
			return l.Threshold(), err
		}
		spb := chunk.Seconds()
		if spb <= 0 {
			break
		}
		elapsed += spb
		l.adjust(audioio.RMS(chunk.Samples), spb)
	}

	threshold := l.Threshold()
	l.logger.Debug("calibrated", "energy_threshold", threshold, "window", window)
	return threshold, nil
}

// Listen waits up to onset for speech to start, then records until the
// caller pauses or maxPhrase of speech has been captured. A zero onset or
// maxPhrase means no limit.
func (l *Listener) Listen(ctx context.Context, onset, maxPhrase time.Duration) (*audioio.Clip, error) {
	if err := l.source.Start(ctx); err != nil {
		return nil, fmt.Errorf("start capture: %w", err)
	}
	defer l.source.Stop()

	var (
		elapsed float64
		rate    int
		frames  [][]int16
	)

	read := func() ([]int16, float64, error) {
		chunk, err := l.source.Read(ctx)
		if err != nil {
			return nil, 0, err
		}
		rate = chunk.SampleRate
		return chunk.Samples, chunk.Seconds(), nil
	}

	for {
		// Wait for the first buffer above the threshold, keeping a short
		// pre-roll of silence.
		frames = frames[:0]
		var nonSpeakingBuffers int
		for {
			buf, spb, err := read()
			if err != nil {
				return nil, err
			}
			elapsed += spb
			if onset > 0 && elapsed > onset.Seconds() {
				return nil, ErrSpeechTimeout
			}
			if nonSpeakingBuffers == 0 {
				nonSpeakingBuffers = buffersFor(l.cfg.NonSpeaking, spb)
			}

			frames = append(frames, buf)
			if len(frames) > nonSpeakingBuffers {
				frames = frames[1:]
			}

			energy := audioio.RMS(buf)
			if energy > l.Threshold() {
				break
			}
			if l.dynamic() {
				l.adjust(energy, spb)
			}
		}

		// Record until enough silence follows the speech.
		var (
			pauseCount, phraseCount int
			pauseBuffers            int
			phraseBuffers           int
			phraseStart             = elapsed
			lastEmpty               bool
		)
		for {
			buf, spb, err := read()
			if err != nil {
				return nil, err
			}
			if pauseBuffers == 0 {
				pauseBuffers = buffersFor(l.cfg.PauseThreshold, spb)
				phraseBuffers = buffersFor(l.cfg.PhraseThreshold, spb)
			}
			elapsed += spb
			if maxPhrase > 0 && elapsed-phraseStart > maxPhrase.Seconds() {
				break
			}
			frames = append(frames, buf)
			phraseCount++
			lastEmpty = len(buf) == 0

			if audioio.RMS(buf) > l.Threshold() {
				pauseCount = 0
			} else {
				pauseCount++
			}
			if pauseCount > pauseBuffers || lastEmpty {
				break
			}
		}

		phraseCount -= pauseCount
		if phraseCount >= phraseBuffers || lastEmpty {
			// Drop trailing silence beyond the non-speaking margin.
			for i := 0; i < pauseCount-nonSpeakingBuffers && len(frames) > 0; i++ {
				frames = frames[:len(frames)-1]
			}
			break
		}
		l.logger.Debug("discarding short noise burst", "buffers", phraseCount)
	}

	var n int
	for _, f := range frames {
		n += len(f)
	}
	samples := make([]int16, 0, n)
	for _, f := range frames {
		samples = append(samples, f...)
	}
	return &audioio.Clip{Samples: samples, SampleRate: rate}, nil
}

// buffersFor returns how many buffers of spb seconds cover d.
func buffersFor(d time.Duration, spb float64) int {
	if spb <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds() / spb))
}
