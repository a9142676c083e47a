package phone

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/gpio"
	"github.com/teslashibe/go-rotary/pkg/speech"
)

// scriptedListener returns results in order. Once they run out it hangs up
// the hook (when set) and reports a timeout, or blocks until ctx ends.
type scriptedListener struct {
	mu           sync.Mutex
	results      []speech.Result
	calls        int
	calibrations int
	calibrateErr error
	hangUp       *gpio.Mock
}

func (l *scriptedListener) Calibrate(ctx context.Context) (float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calibrations++
	return 40, l.calibrateErr
}

func (l *scriptedListener) Hear(ctx context.Context, onset, maxPhrase time.Duration) speech.Result {
	l.mu.Lock()
	i := l.calls
	l.calls++
	l.mu.Unlock()

	if i < len(l.results) {
		return l.results[i]
	}
	if l.hangUp != nil {
		l.hangUp.Set(false)
		return speech.Result{Outcome: speech.OutcomeTimeout, Err: speech.ErrSpeechTimeout}
	}
	<-ctx.Done()
	return speech.Result{Outcome: speech.OutcomeCancelled, Err: ctx.Err()}
}

func (l *scriptedListener) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func said(text string) speech.Result {
	return speech.Result{Outcome: speech.OutcomeText, Text: text, Recognition: 10 * time.Millisecond}
}

type utterance struct {
	VoiceID string
	Text    string
	Tone    *audioio.Sound
}

type recordingSpeaker struct {
	mu  sync.Mutex
	out []utterance
}

func (s *recordingSpeaker) Speak(ctx context.Context, voiceID, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, utterance{VoiceID: voiceID, Text: text})
}

func (s *recordingSpeaker) PlayTone(ctx context.Context, sound *audioio.Sound) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out = append(s.out, utterance{Tone: sound})
}

func (s *recordingSpeaker) Utterances() []utterance {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]utterance(nil), s.out...)
}

func (s *recordingSpeaker) Texts() []string {
	var texts []string
	for _, u := range s.Utterances() {
		if u.Tone == nil {
			texts = append(texts, u.Text)
		}
	}
	return texts
}

func (s *recordingSpeaker) Count(text string) int {
	n := 0
	for _, t := range s.Texts() {
		if t == text {
			n++
		}
	}
	return n
}

// queuedDial hands out digits as if each had been dialed.
type queuedDial struct {
	digits chan int
	next   int
}

func newQueuedDial(digits ...int) *queuedDial {
	d := &queuedDial{digits: make(chan int, 16)}
	for _, digit := range digits {
		d.digits <- digit
	}
	return d
}

func (d *queuedDial) WaitForDial(ctx context.Context, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case d.next = <-d.digits:
		return true, nil
	case <-t.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (d *queuedDial) ReadDigit(ctx context.Context) (int, error) {
	return d.next, ctx.Err()
}

type toneMap map[int]*audioio.Sound

func (m toneMap) Get(digit int) *audioio.Sound { return m[digit] }

type stateEvent struct {
	State State
	Digit int
}

type recorder struct {
	mu       sync.Mutex
	states   []stateEvent
	started  []CallInfo
	turns    []Turn
	ended    []CallSummary
	stages   map[Stage]int
	outcomes []speech.Outcome
}

func newRecorder() *recorder {
	return &recorder{stages: make(map[Stage]int)}
}

func (r *recorder) StateChanged(state State, digit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, stateEvent{state, digit})
}

func (r *recorder) CallStarted(call CallInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, call)
}

func (r *recorder) TurnAdded(callID string, turn Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turns = append(r.turns, turn)
}

func (r *recorder) CallEnded(summary CallSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = append(r.ended, summary)
}

func (r *recorder) StageTimed(stage Stage, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage]++
}

func (r *recorder) SpeechOutcome(outcome speech.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) Ended() []CallSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CallSummary(nil), r.ended...)
}

func (r *recorder) States() []stateEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stateEvent(nil), r.states...)
}

func (r *recorder) Turns() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Turn(nil), r.turns...)
}

func testDirectory(t *testing.T) *directory.Directory {
	t.Helper()
	dir, err := directory.New(map[int]directory.Role{
		1: {Name: "A cute little elf", VoiceID: "elf-voice", Greeting: "Hi there!", SystemPrompt: "You are an elf."},
		3: {Name: "The Devil", VoiceID: "devil-voice", Greeting: "This is Damian. What is your name?", SystemPrompt: "You are the devil."},
		7: {Name: "God", VoiceID: "god-voice", Greeting: "This is god. What is your name?", SystemPrompt: "You are god."},
	})
	if err != nil {
		t.Fatalf("directory.New() error = %v", err)
	}
	return dir
}

func devil(t *testing.T) *directory.Role {
	t.Helper()
	role, ok := testDirectory(t).Lookup(3)
	if !ok {
		t.Fatal("digit 3 not assigned")
	}
	return role
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fastSessionConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.ListenTimeout = 10 * time.Millisecond
	cfg.PhraseTimeout = 10 * time.Millisecond
	return cfg
}
