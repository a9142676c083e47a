package phone

import (
	"context"
	"testing"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/gpio"
	"github.com/teslashibe/go-rotary/pkg/inference"
	"github.com/teslashibe/go-rotary/pkg/rotary"
	"github.com/teslashibe/go-rotary/pkg/speech"
)

type controllerHarness struct {
	hook       *gpio.Mock
	dial       *queuedDial
	listener   *scriptedListener
	speaker    *recordingSpeaker
	chat       *inference.Mock
	rec        *recorder
	tone       *audioio.Sound
	controller *Controller

	cancel context.CancelFunc
	done   chan error
}

func newControllerHarness(t *testing.T, cfg ControllerConfig, chat *inference.Mock, digits []int, results ...speech.Result) *controllerHarness {
	t.Helper()
	h := &controllerHarness{
		hook:    gpio.NewMock(true),
		dial:    newQueuedDial(digits...),
		speaker: &recordingSpeaker{},
		chat:    chat,
		rec:     newRecorder(),
		tone:    &audioio.Sound{Samples: []int16{1, 2, 3}, SampleRate: 8000, Channels: 1},
	}
	h.listener = &scriptedListener{results: results, hangUp: h.hook}
	session := NewSession(h.listener, h.speaker, NewChat(chat, PromptTranscript, nil), h.hook, fastSessionConfig(), h.rec, nil)
	h.controller = NewController(ControllerDeps{
		Directory: testDirectory(t),
		Hook:      h.hook,
		Dial:      h.dial,
		Speaker:   h.speaker,
		Tones:     toneMap{3: h.tone},
		Session:   session,
		Observer:  h.rec,
	}, cfg, nil)
	return h
}

func (h *controllerHarness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.done = make(chan error, 1)
	go func() { h.done <- h.controller.Run(ctx) }()
}

func (h *controllerHarness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func (h *controllerHarness) state() State {
	return h.controller.Status().State
}

func testControllerConfig() ControllerConfig {
	cfg := DefaultControllerConfig()
	cfg.DialTimeout = time.Second
	cfg.ConnectDelay = 0
	return cfg
}

func TestControllerDialsRole(t *testing.T) {
	h := newControllerHarness(t, testControllerConfig(), inference.WithReplies("Welcome, Alice."), []int{3}, said("Alice"))
	h.start()

	waitFor(t, "call to end", func() bool { return len(h.rec.Ended()) == 1 })
	waitFor(t, "idle", func() bool { return h.state() == StateIdle })
	h.stop(t)

	got := h.speaker.Utterances()
	if len(got) != 4 {
		t.Fatalf("utterances = %+v, want greeting, tone, role greeting, reply", got)
	}
	if got[0].VoiceID != DefaultControllerConfig().OperatorVoiceID || got[0].Text != DefaultOperatorGreeting {
		t.Errorf("utterances[0] = %+v, want operator greeting", got[0])
	}
	if got[1].Tone != h.tone {
		t.Errorf("utterances[1] = %+v, want dial tone", got[1])
	}
	if got[2].Text != "This is Damian. What is your name?" || got[2].VoiceID != "devil-voice" {
		t.Errorf("utterances[2] = %+v, want devil greeting", got[2])
	}
	if got[3].Text != "Welcome, Alice." {
		t.Errorf("utterances[3] = %+v, want reply", got[3])
	}

	calls := h.chat.Calls()
	if len(calls) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(calls))
	}
	msgs := calls[0].Messages
	if len(msgs) != 2 || msgs[0].Content != "You are the devil." || msgs[1].Content != "Alice" {
		t.Errorf("chat messages = %+v", msgs)
	}

	ended := h.rec.Ended()
	if ended[0].Role != "The Devil" || ended[0].Digit != 3 || ended[0].Reason != EndHungUp || ended[0].Turns != 2 {
		t.Errorf("summary = %+v", ended[0])
	}

	var sawInCall bool
	for _, ev := range h.rec.States() {
		if ev.State == StateInCall && ev.Digit == 3 {
			sawInCall = true
		}
	}
	if !sawInCall {
		t.Errorf("states = %+v, want in_call for digit 3", h.rec.States())
	}
}

func TestControllerDirectory(t *testing.T) {
	cfg := testControllerConfig()
	cfg.DialTimeout = 5 * time.Second
	h := newControllerHarness(t, cfg, inference.NewMock(), []int{0})
	h.start()

	listing := "For A cute little elf, dial 1. For The Devil, dial 3. For God, dial 7."
	waitFor(t, "directory listing", func() bool { return h.speaker.Count(listing) == 1 })
	waitFor(t, "awaiting digit", func() bool { return h.state() == StateAwaitingDigit })

	states := h.rec.States()
	last := states[len(states)-1]
	prev := states[len(states)-2]
	if prev != (stateEvent{StateRouting, 0}) || last != (stateEvent{StateAwaitingDigit, -1}) {
		t.Errorf("states = %+v, want routing 0 then awaiting digit", states)
	}

	// A second digit is still accepted after the listing.
	h.dial.digits <- 3
	waitFor(t, "call", func() bool { return h.state() == StateInCall || len(h.rec.Ended()) > 0 })
	h.stop(t)

	if n := h.speaker.Count(DefaultOperatorGreeting); n != 1 {
		t.Errorf("operator greetings = %d, want 1", n)
	}
	if h.speaker.Utterances()[1].VoiceID != DefaultControllerConfig().OperatorVoiceID {
		t.Error("directory should be read in the operator voice")
	}
}

func TestControllerWrongNumber(t *testing.T) {
	h := newControllerHarness(t, testControllerConfig(), inference.NewMock(), []int{5})
	h.start()

	waitFor(t, "wrong number", func() bool { return h.speaker.Count(DefaultWrongNumberMessage) == 1 })
	waitFor(t, "error state", func() bool { return h.state() == StateError })

	// Blocks until the handset is replaced.
	time.Sleep(50 * time.Millisecond)
	if h.state() != StateError {
		t.Fatalf("state = %s, want error while off-hook", h.state())
	}
	if st := h.controller.Status(); st.Digit != 5 {
		t.Errorf("status digit = %d, want 5", st.Digit)
	}

	h.hook.Set(false)
	waitFor(t, "idle", func() bool { return h.state() == StateIdle })
	h.stop(t)

	if n := h.speaker.Count(DefaultWrongNumberMessage); n != 1 {
		t.Errorf("wrong number messages = %d, want 1", n)
	}
	if len(h.rec.Ended()) != 0 {
		t.Error("no call should have started")
	}
}

func TestControllerNothingDialedGreetsAgain(t *testing.T) {
	cfg := testControllerConfig()
	cfg.DialTimeout = 10 * time.Millisecond
	h := newControllerHarness(t, cfg, inference.NewMock(), nil)
	h.start()

	waitFor(t, "second greeting", func() bool { return h.speaker.Count(DefaultOperatorGreeting) >= 2 })
	h.stop(t)
}

func TestControllerChatFailureWaitsForHangUp(t *testing.T) {
	h := newControllerHarness(t, testControllerConfig(), inference.WithError(inference.ErrProviderUnavailable), []int{3}, said("hello"))
	h.listener.hangUp = nil
	h.start()

	waitFor(t, "call to end", func() bool { return len(h.rec.Ended()) == 1 })
	waitFor(t, "error state", func() bool { return h.state() == StateError })
	if r := h.rec.Ended()[0].Reason; r != EndChatFailed {
		t.Errorf("reason = %s, want chat_failed", r)
	}

	h.hook.Set(false)
	waitFor(t, "idle", func() bool { return h.state() == StateIdle })
	h.stop(t)
}

func TestControllerAbort(t *testing.T) {
	h := newControllerHarness(t, testControllerConfig(), inference.NewMock(), []int{3})
	h.listener.hangUp = nil
	h.start()

	waitFor(t, "call", func() bool { return h.controller.Session().Current() != nil })
	if st := h.controller.Status(); st.Call == nil || st.Role != "The Devil" {
		t.Errorf("status = %+v, want the devil call", st)
	}

	if !h.controller.Abort() {
		t.Fatal("Abort() = false during a call")
	}
	waitFor(t, "call to end", func() bool { return len(h.rec.Ended()) == 1 })
	if r := h.rec.Ended()[0].Reason; r != EndAborted {
		t.Errorf("reason = %s, want aborted", r)
	}

	// Still off-hook: a second abort releases the hang-up wait.
	waitFor(t, "error state", func() bool { return h.state() == StateError })
	waitFor(t, "abortable wait", func() bool { return h.controller.Abort() })
	waitFor(t, "operator greeting again", func() bool { return h.speaker.Count(DefaultOperatorGreeting) == 2 })
	h.stop(t)
}

func TestControllerTestDigitBypass(t *testing.T) {
	cfg := testControllerConfig()
	cfg.TestDigit = 7
	h := newControllerHarness(t, cfg, inference.NewMock(), nil)
	h.listener.hangUp = nil
	h.start()

	waitFor(t, "call", func() bool { return h.controller.Session().Current() != nil })
	h.stop(t)

	got := h.speaker.Utterances()
	if len(got) != 1 || got[0].Text != "This is god. What is your name?" {
		t.Errorf("utterances = %+v, want only the role greeting", got)
	}
	if h.listener.Calls() == 0 {
		t.Error("bypassed call should listen")
	}
}

func TestControllerSkipDialingWaitsForPickup(t *testing.T) {
	cfg := testControllerConfig()
	cfg.SkipDialing = true
	cfg.DefaultDigit = 1
	h := newControllerHarness(t, cfg, inference.NewMock(), nil)
	h.listener.hangUp = nil
	h.hook.Set(false)
	h.start()

	time.Sleep(20 * time.Millisecond)
	if len(h.speaker.Utterances()) != 0 {
		t.Fatal("nothing should be spoken while on-hook")
	}

	h.hook.Set(true)
	waitFor(t, "call", func() bool { return h.controller.Session().Current() != nil })
	if call := h.controller.Session().Current(); call.Digit != 1 {
		t.Errorf("digit = %d, want 1", call.Digit)
	}
	h.stop(t)
}

func TestControllerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ControllerConfig)
		wantErr bool
	}{
		{"defaults", func(*ControllerConfig) {}, false},
		{"test digit", func(c *ControllerConfig) { c.TestDigit = 3 }, false},
		{"test digit zero", func(c *ControllerConfig) { c.TestDigit = 0 }, true},
		{"skip dialing bad default", func(c *ControllerConfig) { c.SkipDialing = true; c.DefaultDigit = 0 }, true},
		{"no dial timeout", func(c *ControllerConfig) { c.DialTimeout = 0 }, true},
		{"negative delay", func(c *ControllerConfig) { c.ConnectDelay = -time.Second }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultControllerConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRunStopsOnCancelWhileIdle(t *testing.T) {
	h := newControllerHarness(t, testControllerConfig(), inference.NewMock(), nil)
	h.hook.Set(false)
	h.start()
	waitFor(t, "idle", func() bool { return h.state() == StateIdle })
	h.stop(t)

	if len(h.speaker.Utterances()) != 0 {
		t.Error("nothing should be spoken while on-hook")
	}
	if h.controller.Abort() {
		t.Error("Abort() = true with no call")
	}
}

// dialFor plays a dial released from digit once the controller is waiting
// for one: the contact closes as the dial leaves rest, then the pulses.
func dialFor(ctx context.Context, dial *gpio.Mock, c *Controller, digit int) {
	for c.Status().State != StateAwaitingDigit {
		if ctx.Err() != nil {
			return
		}
		time.Sleep(time.Millisecond)
	}
	pulses := digit
	if digit == 0 {
		pulses = 10
	}
	steps := append([]gpio.Step{{Level: true, Hold: 5 * time.Millisecond}}, gpio.Pulses(pulses, 5*time.Millisecond, 5*time.Millisecond)...)
	dial.Play(ctx, steps...)
}

func TestControllerDecodesPulsedDial(t *testing.T) {
	hook, dial := gpio.NewMock(true), gpio.NewMock(false)
	decoder := rotary.NewDecoder(dial, nil)
	decoder.Settle = time.Millisecond
	decoder.Gap = 40 * time.Millisecond
	decoder.PulseWait = 80 * time.Millisecond

	speaker, rec := &recordingSpeaker{}, newRecorder()
	listener := &scriptedListener{results: []speech.Result{said("Alice")}, hangUp: hook}
	dir := testDirectory(t)
	session := NewSession(listener, speaker, NewChat(inference.WithReplies("Welcome."), PromptTranscript, nil), hook, fastSessionConfig(), rec, nil)
	c := NewController(ControllerDeps{
		Directory: dir,
		Hook:      hook,
		Dial:      decoder,
		Speaker:   speaker,
		Tones:     toneMap{},
		Session:   session,
		Observer:  rec,
	}, testControllerConfig(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	go func() {
		dialFor(ctx, dial, c, 0)
		for speaker.Count(dir.Listing()) == 0 && ctx.Err() == nil {
			time.Sleep(time.Millisecond)
		}
		dialFor(ctx, dial, c, 3)
	}()

	waitFor(t, "call to end", func() bool { return len(rec.Ended()) == 1 })
	cancel()
	<-done

	if speaker.Count(dir.Listing()) != 1 {
		t.Errorf("ten pulses should read the directory once, said %q", speaker.Texts())
	}
	if got := rec.Ended()[0]; got.Digit != 3 || got.Role != "The Devil" {
		t.Errorf("three pulses connected to %+v", got)
	}
}
