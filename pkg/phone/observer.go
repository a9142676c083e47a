package phone

import (
	"time"

	"github.com/teslashibe/go-rotary/pkg/speech"
)

// Observer receives call-flow events. Methods run on the controller's
// goroutine and must not block.
type Observer interface {
	StateChanged(state State, digit int)
	CallStarted(call CallInfo)
	TurnAdded(callID string, turn Turn)
	CallEnded(summary CallSummary)
	StageTimed(stage Stage, d time.Duration)
	SpeechOutcome(outcome speech.Outcome)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) StateChanged(State, int)         {}
func (NopObserver) CallStarted(CallInfo)            {}
func (NopObserver) TurnAdded(string, Turn)          {}
func (NopObserver) CallEnded(CallSummary)           {}
func (NopObserver) StageTimed(Stage, time.Duration) {}
func (NopObserver) SpeechOutcome(speech.Outcome)    {}

// Observers fans events out to each observer in order. Nil entries are skipped.
type Observers []Observer

func (o Observers) StateChanged(state State, digit int) {
	for _, ob := range o {
		if ob != nil {
			ob.StateChanged(state, digit)
		}
	}
}

func (o Observers) CallStarted(call CallInfo) {
	for _, ob := range o {
		if ob != nil {
			ob.CallStarted(call)
		}
	}
}

func (o Observers) TurnAdded(callID string, turn Turn) {
	for _, ob := range o {
		if ob != nil {
			ob.TurnAdded(callID, turn)
		}
	}
}

func (o Observers) CallEnded(summary CallSummary) {
	for _, ob := range o {
		if ob != nil {
			ob.CallEnded(summary)
		}
	}
}

func (o Observers) StageTimed(stage Stage, d time.Duration) {
	for _, ob := range o {
		if ob != nil {
			ob.StageTimed(stage, d)
		}
	}
}

func (o Observers) SpeechOutcome(outcome speech.Outcome) {
	for _, ob := range o {
		if ob != nil {
			ob.SpeechOutcome(outcome)
		}
	}
}

var (
	_ Observer = NopObserver{}
	_ Observer = Observers(nil)
)
