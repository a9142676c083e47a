// Package observability exports Prometheus metrics for the phone.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-rotary/pkg/phone"
	"github.com/teslashibe/go-rotary/pkg/speech"
)

// Metrics groups all Prometheus instruments used by the phone.
// It implements phone.Observer.
type Metrics struct {
	registry *prometheus.Registry
	stages   *turnStageWindow

	State             *prometheus.GaugeVec
	DigitsDialed      *prometheus.CounterVec
	ActiveCalls       prometheus.Gauge
	Calls             *prometheus.CounterVec
	CallDuration      prometheus.Histogram
	Turns             *prometheus.CounterVec
	SpeechOutcomes    *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	FirstAudioLatency prometheus.Histogram
}

// NewMetrics registers the instruments on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		stages:   newTurnStageWindow(256),
		State: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the controller's current state, 0 otherwise.",
		}, []string{"state"}),
		DigitsDialed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digits_dialed_total",
			Help:      "Digits decoded from the dial.",
		}, []string{"digit"}),
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of connected calls.",
		}),
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Finished calls by role and end reason.",
		}, []string{"role", "reason"}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Length of finished calls.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		}),
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Transcript turns by speaker.",
		}, []string{"speaker"}),
		SpeechOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "speech_outcomes_total",
			Help:      "Listen attempts by outcome.",
		}, []string{"outcome"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each step of a turn.",
			Buckets:   []float64{.1, .25, .5, 1, 2, 3, 5, 8, 13},
		}, []string{"stage"}),
		FirstAudioLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "first_audio_latency_ms",
			Help:      "Latency from synthesis request to first audio chunk in milliseconds.",
			Buckets:   []float64{100, 200, 300, 500, 700, 900, 1200, 2000},
		}),
	}
}

// Registry returns the registry the instruments live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// StateChanged implements phone.Observer.
func (m *Metrics) StateChanged(state phone.State, digit int) {
	for _, s := range []phone.State{phone.StateIdle, phone.StateAwaitingDigit, phone.StateRouting, phone.StateInCall, phone.StateError} {
		v := 0.0
		if s == state {
			v = 1
		}
		m.State.WithLabelValues(s.String()).Set(v)
	}
	if state == phone.StateRouting {
		m.DigitsDialed.WithLabelValues(strconv.Itoa(digit)).Inc()
	}
}

// CallStarted implements phone.Observer.
func (m *Metrics) CallStarted(phone.CallInfo) {
	m.ActiveCalls.Inc()
}

// TurnAdded implements phone.Observer.
func (m *Metrics) TurnAdded(_ string, turn phone.Turn) {
	m.Turns.WithLabelValues(string(turn.Speaker)).Inc()
}

// CallEnded implements phone.Observer.
func (m *Metrics) CallEnded(summary phone.CallSummary) {
	m.ActiveCalls.Dec()
	m.Calls.WithLabelValues(summary.Role, string(summary.Reason)).Inc()
	m.CallDuration.Observe(summary.Duration.Seconds())
	m.stages.ObserveIndicator("call_" + string(summary.Reason))
}

// StageTimed implements phone.Observer.
func (m *Metrics) StageTimed(stage phone.Stage, d time.Duration) {
	m.StageDuration.WithLabelValues(string(stage)).Observe(d.Seconds())
	m.stages.Observe(string(stage), float64(d.Microseconds())/1000)
}

// SpeechOutcome implements phone.Observer.
func (m *Metrics) SpeechOutcome(outcome speech.Outcome) {
	m.SpeechOutcomes.WithLabelValues(outcome.String()).Inc()
	if outcome != speech.OutcomeText {
		m.stages.ObserveIndicator("speech_" + outcome.String())
	}
}

// ObserveSpoken records playback of one utterance. It matches the
// voice.Voice OnSpoken hook.
func (m *Metrics) ObserveSpoken(firstAudio, total time.Duration) {
	m.FirstAudioLatency.Observe(float64(firstAudio.Milliseconds()))
	m.StageTimed(phone.StageSynthesis, total)
}

// Stages returns rolling latency percentiles per stage.
func (m *Metrics) Stages() TurnStageSnapshot {
	return m.stages.Snapshot()
}

var _ phone.Observer = (*Metrics)(nil)
