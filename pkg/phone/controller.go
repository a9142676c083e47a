package phone

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/go-rotary/pkg/audioio"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/gpio"
)

// DigitReader collects dialed digits. *rotary.Decoder implements it.
type DigitReader interface {
	WaitForDial(ctx context.Context, timeout time.Duration) (bool, error)
	ReadDigit(ctx context.Context) (int, error)
}

// ToneSet returns the dial tone for a digit, or nil. voice.Tones implements it.
type ToneSet interface {
	Get(digit int) *audioio.Sound
}

// Status is a snapshot of the controller.
type Status struct {
	State State     `json:"state"`
	Digit int       `json:"digit"`
	Role  string    `json:"role,omitempty"`
	Call  *CallInfo `json:"call,omitempty"`
	Since time.Time `json:"since"`
}

// Controller drives the phone from pickup through dialing to a call.
type Controller struct {
	dir      *directory.Directory
	hook     gpio.Input
	dial     DigitReader
	speaker  Voice
	tones    ToneSet
	session  *Session
	cfg      ControllerConfig
	observer Observer
	logger   *slog.Logger

	mu     sync.Mutex
	state  State
	digit  int
	since  time.Time
	cancel context.CancelCauseFunc
}

// ControllerDeps are the parts a Controller drives.
type ControllerDeps struct {
	Directory *directory.Directory
	// Hook is the hook switch. Nil means the handset is always lifted.
	Hook gpio.Input
	Dial DigitReader
	// Speaker is used for the operator prompts and dial tones.
	Speaker Voice
	Tones   ToneSet
	Session *Session
	// Observer may be nil.
	Observer Observer
}

// NewController creates a controller in the idle state.
func NewController(deps ControllerDeps, cfg ControllerConfig, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	observer := deps.Observer
	if observer == nil {
		observer = NopObserver{}
	}
	return &Controller{
		dir:      deps.Directory,
		hook:     deps.Hook,
		dial:     deps.Dial,
		speaker:  deps.Speaker,
		tones:    deps.Tones,
		session:  deps.Session,
		cfg:      cfg,
		observer: observer,
		logger:   logger.With("component", "phone.controller"),
		state:    StateIdle,
		digit:    -1,
		since:    time.Now(),
	}
}

// Status returns the current state and call.
func (c *Controller) Status() Status {
	c.mu.Lock()
	st := Status{State: c.state, Digit: c.digit, Since: c.since}
	c.mu.Unlock()

	if role, ok := c.dir.Lookup(st.Digit); ok {
		st.Role = role.Name
	}
	if call := c.session.Current(); call != nil {
		info := call.Info()
		st.Call = &info
	}
	return st
}

// Session returns the session calls run on.
func (c *Controller) Session() *Session {
	return c.session
}

// Current returns the call in progress, or nil.
func (c *Controller) Current() *Call {
	return c.session.Current()
}

// Abort ends the current call, or the current wait for hang-up, and sends
// the controller back to idle. It reports whether there was anything to end.
func (c *Controller) Abort() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.logger.Info("operator abort", "state", c.state)
	c.cancel(ErrAborted)
	c.cancel = nil
	return true
}

func (c *Controller) setState(state State, digit int) {
	c.mu.Lock()
	changed := c.state != state || c.digit != digit
	c.state = state
	c.digit = digit
	if changed {
		c.since = time.Now()
	}
	c.mu.Unlock()
	if changed {
		c.logger.Debug("state", "state", state, "digit", digit)
		c.observer.StateChanged(state, digit)
	}
}

// abortable returns a context Abort can cancel.
func (c *Controller) abortable(ctx context.Context) (context.Context, func()) {
	scope, cancel := context.WithCancelCause(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()
	return scope, func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
		cancel(nil)
	}
}

func (c *Controller) offHook() bool {
	return c.hook == nil || c.hook.Value()
}

// Run handles calls until ctx ends. It returns nil on cancellation and an
// error only when the hardware fails.
func (c *Controller) Run(ctx context.Context) error {
	if digit, ok := c.cfg.bypassDigit(); ok {
		c.logger.Info("dialing bypassed", "digit", digit)
	}
	for {
		var err error
		if digit, ok := c.cfg.bypassDigit(); ok {
			err = c.bypass(ctx, digit)
		} else {
			err = c.cycle(ctx)
		}
		if ctx.Err() != nil {
			c.setState(StateIdle, -1)
			return nil
		}
		if err != nil {
			c.setState(StateError, -1)
			return err
		}
	}
}

// bypass connects straight to digit once the handset is lifted.
func (c *Controller) bypass(ctx context.Context, digit int) error {
	c.setState(StateIdle, -1)
	if err := c.waitOffHook(ctx); err != nil {
		return err
	}
	role, ok := c.dir.Lookup(digit)
	if !ok {
		c.logger.Error("bypass digit has no role", "digit", digit)
		return directory.ErrInvalidRole
	}
	return c.connect(ctx, digit, role, false)
}

// cycle runs one pickup: greeting, digits, and whatever they route to.
func (c *Controller) cycle(ctx context.Context) error {
	c.setState(StateIdle, -1)
	c.logger.Info("waiting for hook event")
	if err := c.waitOffHook(ctx); err != nil {
		return err
	}
	c.logger.Info("someone picked up the phone")

	c.speaker.Speak(ctx, c.cfg.OperatorVoiceID, c.cfg.OperatorGreeting)

	for {
		c.setState(StateAwaitingDigit, -1)
		dialed, err := c.dial.WaitForDial(ctx, c.cfg.DialTimeout)
		if err != nil {
			return err
		}
		if !dialed {
			c.logger.Info("nothing dialed")
			return nil
		}

		digit, err := c.dial.ReadDigit(ctx)
		if err != nil {
			return err
		}
		c.logger.Info("decoded digit", "digit", digit)
		c.setState(StateRouting, digit)

		if digit == directory.DirectoryDigit {
			c.speaker.Speak(ctx, c.cfg.OperatorVoiceID, c.dir.Listing())
			continue
		}

		role, ok := c.dir.Lookup(digit)
		if !ok {
			c.setState(StateError, digit)
			c.speaker.Speak(ctx, c.cfg.OperatorVoiceID, c.cfg.WrongNumberMessage)
			return c.waitHangUp(ctx)
		}
		return c.connect(ctx, digit, role, true)
	}
}

// connect runs a call with role. Dialed calls pause and play the dial tone
// first.
func (c *Controller) connect(ctx context.Context, digit int, role *directory.Role, dialed bool) error {
	if dialed {
		if err := sleep(ctx, c.cfg.ConnectDelay); err != nil {
			return err
		}
		if c.tones != nil {
			c.speaker.PlayTone(ctx, c.tones.Get(digit))
		}
	}

	c.setState(StateInCall, digit)
	scope, done := c.abortable(ctx)
	err := c.session.Run(scope, digit, role)
	aborted := errors.Is(context.Cause(scope), ErrAborted)
	done()

	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err == nil:
		return nil
	case aborted, errors.Is(err, ErrChatFailed):
		if !aborted {
			c.logger.Error("call dropped", "error", err)
		}
		c.setState(StateError, digit)
		return c.waitHangUp(ctx)
	default:
		return err
	}
}

func (c *Controller) waitOffHook(ctx context.Context) error {
	if c.hook == nil {
		return ctx.Err()
	}
	_, err := c.hook.WaitForActive(ctx, 0)
	return err
}

// waitHangUp blocks until the handset is replaced or the operator aborts.
func (c *Controller) waitHangUp(ctx context.Context) error {
	if c.hook == nil || !c.offHook() {
		return ctx.Err()
	}
	c.logger.Debug("waiting for hangup")
	scope, done := c.abortable(ctx)
	defer done()
	if _, err := c.hook.WaitForInactive(scope, 0); err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
