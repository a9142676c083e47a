package gpio

import (
	"sync"
	"time"
)

// DefaultPollInterval is how often a Polled input samples its pin.
const DefaultPollInterval = 2 * time.Millisecond

// Polled feeds a Line by sampling a read function in a background goroutine.
type Polled struct {
	*Line

	read     func() bool
	interval time.Duration
	onClose  func() error

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewPolled starts sampling read every interval. onClose, if set, runs once
// after sampling stops.
func NewPolled(read func() bool, interval time.Duration, onClose func() error) *Polled {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	p := &Polled{
		Line:     NewLine(read()),
		read:     read,
		interval: interval,
		onClose:  onClose,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go p.loop()
	return p
}

func (p *Polled) loop() {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.Set(p.read())
		}
	}
}

// Close stops sampling.
func (p *Polled) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		if p.onClose != nil {
			p.closeErr = p.onClose()
		}
	})
	return p.closeErr
}

var _ Input = (*Polled)(nil)
