//go:build linux

package gpio

import (
	"fmt"
	"sync"

	rpio "github.com/stianeikeland/go-rpio/v4"
)

// The rpio register mapping is process wide, so it is opened on first use and
// unmapped when the last pin closes.
var (
	rpioMu   sync.Mutex
	rpioRefs int
)

func acquireRPIO() error {
	rpioMu.Lock()
	defer rpioMu.Unlock()
	if rpioRefs == 0 {
		if err := rpio.Open(); err != nil {
			return fmt.Errorf("gpio: open rpio: %w", err)
		}
	}
	rpioRefs++
	return nil
}

func releaseRPIO() error {
	rpioMu.Lock()
	defer rpioMu.Unlock()
	if rpioRefs == 0 {
		return nil
	}
	rpioRefs--
	if rpioRefs == 0 {
		return rpio.Close()
	}
	return nil
}

// openRPIO configures a BCM pin as a pulled-down input and polls it.
func openRPIO(bcm int, cfg Config) (Input, error) {
	if err := acquireRPIO(); err != nil {
		return nil, err
	}
	pin := rpio.Pin(bcm)
	pin.Input()
	pin.PullDown()
	return NewPolled(func() bool { return pin.Read() == rpio.High }, cfg.PollInterval, releaseRPIO), nil
}
