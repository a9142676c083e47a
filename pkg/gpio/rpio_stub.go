//go:build !linux

package gpio

import "fmt"

// openRPIO returns an error on non-Linux platforms.
func openRPIO(bcm int, cfg Config) (Input, error) {
	return nil, fmt.Errorf("gpio: rpio is only available on Linux (pin %d)", bcm)
}
