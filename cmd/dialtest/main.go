// Dialtest prints hook transitions and decoded digits. Use it to check the
// wiring before running the phone.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rotary/internal/config"
	rlog "github.com/teslashibe/go-rotary/internal/log"
	"github.com/teslashibe/go-rotary/pkg/gpio"
	"github.com/teslashibe/go-rotary/pkg/rotary"
)

func main() {
	debug := flag.Bool("debug", false, "Log every pulse train")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}
	level := cfg.LogLevel
	if *debug {
		level = "debug"
	}
	rlog.Init(level, cfg.LogFormat)
	logger := rlog.Component("dialtest")

	gcfg := gpio.DefaultConfig()
	gcfg.Backend = gpio.Backend(cfg.GPIOBackend)
	gcfg.HookPin, gcfg.DialPin = cfg.HookGPIO, cfg.DialGPIO
	pins, err := gpio.Open(gcfg, rlog.L())
	if err != nil {
		logger.Error("gpio", "error", err)
		os.Exit(1)
	}
	defer pins.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if pins.Backend == gpio.BackendNone {
		logger.Warn("no gpio hardware, the hook reads lifted and the dial never moves")
	}
	go watchHook(ctx, pins)

	dec := rotary.NewDecoder(pins.Dial, rlog.L())
	fmt.Println("Lift the handset and dial. Ctrl-C to quit.")
	for {
		if _, err := dec.WaitForDial(ctx, 0); err != nil {
			return
		}
		digit, err := dec.ReadDigit(ctx)
		if err != nil {
			return
		}
		if digit > 9 {
			fmt.Printf("dialed: %d pulses (not a digit)\n", digit)
			continue
		}
		fmt.Printf("dialed: %d\n", digit)
	}
}

func watchHook(ctx context.Context, pins *gpio.Pins) {
	hook := pins.Hook
	for {
		lifted := pins.OffHook()
		if lifted {
			fmt.Println("hook: off (handset lifted)")
		} else {
			fmt.Println("hook: on (handset down)")
		}

		wait := hook.WaitForInactive
		if !lifted {
			wait = hook.WaitForActive
		}
		if _, err := wait(ctx, 0); err != nil {
			return
		}
	}
}
