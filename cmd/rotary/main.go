// Rotary turns a vintage rotary phone into a voice front end for a chat
// model. Lift the handset, dial a digit, talk to whoever answers.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-rotary/internal/config"
	rlog "github.com/teslashibe/go-rotary/internal/log"
	"github.com/teslashibe/go-rotary/pkg/app"
)

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	rlog.Init(cfg.LogLevel, cfg.LogFormat)
	logger := rlog.Component("main")

	a, err := app.New(cfg, rlog.L())
	if err != nil {
		var missing *config.MissingCredentialsError
		if errors.As(err, &missing) {
			logger.Error("missing credentials", "names", missing.Names)
		} else {
			logger.Error("configuration error", "error", err)
		}
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	if err := a.Run(ctx); err != nil {
		logger.Error("runtime error", "error", err)
		a.Shutdown()
		os.Exit(1)
	}
}

// parseFlags loads the environment and applies command line overrides.
func parseFlags() (config.Config, error) {
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	noSpeak := flag.Bool("no-speak", false, "Log speech instead of playing it")
	skipDialing := flag.Bool("skip-dialing", false, "Answer the default role without reading the dial")
	testDigit := flag.Int("test-digit", -1, "Connect straight to this digit (1-9)")
	roles := flag.String("roles", "", "Roles file (overrides ROLES_FILE)")
	console := flag.String("console", "", "Operator console address, e.g. :8080 (overrides CONSOLE_ADDR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}

	if *debug {
		cfg.LogLevel = "debug"
	}
	if *noSpeak {
		cfg.Speak = false
	}
	if *skipDialing {
		cfg.SkipDialing = true
	}
	if *testDigit != -1 {
		if *testDigit < 1 || *testDigit > 9 {
			return cfg, fmt.Errorf("-test-digit must be between 1 and 9, got %d", *testDigit)
		}
		cfg.TestDigit = *testDigit
	}
	if *roles != "" {
		cfg.RolesFile = *roles
	}
	if *console != "" {
		cfg.ConsoleAddr = *console
	}
	return cfg, nil
}
