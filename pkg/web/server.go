// Package web serves the operator console: live line status, the current
// transcript, recent logs, metrics, and an abort button for runaway calls.
package web

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rotary/internal/observability"
	"github.com/teslashibe/go-rotary/pkg/directory"
	"github.com/teslashibe/go-rotary/pkg/hub"
	"github.com/teslashibe/go-rotary/pkg/phone"
)

// Line is the phone as the console sees it. *phone.Controller implements it.
type Line interface {
	Status() phone.Status
	Current() *phone.Call
	Abort() bool
}

// LogEntry represents a log line for the console
type LogEntry struct {
	Time      time.Time `json:"time"`
	Level     string    `json:"level"`
	Component string    `json:"component,omitempty"`
	Message   string    `json:"message"`
}

// CallView is the current call with its transcript.
type CallView struct {
	phone.CallInfo
	Turns []phone.Turn `json:"turns"`
}

// Config configures the console.
type Config struct {
	Addr string
	// LogBuffer is how many log entries /api/logs keeps.
	LogBuffer int
}

// Server is the operator console server. It implements phone.Observer so
// state changes and transcript turns reach connected browsers.
type Server struct {
	phone.NopObserver

	app     *fiber.App
	cfg     Config
	dir     *directory.Directory
	metrics *observability.Metrics
	logger  *slog.Logger

	lineMu sync.RWMutex
	line   Line

	logs   []LogEntry
	logsMu sync.RWMutex

	// Hubs for websocket broadcast
	statusHub *hub.Hub
	logHub    *hub.Hub
}

// NewServer creates the console. metrics may be nil, which disables
// /metrics and /api/stages.
func NewServer(cfg Config, dir *directory.Directory, metrics *observability.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LogBuffer <= 0 {
		cfg.LogBuffer = 500
	}
	s := &Server{
		cfg:       cfg,
		dir:       dir,
		metrics:   metrics,
		logger:    logger.With("component", "web"),
		logs:      make([]LogEntry, 0, cfg.LogBuffer),
		statusHub: hub.New("status", logger),
		logHub:    hub.New("logs", logger),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Rotary Operator Console",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/directory", s.handleDirectory)
	api.Get("/call", s.handleCall)
	api.Get("/logs", s.handleLogs)
	api.Get("/stages", s.handleStages)
	api.Post("/abort", s.handleAbort)

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))
	}

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))
	app.Get("/ws/logs", websocket.New(s.handleLogsWS))

	s.app = app
	return s
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// SetLine attaches the phone. Until then the line endpoints answer 503.
func (s *Server) SetLine(line Line) {
	s.lineMu.Lock()
	s.line = line
	s.lineMu.Unlock()
}

func (s *Server) getLine() Line {
	s.lineMu.RLock()
	defer s.lineMu.RUnlock()
	return s.line
}

// Run starts the hubs and serves until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	go s.statusHub.Run(ctx)
	go s.logHub.Run(ctx)

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("operator console listening", "addr", s.cfg.Addr)
		errc <- s.app.Listen(s.cfg.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}
}

// AddLog stores a log entry and broadcasts it to clients
func (s *Server) AddLog(entry LogEntry) {
	s.logsMu.Lock()
	s.logs = append(s.logs, entry)
	if over := len(s.logs) - s.cfg.LogBuffer; over > 0 {
		s.logs = s.logs[over:]
	}
	s.logsMu.Unlock()

	s.logHub.BroadcastJSON("log", entry)
}

// Logs returns a copy of the buffered log entries.
func (s *Server) Logs() []LogEntry {
	s.logsMu.RLock()
	defer s.logsMu.RUnlock()
	return append([]LogEntry(nil), s.logs...)
}

type stateEvent struct {
	State phone.State `json:"state"`
	Digit int         `json:"digit"`
}

type turnEvent struct {
	CallID string `json:"call_id"`
	phone.Turn
}

// StateChanged implements phone.Observer.
func (s *Server) StateChanged(state phone.State, digit int) {
	s.statusHub.BroadcastJSON("state", stateEvent{State: state, Digit: digit})
}

// CallStarted implements phone.Observer.
func (s *Server) CallStarted(call phone.CallInfo) {
	s.statusHub.BroadcastJSON("call_started", call)
}

// TurnAdded implements phone.Observer.
func (s *Server) TurnAdded(callID string, turn phone.Turn) {
	s.statusHub.BroadcastJSON("turn", turnEvent{CallID: callID, Turn: turn})
}

// CallEnded implements phone.Observer.
func (s *Server) CallEnded(summary phone.CallSummary) {
	s.statusHub.BroadcastJSON("call_ended", summary)
}

var _ phone.Observer = (*Server)(nil)
