package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-rotary/pkg/hub"
	"github.com/teslashibe/go-rotary/pkg/phone"
)

func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// handleStatus returns the controller state and how many consoles are
// watching the live status stream.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	line := s.getLine()
	if line == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "phone not attached")
	}
	return c.JSON(struct {
		phone.Status
		Watchers int `json:"watchers"`
	}{line.Status(), s.statusHub.ClientCount()})
}

// handleDirectory lists the assigned digits. System prompts stay private.
func (s *Server) handleDirectory(c *fiber.Ctx) error {
	return c.JSON(s.dir.Entries())
}

// handleCall returns the call in progress with its transcript
func (s *Server) handleCall(c *fiber.Ctx) error {
	line := s.getLine()
	if line == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "phone not attached")
	}
	call := line.Current()
	if call == nil {
		return errorJSON(c, fiber.StatusNotFound, "no call in progress")
	}
	return c.JSON(CallView{CallInfo: call.Info(), Turns: call.Transcript.Turns()})
}

// handleLogs returns recent log entries
func (s *Server) handleLogs(c *fiber.Ctx) error {
	return c.JSON(s.Logs())
}

func (s *Server) handleStages(c *fiber.Ctx) error {
	if s.metrics == nil {
		return errorJSON(c, fiber.StatusNotFound, "metrics disabled")
	}
	return c.JSON(s.metrics.Stages())
}

// handleAbort ends the current call
func (s *Server) handleAbort(c *fiber.Ctx) error {
	line := s.getLine()
	if line == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "phone not attached")
	}
	aborted := line.Abort()
	s.logger.Info("abort requested", "remote", c.IP(), "aborted", aborted)
	if !aborted {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"aborted": false})
	}
	return c.JSON(fiber.Map{"aborted": true})
}

// handleStatusWS streams state changes and transcript turns, starting with
// a status snapshot.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	var greeting []hub.Message
	if line := s.getLine(); line != nil {
		if msg, err := hub.NewMessage("status", line.Status()); err == nil {
			greeting = append(greeting, msg)
		}
	}
	if client := hub.NewClient(s.statusHub, c, greeting...); client != nil {
		client.Run()
	}
}

// handleLogsWS streams log entries, starting with the buffered ones.
func (s *Server) handleLogsWS(c *websocket.Conn) {
	var greeting []hub.Message
	for _, entry := range s.Logs() {
		if msg, err := hub.NewMessage("log", entry); err == nil {
			greeting = append(greeting, msg)
		}
	}
	if len(greeting) > 200 {
		greeting = greeting[len(greeting)-200:]
	}
	if client := hub.NewClient(s.logHub, c, greeting...); client != nil {
		client.Run()
	}
}
