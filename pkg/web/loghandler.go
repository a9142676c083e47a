package web

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// LogHandler returns a slog.Handler that passes records to next and copies
// those at Info and above into the console's log buffer.
func (s *Server) LogHandler(next slog.Handler) slog.Handler {
	return &logHandler{next: next, server: s}
}

type logHandler struct {
	next      slog.Handler
	server    *Server
	component string
	attrs     []string
	group     string
}

func (h *logHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *logHandler) Handle(ctx context.Context, r slog.Record) error {
	// The hubs log their own drops; copying those would feed back into them.
	if r.Level >= slog.LevelInfo && h.component != "hub" {
		parts := append([]string{r.Message}, h.attrs...)
		component := h.component
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "component" {
				component = a.Value.String()
				return true
			}
			parts = append(parts, h.format(a))
			return true
		})
		h.server.AddLog(LogEntry{
			Time:      r.Time,
			Level:     r.Level.String(),
			Component: component,
			Message:   strings.Join(parts, " "),
		})
	}
	return h.next.Handle(ctx, r)
}

func (h *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.next = h.next.WithAttrs(attrs)
	nh.attrs = append([]string(nil), h.attrs...)
	for _, a := range attrs {
		if a.Key == "component" && h.group == "" {
			nh.component = a.Value.String()
			continue
		}
		nh.attrs = append(nh.attrs, h.format(a))
	}
	return &nh
}

func (h *logHandler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.next = h.next.WithGroup(name)
	if h.group != "" {
		name = h.group + "." + name
	}
	nh.group = name
	return &nh
}

func (h *logHandler) format(a slog.Attr) string {
	key := a.Key
	if h.group != "" {
		key = h.group + "." + key
	}
	return fmt.Sprintf("%s=%v", key, a.Value.Resolve())
}
