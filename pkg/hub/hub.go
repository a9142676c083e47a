package hub

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// queueSize bounds both the hub's inbound queue and each client's outbox.
const queueSize = 256

// Hub fans JSON messages out to websocket clients. All membership changes
// and sends happen on the Run goroutine.
type Hub struct {
	logger *slog.Logger

	in    chan Message
	join  chan *Client
	leave chan *Client
	done  chan struct{}

	count atomic.Int32
}

// New creates a stopped hub. name only labels its log lines.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With("component", "hub", "hub", name),
		in:     make(chan Message, queueSize),
		join:   make(chan *Client),
		leave:  make(chan *Client),
		done:   make(chan struct{}),
	}
}

// Run delivers messages until ctx ends, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	members := make(map[*Client]struct{})
	drop := func(c *Client) {
		if _, ok := members[c]; ok {
			delete(members, c)
			close(c.outbox)
			h.count.Store(int32(len(members)))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range members {
				drop(c)
			}
			return
		case c := <-h.join:
			members[c] = struct{}{}
			h.count.Store(int32(len(members)))
			h.logger.Debug("client joined", "clients", len(members))
		case c := <-h.leave:
			drop(c)
			h.logger.Debug("client left", "clients", len(members))
		case msg := <-h.in:
			for c := range members {
				select {
				case c.outbox <- msg:
				default:
					drop(c)
					h.logger.Warn("dropped slow client")
				}
			}
		}
	}
}

// Broadcast queues msg for every client. It never blocks; when the hub is
// backed up the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.in <- msg:
	default:
		h.logger.Warn("hub queue full, dropping message", "type", msg.Type)
	}
}

// BroadcastJSON encodes v and broadcasts it as a message of type typ.
func (h *Hub) BroadcastJSON(typ string, v any) error {
	msg, err := NewMessage(typ, v)
	if err != nil {
		return err
	}
	h.Broadcast(msg)
	return nil
}

// ClientCount is the number of connected clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Done is closed when Run returns.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
