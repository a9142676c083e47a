package hub

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeTimeout = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingEvery    = idleTimeout * 9 / 10

	// Browsers only send control frames to the console.
	readLimit = 4 << 10
)

// Conn is the subset of *websocket.Conn a client needs.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one websocket subscriber. Only its writer goroutine touches
// the connection for writing.
type Client struct {
	hub    *Hub
	conn   Conn
	outbox chan Message
}

// NewClient queues greeting ahead of any broadcast and joins the hub. It
// returns nil once the hub has stopped.
func NewClient(h *Hub, conn Conn, greeting ...Message) *Client {
	c := &Client{hub: h, conn: conn, outbox: make(chan Message, queueSize)}
	for _, msg := range greeting {
		c.outbox <- msg
	}
	select {
	case h.join <- c:
		return c
	case <-h.done:
		return nil
	}
}

// Run serves the connection until the peer goes away or the hub drops the
// client. It blocks, so call it from the websocket handler.
func (c *Client) Run() {
	go c.write()

	c.conn.SetReadLimit(readLimit)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(idleTimeout)) }
	extend("")
	c.conn.SetPongHandler(extend)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}

	select {
	case c.hub.leave <- c:
	case <-c.hub.done:
	}
	c.conn.Close()
}

func (c *Client) write() {
	ping := time.NewTicker(pingEvery)
	defer ping.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case msg, ok := <-c.outbox:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			err = c.conn.WriteJSON(msg)
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			err = c.conn.WriteMessage(websocket.PingMessage, nil)
		}
		if err != nil {
			return
		}
	}
}

var _ Conn = (*websocket.Conn)(nil)
