package hub

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	wrote     chan Message
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{wrote: make(chan Message, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	<-c.closed
	return 0, nil, io.EOF
}

func (c *fakeConn) WriteJSON(v any) error {
	c.wrote <- v.(Message)
	return nil
}

func (c *fakeConn) WriteMessage(int, []byte) error    { return nil }
func (c *fakeConn) SetReadLimit(int64)                {}
func (c *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}
func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) next(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-c.wrote:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message written")
		return Message{}
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("ClientCount() = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestHubBroadcast(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := New("status", nil)
	go h.Run(ctx)

	hello, err := NewMessage("status", map[string]string{"state": "idle"})
	if err != nil {
		t.Fatal(err)
	}
	conn := newFakeConn()
	client := NewClient(h, conn, hello)
	if client == nil {
		t.Fatal("NewClient() = nil on a running hub")
	}
	go client.Run()
	waitClients(t, h, 1)

	if msg := conn.next(t); msg.Type != "status" || string(msg.Data) != `{"state":"idle"}` {
		t.Errorf("greeting = %s %s", msg.Type, msg.Data)
	}

	if err := h.BroadcastJSON("turn", map[string]string{"text": "Alice"}); err != nil {
		t.Fatal(err)
	}
	msg := conn.next(t)
	var body map[string]string
	if err := json.Unmarshal(msg.Data, &body); err != nil || msg.Type != "turn" || body["text"] != "Alice" {
		t.Errorf("broadcast = %s %s (%v)", msg.Type, msg.Data, err)
	}

	conn.Close()
	waitClients(t, h, 0)
}

func TestHubStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := New("logs", nil)
	go h.Run(ctx)

	conn := newFakeConn()
	client := NewClient(h, conn)
	go client.Run()
	waitClients(t, h, 1)

	cancel()
	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("client connection not closed")
	}

	if NewClient(h, newFakeConn()) != nil {
		t.Error("NewClient() on a stopped hub should return nil")
	}
}
