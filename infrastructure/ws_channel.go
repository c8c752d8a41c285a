package infrastructure

import (
	"sync"
	"time"

	"slotbridge/protocol"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadBuffer   = 64
)

// WebsocketChannel adapts a websocket connection to the Channel interface.
// This is the sandboxed-mode transport: the game surface runs in a browser
// frame and speaks JSON envelopes over the socket.
type WebsocketChannel struct {
	conn *websocket.Conn
	in   chan protocol.Envelope

	writeMu sync.Mutex
	mu      sync.Mutex
	closed  bool
}

// NewWebsocketChannel wraps an upgraded connection and starts its read loop
func NewWebsocketChannel(conn *websocket.Conn) *WebsocketChannel {
	ch := &WebsocketChannel{
		conn: conn,
		in:   make(chan protocol.Envelope, wsReadBuffer),
	}
	go ch.readLoop()
	return ch
}

func (c *WebsocketChannel) readLoop() {
	defer close(c.in)
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithFields(log.Fields{"error": err}).Warn("Websocket read failed")
			}
			return
		}
		c.in <- env
	}
}

// Send writes an envelope as a JSON text frame
func (c *WebsocketChannel) Send(env protocol.Envelope) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrChannelClosed
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(env)
}

// Receive returns the inbound envelope stream. The channel closes when the
// socket does.
func (c *WebsocketChannel) Receive() <-chan protocol.Envelope {
	return c.in
}

// Close closes the underlying socket
func (c *WebsocketChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	c.writeMu.Unlock()

	return c.conn.Close()
}
