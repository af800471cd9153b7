package server

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"
)

// Envelope is the wire frame: a named event and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outEnvelope is the outbound counterpart; Data is marshalled in place.
type outEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// wsConn adapts a websocket to the room's Conn surface. Writes are serialized
// with a mutex so concurrent emissions cannot interleave frames.
type wsConn struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, done: make(chan struct{})}
}

// SendEvent writes one event frame to the socket.
func (c *wsConn) SendEvent(event string, data interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return websocket.JSON.Send(c.ws, outEnvelope{Event: event, Data: data})
}

// Receive blocks for the next inbound frame.
func (c *wsConn) Receive(frame *Envelope) error {
	return websocket.JSON.Receive(c.ws, frame)
}

// Close shuts the socket down. Safe to call more than once.
func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.ws.Close()
		close(c.done)
	})
	return err
}

// Done is closed once the connection has been shut down.
func (c *wsConn) Done() <-chan struct{} {
	return c.done
}
