// Package transport implements the bidirectional, event-named channel the
// rest of the server treats as an external collaborator: a best-effort,
// per-connection-FIFO message substrate over WebSocket.
package transport

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/borgaar/netcode/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 8192
	sendBufferSize = 256
)

// envelope wraps a channel-named payload for the single WebSocket stream,
// multiplexing several logical channels over one socket.
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Handler dispatches inbound actions and disconnects for one connection.
// internal/session implements this.
type Handler interface {
	HandleAction(conn *Conn, a wire.Action)
	HandleDisconnect(conn *Conn)
	HandleParseError(conn *Conn, err error)
}

// Conn is a single client connection, multiplexing the action/state/join/
// error channels over one WebSocket.
type Conn struct {
	ws       *websocket.Conn
	handler  Handler
	sendChan chan envelope
	done     chan struct{}
}

// Upgrader upgrades incoming HTTP requests to WebSocket connections and
// spawns their read/write pumps.
type Upgrader struct {
	handler  Handler
	upgrader websocket.Upgrader
}

// NewUpgrader builds an Upgrader that dispatches to handler. CORS is wide
// open when enableCORS is true (acceptable for a demo server behind no
// reverse proxy; disable in production deployments). When false, gorilla's
// default same-origin check applies.
func NewUpgrader(handler Handler, enableCORS bool) *Upgrader {
	u := &Upgrader{
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if enableCORS {
		u.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return u
}

// ServeHTTP upgrades the connection and starts its pumps.
func (u *Upgrader) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := &Conn{
		ws:       ws,
		handler:  u.handler,
		sendChan: make(chan envelope, sendBufferSize),
		done:     make(chan struct{}),
	}

	log.Printf("new connection from %s", ws.RemoteAddr())

	go conn.writePump()
	go conn.readPump()
}

// Send queues a payload for channel to be written to this connection.
// Non-blocking: drops the message if the outbound buffer is full, so a
// slow client never stalls the caller (the broadcaster in particular must
// never block on a single client).
func (c *Conn) Send(channel string, payload []byte) error {
	select {
	case c.sendChan <- envelope{Channel: channel, Payload: payload}:
		return nil
	case <-c.done:
		return errors.New("connection closed")
	default:
		return nil
	}
}

// Close shuts the connection down. Safe to call multiple times.
func (c *Conn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.ws.Close()
}

// RemoteAddr returns the client's address for logging.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return

		case env := <-c.sendChan:
			data, err := json.Marshal(env)
			if err != nil {
				log.Printf("failed to encode envelope for channel %s: %v", env.Channel, err)
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Conn) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.done:
			return
		default:
		}

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read error: %v", err)
			}
			return
		}

		c.handleMessage(data)
	}
}

func (c *Conn) handleMessage(data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.sendParseError(err)
		return
	}
	if env.Channel != wire.ChannelAction {
		// Clients only ever send on the action channel; ignore anything
		// else rather than failing the connection.
		return
	}

	action, err := wire.Decode(env.Payload)
	if err != nil {
		c.sendParseError(err)
		return
	}

	c.handler.HandleAction(c, action)
}

func (c *Conn) sendParseError(err error) {
	log.Printf("parse error from %s: %v", c.RemoteAddr(), err)
	c.handler.HandleParseError(c, err)

	payload, encErr := wire.EncodeError(err.Error())
	if encErr != nil {
		return
	}
	c.Send(wire.ChannelError, payload)
}

func (c *Conn) cleanup() {
	c.handler.HandleDisconnect(c)
	c.Close()
	log.Printf("connection closed: %s", c.RemoteAddr())
}
