package client

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/borgaar/netcode/internal/latency"
	"github.com/borgaar/netcode/internal/wire"
	"github.com/borgaar/netcode/internal/worldstate"
)

// envelope mirrors internal/transport's wire framing: one WebSocket stream
// multiplexing the action/state/join/error channels.
type envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Conn is the client side of the transport: it dials the server, satisfies
// client.Sender for outbound actions, and delays inbound delivery by the
// simulated one-way latency before handing decoded messages to the Engine.
//
// Outbound delay already happens inside Engine.sendAfterDelay; Conn.Send
// transmits immediately once called.
type Conn struct {
	ws     *websocket.Conn
	engine *Engine
	ping   *latency.Shim
}

// Dial connects to a netcode server at url (e.g. "ws://localhost:7878/")
// and starts its read loop. The engine is wired to this Conn as its Sender
// by the caller, typically via New(conn, ping) followed by conn.Attach(e).
func Dial(url string, ping *latency.Shim) (*Conn, error) {
	header := http.Header{}
	ws, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", url, err)
	}
	return &Conn{ws: ws, ping: ping}, nil
}

// Attach binds the engine this connection delivers decoded messages to, and
// starts the read loop. Must be called once, after the engine has been
// constructed with this Conn as its Sender.
func (c *Conn) Attach(e *Engine) {
	c.engine = e
	go c.readLoop()
}

// Send implements client.Sender: encode and write immediately. Any
// simulated outbound delay has already elapsed by the time Send is called.
func (c *Conn) Send(a wire.Action) {
	payload, err := wire.Encode(a)
	if err != nil {
		log.Printf("client: failed to encode action: %v", err)
		return
	}
	env := envelope{Channel: wire.ChannelAction, Payload: payload}
	data, err := json.Marshal(env)
	if err != nil {
		log.Printf("client: failed to encode envelope: %v", err)
		return
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("client: write failed: %v", err)
	}
}

// Close shuts down the connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}

func (c *Conn) readLoop() {
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			log.Printf("client: read failed: %v", err)
			return
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("client: malformed envelope: %v", err)
			continue
		}

		switch env.Channel {
		case wire.ChannelJoin:
			c.deliverJoin(env.Payload)
		case wire.ChannelState:
			c.deliverState(env.Payload)
		case wire.ChannelError:
			c.logError(env.Payload)
		}
	}
}

// deliverJoin and deliverState apply the inbound simulated-latency delay
// before handing the message to the engine, mirroring the outbound delay
// Engine already applies to Jump/Move. Both read the shim live rather than
// a cached value: they simulate the network, not the engine's own state.
func (c *Conn) deliverJoin(payload json.RawMessage) {
	r, err := wire.DecodeJoinResponse(payload)
	if err != nil {
		log.Printf("client: malformed join response: %v", err)
		return
	}
	delay := c.ping.HalfPing()
	go func() {
		time.Sleep(delay)
		c.engine.EnqueueJoinResponse(r)
	}()
}

func (c *Conn) deliverState(payload json.RawMessage) {
	var s worldstate.Snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		log.Printf("client: malformed state snapshot: %v", err)
		return
	}
	delay := c.ping.HalfPing()
	go func() {
		time.Sleep(delay)
		c.engine.EnqueueSnapshot(s)
	}()
}

func (c *Conn) logError(payload json.RawMessage) {
	message, err := wire.DecodeError(payload)
	if err != nil {
		log.Printf("client: malformed error payload: %v", err)
		return
	}
	log.Printf("client: server reported: %s", message)
}
