// Package session binds inbound wire actions to worldstate mutations and
// runs the periodic broadcaster: per-connection handling, a ticker-driven
// broadcast loop, and a registry of live connections, collapsed to a
// single global world (no matchmaking, no multiple worlds).
package session

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/borgaar/netcode/internal/transport"
	"github.com/borgaar/netcode/internal/wire"
	"github.com/borgaar/netcode/internal/worldstate"
)

// Metrics is the narrow interface the session registry reports counters
// through. internal/metrics implements this over prometheus client_golang;
// nil is accepted and treated as a no-op sink, so this package carries no
// hard dependency on the metrics wiring.
type Metrics interface {
	IncConnections()
	DecConnections()
	IncCheating()
	IncUnknownPlayer()
	IncParseError()
}

type noopMetrics struct{}

func (noopMetrics) IncConnections()   {}
func (noopMetrics) DecConnections()   {}
func (noopMetrics) IncCheating()      {}
func (noopMetrics) IncUnknownPlayer() {}
func (noopMetrics) IncParseError()    {}

// Registry owns the single authoritative world and every live connection.
// It is the transport.Handler implementation the HTTP upgrader dispatches
// into.
type Registry struct {
	mu      sync.RWMutex
	world   *worldstate.State
	byConn  map[*transport.Conn]uint64 // conn -> player id, once joined
	metrics Metrics

	stopBroadcast chan struct{}
}

// NewRegistry creates a registry over a fresh world state. Call
// StartBroadcaster to begin the periodic state broadcast.
func NewRegistry(metrics Metrics) *Registry {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Registry{
		world:         worldstate.New(time.Now()),
		byConn:        make(map[*transport.Conn]uint64),
		metrics:       metrics,
		stopBroadcast: make(chan struct{}),
	}
}

// HandleAction dispatches one inbound action to the appropriate worldstate
// mutation.
func (r *Registry) HandleAction(conn *transport.Conn, a wire.Action) {
	switch a.Kind {
	case wire.KindJoin:
		r.handleJoin(conn)
	case wire.KindJump:
		r.handleJump(conn, a)
	case wire.KindMove:
		r.handleMove(conn, a)
	}
}

func (r *Registry) handleJoin(conn *transport.Conn) {
	id := r.world.PlayerJoin()

	r.mu.Lock()
	r.byConn[conn] = id
	r.mu.Unlock()

	r.metrics.IncConnections()

	payload, err := wire.EncodeJoinResponse(id)
	if err != nil {
		log.Printf("failed to encode join response: %v", err)
		return
	}
	conn.Send(wire.ChannelJoin, payload)

	log.Printf("player %d joined", id)
}

func (r *Registry) handleJump(conn *transport.Conn, a wire.Action) {
	if a.Jump == nil {
		return
	}
	if err := r.world.PlayerJump(a.PlayerID, a.Jump.At); err != nil {
		r.reportError(conn, err)
	}
}

func (r *Registry) handleMove(conn *transport.Conn, a wire.Action) {
	if a.Move == nil {
		return
	}
	err := r.world.PlayerMove(a.PlayerID, a.Move.DeltaX, a.Move.ID, time.Now())
	if err != nil {
		// A *CheatingError still means the (clamped) move was applied and
		// acknowledged; the error is informational for this client only.
		r.reportError(conn, err)
	}
}

func (r *Registry) reportError(conn *transport.Conn, err error) {
	var unknown *worldstate.UnknownPlayerError
	var cheating *worldstate.CheatingError
	switch {
	case errors.As(err, &unknown):
		r.metrics.IncUnknownPlayer()
	case errors.As(err, &cheating):
		r.metrics.IncCheating()
	}

	payload, encErr := wire.EncodeError(err.Error())
	if encErr != nil {
		log.Printf("failed to encode error payload: %v", encErr)
		return
	}
	conn.Send(wire.ChannelError, payload)
}

// HandleParseError counts a malformed inbound payload. The transport layer
// sends the connection its Error reply itself, right after this call; world
// state is left untouched.
func (r *Registry) HandleParseError(conn *transport.Conn, err error) {
	r.metrics.IncParseError()
}

// HandleDisconnect runs player_leave exactly once for the connection's
// remembered id, if it ever joined.
func (r *Registry) HandleDisconnect(conn *transport.Conn) {
	r.mu.Lock()
	id, ok := r.byConn[conn]
	if ok {
		delete(r.byConn, conn)
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	if err := r.world.PlayerLeave(id); err != nil {
		log.Printf("disconnect cleanup for player %d: %v", id, err)
	}
	r.metrics.DecConnections()
}

// StartBroadcaster starts the single process-wide broadcaster goroutine,
// ticking at interval (recommended config.StateUpdateInterval). Never
// awaits per-client I/O under the world lock: Tick() acquires the lock
// only to stamp/serialize/clear, and broadcasting to connections happens
// strictly after the lock is released.
func (r *Registry) StartBroadcaster(interval time.Duration) {
	go r.broadcastLoop(interval)
}

func (r *Registry) broadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopBroadcast:
			return
		case <-ticker.C:
			r.broadcastOnce()
		}
	}
}

func (r *Registry) broadcastOnce() {
	data, err := r.world.Tick(time.Now())
	if err != nil {
		log.Printf("failed to serialize snapshot: %v", err)
		return
	}

	r.mu.RLock()
	conns := make([]*transport.Conn, 0, len(r.byConn))
	for c := range r.byConn {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	for _, c := range conns {
		if err := c.Send(wire.ChannelState, data); err != nil {
			// Logged and otherwise ignored: the next tick resynchronizes
			// this client.
			log.Printf("broadcast to %s failed: %v", c.RemoteAddr(), err)
		}
	}
}

// Stop halts the broadcaster. Safe to call once; the process is expected
// to exit shortly after.
func (r *Registry) Stop() {
	close(r.stopBroadcast)
}

// ConnectionCount returns the number of joined players, for /stats style
// reporting.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}
