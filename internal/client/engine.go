// Package client implements the client-side latency-hiding pipeline:
// client-side prediction, server reconciliation, and entity interpolation,
// composed over an unreliable acknowledgement loop.
//
// Engine is driven once per rendering frame by an external collaborator;
// the render/input surface itself is out of scope here. Engine is
// otherwise single-threaded cooperative: all game-state mutation happens
// on the frame driver's goroutine, and the only other shared mutable
// state is the simulated-ping value in internal/latency, which is already
// safe for concurrent access.
package client

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/borgaar/netcode/internal/config"
	"github.com/borgaar/netcode/internal/latency"
	"github.com/borgaar/netcode/internal/wire"
	"github.com/borgaar/netcode/internal/worldstate"
	"github.com/borgaar/netcode/pkg/jumpcurve"
)

// Sender transmits an outbound action. internal/client's WebSocket adapter
// implements this; tests substitute a fake that records sent actions.
type Sender interface {
	Send(a wire.Action)
}

// Engine is the client-side netcode pipeline: three layers of authoritative
// belief (local/target/previous) plus what's actually handed to the
// renderer (display), the unacknowledged-move log, and the three mode
// switches.
type Engine struct {
	// All fields below are touched exclusively from the frame driver's
	// goroutine except ping, which is its own concurrency-safe shim read
	// by background delay goroutines.
	local    worldstate.Snapshot
	target   worldstate.Snapshot
	previous worldstate.Snapshot
	display  worldstate.Snapshot

	playerID *uint64

	unacknowledged map[uuid.UUID]float64

	ping *latency.Shim
	// pingCacheMS is the last simulated-ping value sampled while draining a
	// snapshot. Outbound delays and the interpolator both read this cached
	// sample rather than polling the shim live, so a ping change mid-frame
	// doesn't retroactively alter math already in flight for the current
	// batch of snapshots.
	pingCacheMS uint64

	prediction     bool
	reconciliation bool
	interpolation  bool

	sender Sender

	snapshots chan worldstate.Snapshot
	joins     chan wire.JoinResponse
}

// New creates an Engine that sends outbound actions through sender and
// reads the shared simulated-ping value from ping.
func New(sender Sender, ping *latency.Shim) *Engine {
	return &Engine{
		local:          emptySnapshot(),
		target:         emptySnapshot(),
		previous:       emptySnapshot(),
		display:        emptySnapshot(),
		unacknowledged: make(map[uuid.UUID]float64),
		ping:           ping,
		pingCacheMS:    ping.Ping(),
		prediction:     true,
		reconciliation: true,
		interpolation:  true,
		sender:         sender,
		snapshots:      make(chan worldstate.Snapshot, 64),
		joins:          make(chan wire.JoinResponse, 8),
	}
}

func emptySnapshot() worldstate.Snapshot {
	return worldstate.Snapshot{Players: make(map[uint64]*worldstate.Player)}
}

func cloneSnapshot(s worldstate.Snapshot) worldstate.Snapshot {
	players := make(map[uint64]*worldstate.Player, len(s.Players))
	for id, p := range s.Players {
		players[id] = p.Clone()
	}
	acked := make([]uuid.UUID, len(s.Acknowledged))
	copy(acked, s.Acknowledged)
	return worldstate.Snapshot{Players: players, Timestamp: s.Timestamp, Acknowledged: acked}
}

// EnqueueSnapshot is called by the transport's inbound-delay goroutine,
// after it has already slept half the shim's current simulated ping, to
// hand a decoded state message to the next frame's Update.
func (e *Engine) EnqueueSnapshot(s worldstate.Snapshot) {
	e.snapshots <- s
}

// EnqueueJoinResponse is the join-channel counterpart to EnqueueSnapshot.
func (e *Engine) EnqueueJoinResponse(r wire.JoinResponse) {
	e.joins <- r
}

// Join emits a Join action. Unlike Jump and Move, transmission is
// immediate — there's no prior local state to reconcile against yet.
func (e *Engine) Join() {
	e.sender.Send(wire.NewJoin())
}

// SetSimulatedPing atomically updates the shared simulated latency.
func (e *Engine) SetSimulatedPing(ms uint64) {
	e.ping.SetPing(ms)
}

// PlayerID returns this client's own player id, if joined.
func (e *Engine) PlayerID() (uint64, bool) {
	if e.playerID == nil {
		return 0, false
	}
	return *e.playerID, true
}

// DisplayState returns what should be handed to the renderer this frame.
func (e *Engine) DisplayState() worldstate.Snapshot {
	return e.display
}

// PingCache returns the last-sampled simulated round-trip latency, in ms.
func (e *Engine) PingCache() uint64 {
	return e.pingCacheMS
}

// Prediction, Reconciliation, and Interpolation report the current mode
// switches.
func (e *Engine) Prediction() bool     { return e.prediction }
func (e *Engine) Reconciliation() bool { return e.reconciliation }
func (e *Engine) Interpolation() bool  { return e.interpolation }

// SetPrediction toggles prediction. Disabling prediction also disables
// reconciliation: reconciliation without prediction is meaningless once
// the server is already authoritative for display.
func (e *Engine) SetPrediction(on bool) {
	e.prediction = on
	if !on {
		e.reconciliation = false
	}
}

// SetReconciliation toggles reconciliation. Enabling it implicitly
// enables prediction.
func (e *Engine) SetReconciliation(on bool) {
	e.reconciliation = on
	if on {
		e.prediction = true
	}
}

// SetInterpolation toggles interpolation, independent of the other modes.
func (e *Engine) SetInterpolation(on bool) {
	e.interpolation = on
}

// TogglePrediction, ToggleReconciliation, and ToggleInterpolation flip the
// corresponding mode switch, matching a typical P/R/I debug key binding.
func (e *Engine) TogglePrediction()     { e.SetPrediction(!e.prediction) }
func (e *Engine) ToggleReconciliation() { e.SetReconciliation(!e.reconciliation) }
func (e *Engine) ToggleInterpolation()  { e.SetInterpolation(!e.interpolation) }

// MovePlayer accumulates a local displacement. It does NOT emit a Move
// action immediately — moves are aggregated into local_state and only the
// net discrepancy is sent, once per reconciliation, by the snapshot
// handler below. This bounds the outbound message rate regardless of
// frame rate.
func (e *Engine) MovePlayer(deltaX float64) {
	id, ok := e.PlayerID()
	if !ok {
		return
	}
	if p, ok := e.local.Players[id]; ok {
		p.X += deltaX
	}
	if e.prediction {
		if p, ok := e.display.Players[id]; ok {
			p.X += deltaX
		}
	}
}

// Jump requires the local player to be on the ground, sets the local
// predicted jump time, and (if prediction is on) the display jump time,
// then sends a Jump action after a simulated outbound delay of
// ping_cache/2.
func (e *Engine) Jump(now time.Time) {
	id, ok := e.PlayerID()
	if !ok {
		return
	}
	p, ok := e.local.Players[id]
	if !ok || !jumpcurve.Grounded(p.LastJumpAt, now) {
		return
	}

	jumpAt := now
	p.LastJumpAt = &jumpAt
	if e.prediction {
		if dp, ok := e.display.Players[id]; ok {
			dp.LastJumpAt = &jumpAt
		}
	}

	action := wire.NewJump(id, now)
	e.sendAfterDelay(action)
}

func (e *Engine) sendAfterDelay(a wire.Action) {
	delay := time.Duration(e.pingCacheMS/2) * time.Millisecond
	go func() {
		time.Sleep(delay)
		e.sender.Send(a)
	}()
}

// Update drains every snapshot and join response received since the last
// call, applies prediction/reconciliation per snapshot, then runs the
// interpolator once if enabled: drain, then reconcile, then interpolate.
func (e *Engine) Update(now time.Time) {
	for {
		select {
		case s := <-e.snapshots:
			e.applySnapshot(s)
		default:
			goto drainedSnapshots
		}
	}
drainedSnapshots:

	for {
		select {
		case r := <-e.joins:
			e.applyJoin(r)
		default:
			goto drainedJoins
		}
	}
drainedJoins:

	if e.interpolation {
		e.interpolate(now)
	}
}

func (e *Engine) applyJoin(r wire.JoinResponse) {
	id := r.PlayerID
	e.playerID = &id

	fresh := &worldstate.Player{ID: id, X: 0}
	if _, ok := e.local.Players[id]; !ok {
		e.local.Players[id] = fresh.Clone()
	}
	if _, ok := e.target.Players[id]; !ok {
		e.target.Players[id] = fresh.Clone()
	}
	if _, ok := e.display.Players[id]; !ok {
		e.display.Players[id] = fresh.Clone()
	}
}

func (e *Engine) applySnapshot(s worldstate.Snapshot) {
	// 1. Shift.
	e.previous = e.target
	e.target = s

	// 2. Sample current simulated ping.
	e.pingCacheMS = e.ping.Ping()

	id, ok := e.PlayerID()
	if !ok {
		// 3. No own-player yet: mirror.
		e.local = cloneSnapshot(s)
		e.display = cloneSnapshot(s)
		return
	}

	serverPlayer, ok := s.Players[id]
	if !ok {
		return
	}

	// 4. Remove acknowledged identifiers.
	for moveID := range e.unacknowledged {
		if s.Has(moveID) {
			delete(e.unacknowledged, moveID)
		}
	}

	// 5. Sum in-flight displacement.
	unackDelta := 0.0
	for _, d := range e.unacknowledged {
		unackDelta += d
	}

	// 6. Reconciled position.
	serverX := serverPlayer.X
	reconciled := serverX + unackDelta

	// 7. Discrepancy against our local belief.
	var localX float64
	var localJumpAt *time.Time
	if localPlayer, ok := e.local.Players[id]; ok {
		localX = localPlayer.X
		localJumpAt = localPlayer.LastJumpAt
	} else {
		localX = serverX
		localJumpAt = serverPlayer.LastJumpAt
	}
	discrepancy := localX - reconciled

	// 9. Replace local with the snapshot, display with the previous clean
	// baseline, then overwrite the own-player entries.
	e.local = cloneSnapshot(s)
	e.display = cloneSnapshot(e.previous)

	if p, ok := e.local.Players[id]; ok {
		p.X = reconciled + discrepancy
		p.LastJumpAt = localJumpAt
	}
	if e.reconciliation {
		if p, ok := e.display.Players[id]; ok {
			p.X = reconciled + discrepancy
			p.LastJumpAt = localJumpAt
		} else {
			e.display.Players[id] = &worldstate.Player{ID: id, X: reconciled + discrepancy, LastJumpAt: localJumpAt}
		}
	}

	// 10. Emit a Move if the discrepancy is significant.
	if math.Abs(discrepancy) >= config.MoveDiscrepancyThreshold {
		e.scheduleMove(id, discrepancy)
	}
}

func (e *Engine) scheduleMove(playerID uint64, discrepancy float64) {
	action, moveID := wire.NewMove(playerID, discrepancy)
	e.unacknowledged[moveID] = discrepancy
	e.sendAfterDelay(action)
}
