package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/borgaar/netcode/internal/latency"
	"github.com/borgaar/netcode/internal/wire"
	"github.com/borgaar/netcode/internal/worldstate"
)

type fakeSender struct {
	sent []wire.Action
}

func (f *fakeSender) Send(a wire.Action) {
	f.sent = append(f.sent, a)
}

func TestLerp_Endpoints(t *testing.T) {
	assert.Equal(t, 1.0, Lerp(1, 5, 0))
	assert.Equal(t, 5.0, Lerp(1, 5, 1))
	assert.Equal(t, 3.0, Lerp(1, 5, 0.5))
}

func TestLerp_Extrapolates(t *testing.T) {
	assert.Equal(t, 9.0, Lerp(1, 5, 2))
}

func snapshotAt(ts time.Time, players map[uint64]*worldstate.Player) worldstate.Snapshot {
	return worldstate.Snapshot{Players: players, Timestamp: ts}
}

func player(id uint64, x float64) *worldstate.Player {
	return &worldstate.Player{ID: id, X: x}
}

func TestApplySnapshot_MirrorsWhenNotYetJoined(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)

	s := snapshotAt(time.Now(), map[uint64]*worldstate.Player{0: player(0, 1.5)})
	e.applySnapshot(s)

	assert.Equal(t, 1.5, e.local.Players[0].X)
	assert.Equal(t, 1.5, e.display.Players[0].X)
}

func TestApplySnapshot_ReconciliationConvergesDiscrepancy(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)

	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	// The local prediction has run ahead of the server by 2 units.
	e.local.Players[0].X = 2.0
	e.display.Players[0].X = 2.0

	now := time.Now()
	s := snapshotAt(now, map[uint64]*worldstate.Player{0: player(0, 0.0)})
	e.applySnapshot(s)

	// Discrepancy of 2.0 units is scheduled as a corrective Move and the
	// local belief is pinned to reconciled+discrepancy == the prior local X.
	assert.InDelta(t, 2.0, e.local.Players[0].X, 1e-9)
	require.Len(t, e.unacknowledged, 1)

	var sent float64
	for _, d := range e.unacknowledged {
		sent = d
	}
	assert.InDelta(t, 2.0, sent, 1e-9)
}

func TestApplySnapshot_AcknowledgedMoveStopsReapplying(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)
	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	// The local belief already includes the 1.0 unit the in-flight move sent.
	e.local.Players[0].X = 1.0
	moveID := uuid.New()
	e.unacknowledged[moveID] = 1.0

	now := time.Now()
	s := worldstate.Snapshot{
		Players:      map[uint64]*worldstate.Player{0: player(0, 1.0)},
		Timestamp:    now,
		Acknowledged: []uuid.UUID{moveID},
	}
	e.applySnapshot(s)

	assert.Empty(t, e.unacknowledged)
}

func TestApplySnapshot_NoDiscrepancyEmitsNoMove(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)
	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	now := time.Now()
	s := snapshotAt(now, map[uint64]*worldstate.Player{0: player(0, 0.0)})
	e.applySnapshot(s)

	assert.Empty(t, e.unacknowledged)
}

func TestInterpolate_RemotePlayerAtTarget(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)
	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	t0 := time.Now()
	t1 := t0.Add(333 * time.Millisecond)

	prevSnap := snapshotAt(t0, map[uint64]*worldstate.Player{
		0: player(0, 0),
		1: player(1, 0),
	})
	e.applySnapshot(prevSnap)

	targetSnap := snapshotAt(t1, map[uint64]*worldstate.Player{
		0: player(0, 0),
		1: player(1, 10),
	})
	e.applySnapshot(targetSnap)

	// Evaluate exactly at the target timestamp with zero simulated latency:
	// u should land at 1.0, i.e. fully at the target.
	e.interpolate(t1)
	assert.InDelta(t, 10.0, e.local.Players[1].X, 1e-6)
}

func TestInterpolate_OwnPlayerUntouched(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)
	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	t0 := time.Now()
	t1 := t0.Add(333 * time.Millisecond)

	e.applySnapshot(snapshotAt(t0, map[uint64]*worldstate.Player{0: player(0, 0)}))
	e.local.Players[0].X = 3.0 // simulate an in-flight predicted position

	e.applySnapshot(snapshotAt(t1, map[uint64]*worldstate.Player{0: player(0, 3.0)}))
	before := e.local.Players[0].X
	e.interpolate(t1.Add(100 * time.Millisecond))

	assert.Equal(t, before, e.local.Players[0].X)
}

func TestModeToggles(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)

	assert.True(t, e.Prediction())
	assert.True(t, e.Reconciliation())
	assert.True(t, e.Interpolation())

	e.SetPrediction(false)
	assert.False(t, e.Prediction())
	assert.False(t, e.Reconciliation(), "disabling prediction must disable reconciliation")

	e.SetReconciliation(true)
	assert.True(t, e.Prediction(), "enabling reconciliation must re-enable prediction")

	e.ToggleInterpolation()
	assert.False(t, e.Interpolation())
}

func TestJump_RequiresGrounded(t *testing.T) {
	sender := &fakeSender{}
	ping := latency.New(0)
	e := New(sender, ping)
	e.applyJoin(wire.JoinResponse{PlayerID: 0})

	now := time.Now()
	e.Jump(now)
	time.Sleep(10 * time.Millisecond) // let the zero-delay send goroutine run
	require.Len(t, sender.sent, 1)

	// A second jump attempt while still airborne must be ignored.
	e.Jump(now.Add(50 * time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	assert.Len(t, sender.sent, 1)
}
