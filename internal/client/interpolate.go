package client

import (
	"time"

	"github.com/borgaar/netcode/internal/worldstate"
)

// Lerp linearly interpolates between a and b by u. u is not clamped: mild
// extrapolation past b when u > 1 is intentional — it hides scheduler
// jitter rather than freezing remote players at the target.
func Lerp(a, b, u float64) float64 {
	return a + u*(b-a)
}

// interpolate renders remote players between previous and target, time-
// shifted by the cached one-way simulated latency, so motion looks
// continuous despite the snapshot cadence. The own-player entry is left
// untouched: it already holds the reconciled/predicted position from
// applySnapshot.
func (e *Engine) interpolate(frameNow time.Time) {
	tPrev := e.previous.Timestamp
	tTarget := e.target.Timestamp
	denom := tTarget.Sub(tPrev).Seconds()
	if denom == 0 {
		return
	}

	halfPing := time.Duration(e.pingCacheMS/2) * time.Millisecond
	tNow := frameNow.Add(-halfPing)
	u := tNow.Sub(tPrev).Seconds() / denom

	ownID, hasOwn := e.PlayerID()
	var ownDisplay *worldstate.Player
	if hasOwn {
		ownDisplay = e.display.Players[ownID]
	}

	newLocal := make(map[uint64]*worldstate.Player, len(e.target.Players))
	newDisplay := make(map[uint64]*worldstate.Player, len(e.target.Players))

	for id, tgt := range e.target.Players {
		if hasOwn && id == ownID {
			if own, ok := e.local.Players[ownID]; ok {
				newLocal[ownID] = own
			} else {
				newLocal[ownID] = tgt.Clone()
			}
			if ownDisplay != nil {
				newDisplay[ownID] = ownDisplay
			} else {
				newDisplay[ownID] = tgt.Clone()
			}
			continue
		}

		prev, ok := e.previous.Players[id]
		if !ok {
			prev = tgt
		}

		interpolated := &worldstate.Player{
			ID:         id,
			X:          Lerp(prev.X, tgt.X, u),
			LastJumpAt: tgt.LastJumpAt,
		}
		newLocal[id] = interpolated
		newDisplay[id] = interpolated.Clone()
	}

	e.local.Players = newLocal
	e.display.Players = newDisplay
}
