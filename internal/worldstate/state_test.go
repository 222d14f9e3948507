package worldstate

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayerJoin_AssignsMonotonicIDs(t *testing.T) {
	s := New(time.Now())
	a := s.PlayerJoin()
	b := s.PlayerJoin()
	assert.Equal(t, uint64(0), a)
	assert.Equal(t, uint64(1), b)

	snap := s.Snapshot()
	assert.Len(t, snap.Players, 2)
	assert.Equal(t, 0.0, snap.Players[a].X)
}

func TestPlayerLeave_RemovesFromRoster(t *testing.T) {
	s := New(time.Now())
	id := s.PlayerJoin()

	require.NoError(t, s.PlayerLeave(id))
	assert.Len(t, s.Snapshot().Players, 0)
}

func TestPlayerLeave_UnknownPlayer(t *testing.T) {
	s := New(time.Now())
	err := s.PlayerLeave(42)

	var unknown *UnknownPlayerError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, uint64(42), unknown.ID)
}

func TestPlayerJump_RecordsTimestamp(t *testing.T) {
	s := New(time.Now())
	id := s.PlayerJoin()

	jumpAt := time.Now()
	require.NoError(t, s.PlayerJump(id, jumpAt))

	snap := s.Snapshot()
	require.NotNil(t, snap.Players[id].LastJumpAt)
	assert.True(t, snap.Players[id].LastJumpAt.Equal(jumpAt))
}

func TestPlayerJump_UnknownPlayer(t *testing.T) {
	s := New(time.Now())
	err := s.PlayerJump(99, time.Now())

	var unknown *UnknownPlayerError
	assert.ErrorAs(t, err, &unknown)
}

func TestPlayerMove_AppliesWithinCap(t *testing.T) {
	start := time.Now()
	s := New(start)
	id := s.PlayerJoin()

	// 1.0 unit/s over 0.1s => 0.1 units, well under the 2.5 unit/s cap.
	now := start.Add(100 * time.Millisecond)
	err := s.PlayerMove(id, 0.1, uuid.New(), now)
	require.NoError(t, err)

	assert.InDelta(t, 0.1, s.Snapshot().Players[id].X, 1e-9)
}

func TestPlayerMove_ClampsAboveCapAndReportsCheating(t *testing.T) {
	start := time.Now()
	s := New(start)
	id := s.PlayerJoin()

	// 10 units in 0.1s = 100 unit/s, far above the 2.5 unit/s cap.
	now := start.Add(100 * time.Millisecond)
	ackID := uuid.New()
	err := s.PlayerMove(id, 10.0, ackID, now)

	var cheating *CheatingError
	require.ErrorAs(t, err, &cheating)

	expected := MaxUnitsPerSecond * 0.1
	assert.InDelta(t, expected, s.Snapshot().Players[id].X, 1e-9)

	// The clamped move is still acknowledged.
	data, tickErr := s.Tick(now)
	require.NoError(t, tickErr)
	assert.Contains(t, string(data), ackID.String())
}

func TestPlayerMove_ClampsNegativeAboveCap(t *testing.T) {
	start := time.Now()
	s := New(start)
	id := s.PlayerJoin()

	now := start.Add(100 * time.Millisecond)
	err := s.PlayerMove(id, -10.0, uuid.New(), now)

	var cheating *CheatingError
	require.ErrorAs(t, err, &cheating)

	expected := -MaxUnitsPerSecond * 0.1
	assert.InDelta(t, expected, s.Snapshot().Players[id].X, 1e-9)
}

func TestPlayerMove_UnknownPlayer(t *testing.T) {
	s := New(time.Now())
	err := s.PlayerMove(7, 1.0, uuid.New(), time.Now())

	var unknown *UnknownPlayerError
	assert.True(t, errors.As(err, &unknown))
}

func TestTick_ClearsAcknowledgedAfterSnapshot(t *testing.T) {
	start := time.Now()
	s := New(start)
	id := s.PlayerJoin()

	ackID := uuid.New()
	now := start.Add(50 * time.Millisecond)
	require.NoError(t, s.PlayerMove(id, 0.01, ackID, now))

	data, err := s.Tick(now.Add(time.Millisecond))
	require.NoError(t, err)
	assert.Contains(t, string(data), ackID.String())

	// A second tick with no intervening moves reports no acknowledgements.
	data2, err := s.Tick(now.Add(2 * time.Millisecond))
	require.NoError(t, err)
	assert.NotContains(t, string(data2), ackID.String())
}

func TestSnapshotHas(t *testing.T) {
	id := uuid.New()
	snap := Snapshot{Acknowledged: []uuid.UUID{id}}
	assert.True(t, snap.Has(id))
	assert.False(t, snap.Has(uuid.New()))
}
