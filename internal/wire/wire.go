// Package wire implements the tagged action/response encodings exchanged
// between client and server, and the channel names they travel on.
//
// Payloads are JSON: self-describing, field order irrelevant, unknown
// fields ignored on decode, missing required fields fail to parse (see
// Decode for which fields are checked). Action
// is modeled as a closed tagged sum with exhaustive matching, never as
// open polymorphism — adding a new action kind means adding a case here
// and bumping SchemaVersion.
package wire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion identifies the wire schema. New action kinds require a
// version bump.
const SchemaVersion = 1

// Channel names, case-sensitive.
const (
	ChannelAction = "action"
	ChannelState  = "state"
	ChannelJoin   = "join"
	ChannelError  = "error"
)

// Action kind discriminators.
const (
	KindJoin = "join"
	KindJump = "jump"
	KindMove = "move"
)

// Action is the tagged union sent on ChannelAction. Exactly one of the
// typed fields is populated, selected by Kind.
type Action struct {
	Kind     string      `json:"kind"`
	PlayerID uint64      `json:"player_id,omitempty"`
	Jump     *JumpAction `json:"jump,omitempty"`
	Move     *MoveAction `json:"move,omitempty"`
}

// JumpAction requests that the player's jump timer start at At.
type JumpAction struct {
	At time.Time `json:"at"`
}

// MoveAction requests a horizontal displacement, carrying a fresh random
// id the server will echo back once the move is applied.
type MoveAction struct {
	DeltaX float64   `json:"delta_x"`
	ID     uuid.UUID `json:"id"`
}

// NewJoin builds a Join action.
func NewJoin() Action {
	return Action{Kind: KindJoin}
}

// NewJump builds a Player{Jump} action for playerID.
func NewJump(playerID uint64, at time.Time) Action {
	return Action{
		Kind:     KindJump,
		PlayerID: playerID,
		Jump:     &JumpAction{At: at},
	}
}

// NewMove builds a Player{Move} action for playerID with a fresh move id.
func NewMove(playerID uint64, deltaX float64) (Action, uuid.UUID) {
	id := uuid.New()
	return Action{
		Kind:     KindMove,
		PlayerID: playerID,
		Move:     &MoveAction{DeltaX: deltaX, ID: id},
	}, id
}

// Decode parses a raw Action payload, failing if required fields for the
// action's kind are missing: the jump object and its at time, or the move
// object and its id. player_id and delta_x are not checked for presence;
// an omitted value decodes as 0 (Encode omits a zero player_id). Unknown
// top-level fields are ignored (the default behaviour of encoding/json).
func Decode(data []byte) (Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return Action{}, fmt.Errorf("wire: parse action: %w", err)
	}
	switch a.Kind {
	case KindJoin:
		return a, nil
	case KindJump:
		if a.Jump == nil {
			return Action{}, fmt.Errorf("wire: jump action missing jump field")
		}
		if a.Jump.At.IsZero() {
			return Action{}, fmt.Errorf("wire: jump action missing at")
		}
		return a, nil
	case KindMove:
		if a.Move == nil {
			return Action{}, fmt.Errorf("wire: move action missing move field")
		}
		if a.Move.ID == uuid.Nil {
			return Action{}, fmt.Errorf("wire: move action missing id")
		}
		return a, nil
	default:
		return Action{}, fmt.Errorf("wire: unknown action kind %q", a.Kind)
	}
}

// Encode serializes an Action for transmission.
func Encode(a Action) ([]byte, error) {
	return json.Marshal(a)
}

// JoinResponse is sent on ChannelJoin in reply to a Join action.
type JoinResponse struct {
	PlayerID uint64 `json:"player_id"`
}

// EncodeJoinResponse serializes a JoinResponse.
func EncodeJoinResponse(playerID uint64) ([]byte, error) {
	return json.Marshal(JoinResponse{PlayerID: playerID})
}

// DecodeJoinResponse parses a JoinResponse payload.
func DecodeJoinResponse(data []byte) (JoinResponse, error) {
	var r JoinResponse
	if err := json.Unmarshal(data, &r); err != nil {
		return JoinResponse{}, fmt.Errorf("wire: parse join response: %w", err)
	}
	return r, nil
}

// EncodeError serializes a human-readable error for ChannelError.
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(struct {
		Message string `json:"message"`
	}{Message: message})
}

// DecodeError parses an error payload.
func DecodeError(data []byte) (string, error) {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &e); err != nil {
		return "", fmt.Errorf("wire: parse error message: %w", err)
	}
	return e.Message, nil
}
