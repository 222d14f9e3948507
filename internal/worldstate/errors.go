package worldstate

import "fmt"

// UnknownPlayerError is returned when an operation targets a player id that
// is not in the roster.
type UnknownPlayerError struct {
	ID uint64
}

func (e *UnknownPlayerError) Error() string {
	return fmt.Sprintf("[ERROR - UNKNOWN PLAYER] no player found with id: %d", e.ID)
}

// CheatingError is returned when a move exceeds the velocity cap. The move
// is still applied, clamped, and acknowledged; this error is informational
// for the offending client only.
type CheatingError struct {
	Units            float64
	TimeframeSeconds float64
}

func (e *CheatingError) Error() string {
	rate := 0.0
	if e.TimeframeSeconds != 0 {
		rate = e.Units / e.TimeframeSeconds
	}
	return fmt.Sprintf(
		"[ERROR - CHEATING] player moved %.5f units in the last %.5f s (%.5f unit/s); expected at most %.5f unit/s",
		e.Units, e.TimeframeSeconds, rate, MaxUnitsPerSecond,
	)
}
