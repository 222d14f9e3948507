// Package jumpcurve implements the stateless vertical jump curve used by the
// client's predicted/interpolated display. The curve is pure math over a
// last-jump timestamp; it lives under pkg/ rather than internal/client
// because nothing about it is specific to the netcode pipeline.
package jumpcurve

import "time"

// Window is the duration of a jump, measured from the jump's start.
const Window = 330 * time.Millisecond

// Y returns the vertical offset of a jump that began at lastJumpAt, evaluated
// at now. A nil lastJumpAt means "never jumped" and always returns 0.
//
// Outside [0, Window] the curve is 0; inside it, Y is the parabola
// -(3t)^2 + 3t where t is seconds since lastJumpAt.
func Y(lastJumpAt *time.Time, now time.Time) float64 {
	if lastJumpAt == nil {
		return 0
	}
	return At(now.Sub(*lastJumpAt))
}

// At evaluates the curve directly from an elapsed duration. Exposed
// separately from Y so callers holding only a duration (e.g. tests) don't
// need to round-trip through two time.Time values.
func At(elapsed time.Duration) float64 {
	t := elapsed.Seconds()
	if t < 0 || t > Window.Seconds() {
		return 0
	}
	v := 3 * t
	return -(v * v) + v
}

// Grounded reports whether Y is 0 at now: true if lastJumpAt is nil, if the
// jump's window has ended, and also at or before the jump's start instant.
func Grounded(lastJumpAt *time.Time, now time.Time) bool {
	return Y(lastJumpAt, now) == 0
}
