package domain

import "time"

// Clock provides the current time. Token expiry checks read time only
// through a Clock so tests can move it deterministically.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}

// RealClock implements Clock using the system clock.
type RealClock struct{}

// Now returns time.Now().
func (RealClock) Now() time.Time {
	return time.Now()
}

// FromUnix converts JWT NumericDate seconds to a UTC time.Time.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// Ensure RealClock implements Clock at compile time.
var _ Clock = RealClock{}
