// Package system provides the real, wall-clock implementation of clock.Clock.
package system

import "time"

// Clock implements clock.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
