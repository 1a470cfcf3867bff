// Package clock abstracts wall-clock time so the readiness polling loop can
// be driven deterministically in tests.
package clock

import "time"

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}
