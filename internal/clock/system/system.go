// Package system provides the wall clock used by cache expiry.
package system

import "time"

// Clock satisfies memory.Clock using the process wall clock.
type Clock struct{}

// New returns a Clock.
func New() Clock {
	return Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
