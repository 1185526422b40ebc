// Package system provides the wall clock used for snapshot times, selection
// events, and upload name stamps.
package system

import "time"

// Clock implements links.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
