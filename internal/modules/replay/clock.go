// Package replay rebuilds a poker session's economics from its event log.
//
// Everything here is a pure function of already-fetched inputs: the ordered
// session events, the all-in records and the static session parameters.
// Nothing is cached, persisted or read from the wall clock; "now" is always
// passed in by the caller.
package replay

import (
	"math"
	"time"
)

// Clock converts wall-clock timestamps into active minutes since the session
// start, excising paused intervals.
type Clock struct {
	start      time.Time
	paused     time.Duration
	pauseStart time.Time
	open       bool
}

// NewClock creates a clock anchored at the session_start timestamp
func NewClock(start time.Time) *Clock {
	return &Clock{start: start}
}

// Start returns the time origin
func (c *Clock) Start() time.Time {
	return c.start
}

// Pause opens a paused interval. Pausing while already paused keeps the
// original pause start.
func (c *Clock) Pause(at time.Time) {
	if c.open {
		return
	}
	c.open = true
	c.pauseStart = at
}

// Resume closes the open paused interval, if any
func (c *Clock) Resume(at time.Time) {
	if !c.open {
		return
	}
	if d := at.Sub(c.pauseStart); d > 0 {
		c.paused += d
	}
	c.open = false
}

// Paused reports whether a pause is currently open
func (c *Clock) Paused() bool {
	return c.open
}

// PausedAsOf returns the total paused duration as of t, including the
// in-progress part of an open pause.
func (c *Clock) PausedAsOf(t time.Time) time.Duration {
	paused := c.paused
	if c.open && t.After(c.pauseStart) {
		paused += t.Sub(c.pauseStart)
	}
	return paused
}

// ActiveMinutes returns round((t - start - pausedAsOf(t)) / 1 minute),
// never negative.
func (c *Clock) ActiveMinutes(t time.Time) int {
	active := t.Sub(c.start) - c.PausedAsOf(t)
	if active <= 0 {
		return 0
	}
	return int(math.Round(float64(active.Milliseconds()) / 60000))
}
