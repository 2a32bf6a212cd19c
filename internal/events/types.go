// Package events defines the vocabulary of in-session events and their payloads.
package events

import "errors"

// EventType identifies the kind of a session event
type EventType string

// Session lifecycle events
const (
	// SessionStart anchors t=0; it must be the first event of a session
	SessionStart EventType = "session_start"
	// SessionPause begins a paused interval
	SessionPause EventType = "session_pause"
	// SessionResume ends the most recent open paused interval
	SessionResume EventType = "session_resume"
	// SessionEnd is terminal; carries the cash-out amount
	SessionEnd EventType = "session_end"
)

// Chip movement events
const (
	// StackUpdate is an absolute stack snapshot at this instant
	StackUpdate EventType = "stack_update"
	// Rebuy adds chips to both stack and investment
	Rebuy EventType = "rebuy"
	// Addon has the same accounting as Rebuy with a distinct label
	Addon EventType = "addon"
)

// Hand counting events
const (
	// HandComplete increments the hand counter by one
	HandComplete EventType = "hand_complete"
	// HandsPassed increments the hand counter by a batch count
	HandsPassed EventType = "hands_passed"
)

// ErrInvalidPayload is returned when a payload is missing a required field
// or carries an out-of-range value
var ErrInvalidPayload = errors.New("invalid event payload")

// KnownTypes lists every event kind the reducer understands
func KnownTypes() []EventType {
	return []EventType{
		SessionStart, SessionPause, SessionResume, SessionEnd,
		StackUpdate, Rebuy, Addon,
		HandComplete, HandsPassed,
	}
}

// IsKnown reports whether t is one of the recognized event kinds
func (t EventType) IsKnown() bool {
	for _, known := range KnownTypes() {
		if t == known {
			return true
		}
	}
	return false
}
