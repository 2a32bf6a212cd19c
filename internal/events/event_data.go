package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventData is the interface that all event payload types implement.
// The concrete type is selected by the event type, so a type switch over
// EventData is the exhaustive handling point for every event kind.
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
	// Validate reports a malformed payload with ErrInvalidPayload
	Validate() error
}

// SessionStartData is the empty payload of session_start
type SessionStartData struct{}

// EventType returns the event type for SessionStartData
func (d *SessionStartData) EventType() EventType { return SessionStart }

// Validate always succeeds
func (d *SessionStartData) Validate() error { return nil }

// SessionPauseData is the empty payload of session_pause
type SessionPauseData struct{}

// EventType returns the event type for SessionPauseData
func (d *SessionPauseData) EventType() EventType { return SessionPause }

// Validate always succeeds
func (d *SessionPauseData) Validate() error { return nil }

// SessionResumeData is the empty payload of session_resume
type SessionResumeData struct{}

// EventType returns the event type for SessionResumeData
func (d *SessionResumeData) EventType() EventType { return SessionResume }

// Validate always succeeds
func (d *SessionResumeData) Validate() error { return nil }

// SessionEndData contains data for session_end events
type SessionEndData struct {
	CashOut *int64 `json:"cash_out,omitempty"`
}

// EventType returns the event type for SessionEndData
func (d *SessionEndData) EventType() EventType { return SessionEnd }

// Validate requires a non-negative cash-out
func (d *SessionEndData) Validate() error {
	return requireAmount(SessionEnd, "cashOut", d.CashOut, false)
}

// UnmarshalJSON accepts both cash_out and the camelCase cashOut key
func (d *SessionEndData) UnmarshalJSON(data []byte) error {
	var aux struct {
		CashOut      *int64 `json:"cash_out"`
		CashOutCamel *int64 `json:"cashOut"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	d.CashOut = aux.CashOut
	if d.CashOut == nil {
		d.CashOut = aux.CashOutCamel
	}
	return nil
}

// StackUpdateData contains data for stack_update events
type StackUpdateData struct {
	Amount *int64 `json:"amount,omitempty"`
}

// EventType returns the event type for StackUpdateData
func (d *StackUpdateData) EventType() EventType { return StackUpdate }

// Validate requires a non-negative absolute stack
func (d *StackUpdateData) Validate() error {
	return requireAmount(StackUpdate, "amount", d.Amount, false)
}

// RebuyData contains data for rebuy events
type RebuyData struct {
	Amount *int64 `json:"amount,omitempty"`
}

// EventType returns the event type for RebuyData
func (d *RebuyData) EventType() EventType { return Rebuy }

// Validate requires a positive amount
func (d *RebuyData) Validate() error {
	return requireAmount(Rebuy, "amount", d.Amount, true)
}

// AddonData contains data for addon events
type AddonData struct {
	Amount *int64 `json:"amount,omitempty"`
}

// EventType returns the event type for AddonData
func (d *AddonData) EventType() EventType { return Addon }

// Validate requires a positive amount
func (d *AddonData) Validate() error {
	return requireAmount(Addon, "amount", d.Amount, true)
}

// HandCompleteData is the empty payload of hand_complete
type HandCompleteData struct{}

// EventType returns the event type for HandCompleteData
func (d *HandCompleteData) EventType() EventType { return HandComplete }

// Validate always succeeds
func (d *HandCompleteData) Validate() error { return nil }

// HandsPassedData contains data for hands_passed events
type HandsPassedData struct {
	Count *int64 `json:"count,omitempty"`
}

// EventType returns the event type for HandsPassedData
func (d *HandsPassedData) EventType() EventType { return HandsPassed }

// Validate requires a positive count
func (d *HandsPassedData) Validate() error {
	return requireAmount(HandsPassed, "count", d.Count, true)
}

// GenericEventData is a fallback for event kinds this build does not know.
// The raw payload is preserved so it round-trips unchanged.
type GenericEventData struct {
	Type EventType      `json:"-"`
	Data map[string]any `json:"-"`
}

// EventType returns the event type for GenericEventData
func (d *GenericEventData) EventType() EventType {
	return d.Type
}

// Validate always succeeds; unknown kinds are not interpreted
func (d *GenericEventData) Validate() error { return nil }

// MarshalJSON customizes JSON serialization for GenericEventData
func (d *GenericEventData) MarshalJSON() ([]byte, error) {
	if d.Data == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(d.Data)
}

// UnmarshalJSON customizes JSON deserialization for GenericEventData
func (d *GenericEventData) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &d.Data)
}

func requireAmount(t EventType, field string, v *int64, positive bool) error {
	if v == nil {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidPayload, t, field)
	}
	if *v < 0 || (positive && *v == 0) {
		return fmt.Errorf("%w: %s %s out of range: %d", ErrInvalidPayload, t, field, *v)
	}
	return nil
}

// NewEventData returns an empty payload value for the given event type.
// Unknown types yield a GenericEventData carrying the type.
func NewEventData(t EventType) EventData {
	switch t {
	case SessionStart:
		return &SessionStartData{}
	case SessionPause:
		return &SessionPauseData{}
	case SessionResume:
		return &SessionResumeData{}
	case SessionEnd:
		return &SessionEndData{}
	case StackUpdate:
		return &StackUpdateData{}
	case Rebuy:
		return &RebuyData{}
	case Addon:
		return &AddonData{}
	case HandComplete:
		return &HandCompleteData{}
	case HandsPassed:
		return &HandsPassedData{}
	default:
		return &GenericEventData{Type: t}
	}
}

// DecodeEventData decodes a raw JSON payload into the struct matching t.
// An empty payload decodes to the zero payload. A payload that is not valid
// JSON for its kind is an error; a known kind with missing fields is not (see
// Validate).
func DecodeEventData(t EventType, raw []byte) (EventData, error) {
	data := NewEventData(t)
	if len(raw) == 0 || string(raw) == "null" {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t, err)
	}
	return data, nil
}

// SessionEvent is an immutable, strictly ordered record in a session's event log
type SessionEvent struct {
	Sequence   int64     `json:"sequence"`
	Type       EventType `json:"event_type"`
	RecordedAt time.Time `json:"recorded_at"`
	Data       EventData `json:"event_data"`
}

// MarshalJSON customizes JSON serialization for SessionEvent
func (e SessionEvent) MarshalJSON() ([]byte, error) {
	type Alias SessionEvent
	aux := &struct {
		Data json.RawMessage `json:"event_data"`
		*Alias
	}{
		Alias: (*Alias)(&e),
	}

	aux.Data = json.RawMessage("{}")
	if e.Data != nil {
		dataBytes, err := json.Marshal(e.Data)
		if err != nil {
			return nil, err
		}
		aux.Data = dataBytes
	}

	return json.Marshal(aux)
}

// UnmarshalJSON customizes JSON deserialization for SessionEvent
func (e *SessionEvent) UnmarshalJSON(data []byte) error {
	type Alias SessionEvent
	aux := &struct {
		Data json.RawMessage `json:"event_data"`
		*Alias
	}{
		Alias: (*Alias)(e),
	}

	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	eventData, err := DecodeEventData(aux.Type, aux.Data)
	if err != nil {
		return err
	}
	e.Data = eventData

	return nil
}

// Int64 returns a pointer to v, for building payloads
func Int64(v int64) *int64 {
	return &v
}
