package replay

import (
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/shopspring/decimal"
)

// StackSource names where a snapshot's stack came from
type StackSource string

const (
	StackFromInitial      StackSource = "initial"
	StackFromStackUpdate  StackSource = "stack_update"
	StackFromCurrentStack StackSource = "current_stack"
	StackFromCashOut      StackSource = "cash_out"
)

// Snapshot is the reconstructed state of a session at one instant
type Snapshot struct {
	At             time.Time            `json:"at"`
	Status         domain.SessionStatus `json:"status"`
	ElapsedMinutes int                  `json:"elapsed_minutes"`
	Elapsed        string               `json:"elapsed"`
	HandCount      int                  `json:"hand_count"`
	Stack          int64                `json:"stack"`
	StackSource    StackSource          `json:"stack_source"`
	Investment     int64                `json:"investment"`
	Profit         int64                `json:"profit"`
	Luck           decimal.Decimal      `json:"luck"`
	AdjustedProfit decimal.Decimal      `json:"adjusted_profit"`
	Paused         bool                 `json:"paused"`
	Ended          bool                 `json:"ended"`
	LastSequence   int64                `json:"last_sequence"`
}

// StateAt reconstructs the session as of t, considering only events recorded
// at or before t.
//
// The stack is the latest valid stack_update at or before t. A live session
// queried at or after its last event reports its live stack instead, and a
// completed session queried at or after its end time reports its cash-out and
// is valued as of the end time, like the chart's closing point.
func StateAt(log []events.SessionEvent, allIns []domain.AllInRecord, params domain.SessionParameters, t time.Time) (*Snapshot, error) {
	r, err := newReplay(log, allIns, params)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{At: t, Status: params.Status()}
	snap.Stack, _ = r.initialStack()
	snap.StackSource = StackFromInitial

	clock := NewClock(r.start().RecordedAt)
	seenAll := true

	for _, evt := range log[r.startIdx:] {
		if evt.RecordedAt.After(t) {
			seenAll = false
			break
		}
		snap.LastSequence = evt.Sequence

		switch d := payload(evt).(type) {
		case *events.SessionPauseData:
			clock.Pause(evt.RecordedAt)
		case *events.SessionResumeData:
			clock.Resume(evt.RecordedAt)
		case *events.SessionEndData:
			snap.Ended = true
		case *events.HandCompleteData:
			snap.HandCount++
		case *events.HandsPassedData:
			if d.Validate() == nil {
				snap.HandCount += int(*d.Count)
			}
		case *events.StackUpdateData:
			if d.Validate() == nil {
				snap.Stack = *d.Amount
				snap.StackSource = StackFromStackUpdate
			}
		}
	}

	at := t
	switch snap.Status {
	case domain.SessionStatusLive:
		if seenAll {
			snap.Stack = *params.CurrentStack
			snap.StackSource = StackFromCurrentStack
		}
	case domain.SessionStatusCompleted:
		if !t.Before(*params.EndTime) {
			at = *params.EndTime
			snap.Ended = true
			snap.Stack = *params.CashOut
			snap.StackSource = StackFromCashOut
		}
	}

	snap.ElapsedMinutes = clock.ActiveMinutes(at)
	snap.Elapsed = FormatElapsed(snap.ElapsedMinutes)
	snap.Paused = clock.Paused() && !snap.Ended
	snap.Investment = r.investment.TotalAsOf(at)
	snap.Profit = snap.Stack - snap.Investment
	snap.Luck = r.luck.CumulativeAsOf(at)
	snap.AdjustedProfit = decimal.NewFromInt(snap.Profit).Sub(snap.Luck)

	return snap, nil
}
