// Package domain provides core domain models and types.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// GameType distinguishes investment-relative cash games from stack-tracked tournaments
type GameType string

const (
	// GameTypeCash is a cash game; profit is measured against chips bought
	GameTypeCash GameType = "cash"
	// GameTypeTournament is a tournament; the chart tracks the raw stack
	GameTypeTournament GameType = "tournament"
)

// Valid reports whether g is a recognized game type
func (g GameType) Valid() bool {
	return g == GameTypeCash || g == GameTypeTournament
}

// SessionStatus is the lifecycle state of a session
type SessionStatus string

const (
	// SessionStatusLive accepts new events
	SessionStatusLive SessionStatus = "live"
	// SessionStatusCompleted has a cash-out and an end time
	SessionStatusCompleted SessionStatus = "completed"
	// SessionStatusSnapshot has neither a live stack nor a completion (historical view)
	SessionStatusSnapshot SessionStatus = "snapshot"
)

// AllInRecord is a logged showdown where the tracked player's equity was known
type AllInRecord struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	PotAmount int64  `json:"pot_amount"`

	// WinProbability is a percentage in [0, 100] with fractional precision
	WinProbability decimal.Decimal `json:"win_probability"`
	ActualResult   bool            `json:"actual_result"`

	// Run-it-multiple-times details; stored but not used by the luck calculation
	RunItTimes   *int `json:"run_it_times,omitempty"`
	WinsInRunout *int `json:"wins_in_runout,omitempty"`

	RecordedAt time.Time `json:"recorded_at"`
}

// SessionParameters are the static per-session facts the replay engine needs.
// CurrentStack is set only while live; CashOut and EndTime only once completed.
type SessionParameters struct {
	// BuyIn already includes every rebuy and addon recorded so far
	BuyIn int64 `json:"buy_in"`

	CurrentStack *int64     `json:"current_stack,omitempty"`
	CashOut      *int64     `json:"cash_out,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	BigBlind     *int64     `json:"big_blind,omitempty"`
	GameType     GameType   `json:"game_type"`
}

// Status derives the lifecycle state from which optional fields are present
func (p SessionParameters) Status() SessionStatus {
	if p.CashOut != nil && p.EndTime != nil {
		return SessionStatusCompleted
	}
	if p.CurrentStack != nil {
		return SessionStatusLive
	}
	return SessionStatusSnapshot
}

// Session is the persisted session record
type Session struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	GameType     GameType      `json:"game_type"`
	Status       SessionStatus `json:"status"`
	BuyIn        int64         `json:"buy_in"`
	BigBlind     *int64        `json:"big_blind,omitempty"`
	CurrentStack *int64        `json:"current_stack,omitempty"`
	CashOut      *int64        `json:"cash_out,omitempty"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      *time.Time    `json:"end_time,omitempty"`
	Notes        string        `json:"notes,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Parameters projects the record onto the inputs of the replay engine.
// A live session never exposes a cash-out and a completed one never exposes
// a live stack.
func (s *Session) Parameters() SessionParameters {
	params := SessionParameters{
		BuyIn:    s.BuyIn,
		BigBlind: s.BigBlind,
		GameType: s.GameType,
	}

	switch s.Status {
	case SessionStatusLive:
		params.CurrentStack = s.CurrentStack
	case SessionStatusCompleted:
		params.CashOut = s.CashOut
		params.EndTime = s.EndTime
	}

	return params
}

// Profit returns the flat cash-out minus buy-in of a completed session
func (s *Session) Profit() (int64, bool) {
	if s.Status != SessionStatusCompleted || s.CashOut == nil {
		return 0, false
	}
	return *s.CashOut - s.BuyIn, true
}
