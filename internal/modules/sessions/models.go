// Package sessions persists poker sessions and their event logs and serves
// the derived charts and live state.
package sessions

import (
	"errors"
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/modules/replay"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a session does not exist or was deleted
	ErrNotFound = errors.New("session not found")
	// ErrLiveSessionExists is returned when starting a second live session
	ErrLiveSessionExists = errors.New("a live session already exists")
	// ErrSessionNotLive is returned when recording into a completed session
	ErrSessionNotLive = errors.New("session is not live")
	// ErrEventOutOfOrder is returned when an event would be recorded before the previous one
	ErrEventOutOfOrder = errors.New("event recorded before the previous event")
	// ErrInvalidRequest is returned for malformed session or all-in input
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRecordOutOfSync is returned when an event was logged but the session
	// record could not be updated to match it
	ErrRecordOutOfSync = errors.New("session record out of sync with event log")
)

// StartSessionRequest opens a live session
type StartSessionRequest struct {
	Name     string          `json:"name"`
	GameType domain.GameType `json:"game_type"`
	BuyIn    int64           `json:"buy_in"`
	BigBlind *int64          `json:"big_blind,omitempty"`
	// StartingStack defaults to the buy-in (cash games buy chips 1:1)
	StartingStack *int64     `json:"starting_stack,omitempty"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// AllInRequest logs a showdown with known equity
type AllInRequest struct {
	PotAmount      int64           `json:"pot_amount"`
	WinProbability decimal.Decimal `json:"win_probability"`
	ActualResult   bool            `json:"actual_result"`
	RunItTimes     *int            `json:"run_it_times,omitempty"`
	WinsInRunout   *int            `json:"wins_in_runout,omitempty"`
	RecordedAt     *time.Time      `json:"recorded_at,omitempty"`
}

// ListFilter narrows ListSessions. Zero values mean no filter.
type ListFilter struct {
	Status   domain.SessionStatus
	GameType domain.GameType
	Limit    int
}

// ChartResult is a display-ready chart plus replay diagnostics
type ChartResult struct {
	SessionID string               `json:"session_id"`
	Status    domain.SessionStatus `json:"status"`
	Chart     replay.Chart         `json:"chart"`
	// Empty is set when there are not enough points to draw a line
	Empty   bool                  `json:"empty"`
	Skipped []replay.SkippedEvent `json:"skipped,omitempty"`
}

// SnapshotPublisher receives a fresh snapshot whenever a live session changes
type SnapshotPublisher interface {
	Publish(sessionID string, snap *replay.Snapshot)
}
