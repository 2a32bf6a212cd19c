package testing

import (
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/shopspring/decimal"
)

// FixtureStart is the session_start time used by the fixtures
var FixtureStart = time.Date(2026, 1, 10, 20, 0, 0, 0, time.UTC)

// Fixture event payloads keyed by minutes after FixtureStart
type FixtureEvent struct {
	Minutes int
	Data    events.EventData
}

// NewCashSessionEvents returns a two-hour cash session: one rebuy, a
// 15-minute break, a handful of stack updates and a cash-out of 2600 against
// a 2000 buy-in.
func NewCashSessionEvents() []FixtureEvent {
	return []FixtureEvent{
		{0, &events.SessionStartData{}},
		{0, &events.StackUpdateData{Amount: events.Int64(1000)}},
		{10, &events.HandsPassedData{Count: events.Int64(12)}},
		{20, &events.StackUpdateData{Amount: events.Int64(400)}},
		{25, &events.RebuyData{Amount: events.Int64(1000)}},
		{25, &events.StackUpdateData{Amount: events.Int64(1400)}},
		{45, &events.SessionPauseData{}},
		{60, &events.SessionResumeData{}},
		{80, &events.HandCompleteData{}},
		{90, &events.StackUpdateData{Amount: events.Int64(2100)}},
		{120, &events.SessionEndData{CashOut: events.Int64(2600)}},
	}
}

// NewAllInFixtures returns two all-ins inside the cash session fixture
func NewAllInFixtures(sessionID string) []domain.AllInRecord {
	return []domain.AllInRecord{
		{
			SessionID:      sessionID,
			PotAmount:      800,
			WinProbability: decimal.RequireFromString("80"),
			ActualResult:   false,
			RecordedAt:     FixtureStart.Add(20 * time.Minute),
		},
		{
			SessionID:      sessionID,
			PotAmount:      1200,
			WinProbability: decimal.RequireFromString("35.5"),
			ActualResult:   true,
			RecordedAt:     FixtureStart.Add(85 * time.Minute),
		},
	}
}
