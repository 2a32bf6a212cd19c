package replay

import (
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/shopspring/decimal"
)

var t0 = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return t0.Add(time.Duration(minutes) * time.Minute)
}

// logBuilder appends events with consecutive sequences
type logBuilder struct {
	events []events.SessionEvent
}

func newLog() *logBuilder {
	return &logBuilder{}
}

func (b *logBuilder) add(minutes int, data events.EventData) *logBuilder {
	b.events = append(b.events, events.SessionEvent{
		Sequence:   int64(len(b.events) + 1),
		Type:       data.EventType(),
		RecordedAt: at(minutes),
		Data:       data,
	})
	return b
}

func (b *logBuilder) start(minutes int) *logBuilder {
	return b.add(minutes, &events.SessionStartData{})
}

func (b *logBuilder) stack(minutes int, amount int64) *logBuilder {
	return b.add(minutes, &events.StackUpdateData{Amount: events.Int64(amount)})
}

func (b *logBuilder) rebuy(minutes int, amount int64) *logBuilder {
	return b.add(minutes, &events.RebuyData{Amount: events.Int64(amount)})
}

func (b *logBuilder) addon(minutes int, amount int64) *logBuilder {
	return b.add(minutes, &events.AddonData{Amount: events.Int64(amount)})
}

func (b *logBuilder) pause(minutes int) *logBuilder {
	return b.add(minutes, &events.SessionPauseData{})
}

func (b *logBuilder) resume(minutes int) *logBuilder {
	return b.add(minutes, &events.SessionResumeData{})
}

func (b *logBuilder) hand(minutes int) *logBuilder {
	return b.add(minutes, &events.HandCompleteData{})
}

func (b *logBuilder) hands(minutes int, count int64) *logBuilder {
	return b.add(minutes, &events.HandsPassedData{Count: events.Int64(count)})
}

func (b *logBuilder) end(minutes int, cashOut int64) *logBuilder {
	return b.add(minutes, &events.SessionEndData{CashOut: events.Int64(cashOut)})
}

func (b *logBuilder) build() []events.SessionEvent {
	return b.events
}

func allIn(minutes int, pot int64, equity string, won bool) domain.AllInRecord {
	return domain.AllInRecord{
		ID:             "allin",
		SessionID:      "session",
		PotAmount:      pot,
		WinProbability: decimal.RequireFromString(equity),
		ActualResult:   won,
		RecordedAt:     at(minutes),
	}
}

func completed(buyIn, cashOut int64, endMinutes int) domain.SessionParameters {
	end := at(endMinutes)
	return domain.SessionParameters{
		BuyIn:    buyIn,
		CashOut:  &cashOut,
		EndTime:  &end,
		GameType: domain.GameTypeCash,
	}
}

func live(buyIn, current int64) domain.SessionParameters {
	return domain.SessionParameters{
		BuyIn:        buyIn,
		CurrentStack: &current,
		GameType:     domain.GameTypeCash,
	}
}
