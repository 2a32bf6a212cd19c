package replay

import (
	"sort"
	"time"

	"github.com/aristath/stacktrack/internal/events"
)

type contribution struct {
	at     time.Time
	amount int64
}

// Investment tracks the chips put into play as of any timestamp.
//
// The stored buy-in already includes every rebuy and addon in the log, so the
// initial investment is recovered by subtracting them once over the whole log.
type Investment struct {
	initial       int64
	contributions []contribution
	cumulative    []int64 // cumulative[i] = sum of contributions[0..i]
}

// NewInvestment builds the tracker over the entire event log. Rebuys and
// addons with a missing or non-positive amount contribute nothing.
func NewInvestment(buyIn int64, log []events.SessionEvent) *Investment {
	inv := &Investment{initial: buyIn}

	for _, evt := range log {
		var amount *int64
		switch d := payload(evt).(type) {
		case *events.RebuyData:
			if d.Validate() == nil {
				amount = d.Amount
			}
		case *events.AddonData:
			if d.Validate() == nil {
				amount = d.Amount
			}
		}
		if amount == nil {
			continue
		}
		inv.initial -= *amount
		inv.contributions = append(inv.contributions, contribution{at: evt.RecordedAt, amount: *amount})
	}

	sort.SliceStable(inv.contributions, func(i, j int) bool {
		return inv.contributions[i].at.Before(inv.contributions[j].at)
	})

	inv.cumulative = make([]int64, len(inv.contributions))
	var running int64
	for i, c := range inv.contributions {
		running += c.amount
		inv.cumulative[i] = running
	}

	return inv
}

// Initial returns buyIn minus every rebuy and addon in the log
func (inv *Investment) Initial() int64 {
	return inv.initial
}

// TotalAsOf returns the initial investment plus the rebuys and addons recorded
// at or before t. It is monotonically non-decreasing in t.
func (inv *Investment) TotalAsOf(t time.Time) int64 {
	n := sort.Search(len(inv.contributions), func(i int) bool {
		return inv.contributions[i].at.After(t)
	})
	if n == 0 {
		return inv.initial
	}
	return inv.initial + inv.cumulative[n-1]
}

// Total returns the investment over the whole log (equal to the buy-in)
func (inv *Investment) Total() int64 {
	if len(inv.cumulative) == 0 {
		return inv.initial
	}
	return inv.initial + inv.cumulative[len(inv.cumulative)-1]
}
