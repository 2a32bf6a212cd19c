package replay

import (
	"testing"

	"github.com/aristath/stacktrack/internal/events"
	"github.com/stretchr/testify/assert"
)

func TestInvestment_InitialExcludesContributions(t *testing.T) {
	log := newLog().start(0).rebuy(30, 5000).addon(60, 2000).build()
	inv := NewInvestment(10000, log)

	assert.Equal(t, int64(3000), inv.Initial())
	assert.Equal(t, int64(3000), inv.TotalAsOf(at(10)))
	assert.Equal(t, int64(8000), inv.TotalAsOf(at(30)))
	assert.Equal(t, int64(8000), inv.TotalAsOf(at(59)))
	assert.Equal(t, int64(10000), inv.TotalAsOf(at(60)))
	assert.Equal(t, int64(10000), inv.Total())
}

func TestInvestment_MonotonicInTime(t *testing.T) {
	log := newLog().start(0).rebuy(5, 100).rebuy(5, 200).addon(20, 50).rebuy(45, 300).build()
	inv := NewInvestment(2000, log)

	prev := inv.TotalAsOf(at(-1))
	for m := 0; m <= 60; m++ {
		total := inv.TotalAsOf(at(m))
		assert.GreaterOrEqual(t, total, prev, "minute %d", m)
		prev = total
	}
	assert.Equal(t, int64(2000), prev)
}

func TestInvestment_SkipsMalformedContributions(t *testing.T) {
	log := newLog().
		start(0).
		add(10, &events.RebuyData{}).
		add(20, &events.AddonData{Amount: events.Int64(-500)}).
		rebuy(30, 1000).
		build()
	inv := NewInvestment(3000, log)

	assert.Equal(t, int64(2000), inv.Initial())
	assert.Equal(t, int64(2000), inv.TotalAsOf(at(25)))
	assert.Equal(t, int64(3000), inv.TotalAsOf(at(30)))
}

func TestInvestment_NoContributions(t *testing.T) {
	inv := NewInvestment(500, newLog().start(0).build())

	assert.Equal(t, int64(500), inv.Initial())
	assert.Equal(t, int64(500), inv.TotalAsOf(at(100)))
	assert.Equal(t, int64(500), inv.Total())
}
