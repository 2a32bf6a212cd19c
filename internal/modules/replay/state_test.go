package replay

import (
	"testing"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateAt_MidSession(t *testing.T) {
	log := newLog().start(0).stack(10, 1200).rebuy(20, 500).stack(30, 1500).pause(40).resume(50).build()
	params := live(1500, 1700)
	allIns := []domain.AllInRecord{allIn(15, 400, "50", true)}

	snap, err := StateAt(log, allIns, params, at(25))
	require.NoError(t, err)

	assert.Equal(t, 25, snap.ElapsedMinutes)
	assert.Equal(t, "0h 25m", snap.Elapsed)
	assert.Equal(t, int64(1200), snap.Stack)
	assert.Equal(t, StackFromStackUpdate, snap.StackSource)
	assert.Equal(t, int64(1500), snap.Investment)
	assert.Equal(t, int64(-300), snap.Profit)
	assert.Equal(t, "200", snap.Luck.String())
	assert.Equal(t, "-500", snap.AdjustedProfit.String())
	assert.Equal(t, int64(3), snap.LastSequence)
	assert.False(t, snap.Paused)
}

func TestStateAt_LiveUsesCurrentStackAfterLastEvent(t *testing.T) {
	log := newLog().start(0).stack(10, 1200).pause(40).build()
	params := live(1000, 1700)

	snap, err := StateAt(log, nil, params, at(70))
	require.NoError(t, err)

	assert.Equal(t, int64(1700), snap.Stack)
	assert.Equal(t, StackFromCurrentStack, snap.StackSource)
	assert.Equal(t, int64(700), snap.Profit)
	assert.Equal(t, 40, snap.ElapsedMinutes)
	assert.True(t, snap.Paused)
	assert.Equal(t, domain.SessionStatusLive, snap.Status)
}

func TestStateAt_CompletedAfterEnd(t *testing.T) {
	log := newLog().start(0).stack(10, 800).end(60, 1300).build()
	params := completed(1000, 1300, 60)

	snap, err := StateAt(log, nil, params, at(600))
	require.NoError(t, err)

	assert.Equal(t, 60, snap.ElapsedMinutes)
	assert.Equal(t, "1h 0m", snap.Elapsed)
	assert.Equal(t, int64(1300), snap.Stack)
	assert.Equal(t, StackFromCashOut, snap.StackSource)
	assert.Equal(t, int64(300), snap.Profit)
	assert.True(t, snap.Ended)
}

func TestStateAt_BeforeFirstStackUpdate(t *testing.T) {
	log := newLog().start(0).stack(10, 800).end(60, 1300).build()
	params := completed(1000, 1300, 60)

	snap, err := StateAt(log, nil, params, at(5))
	require.NoError(t, err)

	assert.Equal(t, int64(800), snap.Stack)
	assert.Equal(t, StackFromInitial, snap.StackSource)
	assert.False(t, snap.Ended)
}

func TestStateAt_RequiresSessionStart(t *testing.T) {
	_, err := StateAt(newLog().hand(1).build(), nil, domain.SessionParameters{}, at(5))
	assert.ErrorIs(t, err, ErrNoSessionStart)
}

func TestStateAt_CompletedMatchesChartClosingPoint(t *testing.T) {
	log := newLog().start(0).stack(0, 1000).stack(30, 1500).end(60, 2000).build()
	params := completed(1000, 2000, 60)
	allIns := []domain.AllInRecord{
		allIn(20, 400, "50", false),
		allIn(90, 1000, "50", true), // after the end time
	}

	series, err := BuildSeries(log, allIns, params, at(500))
	require.NoError(t, err)
	closing := series.Points[len(series.Points)-1]

	snap, err := StateAt(log, allIns, params, at(500))
	require.NoError(t, err)

	assert.Equal(t, closing.Profit, snap.Profit)
	assert.Equal(t, closing.AdjustedProfit, snap.AdjustedProfit.InexactFloat64())
	assert.Equal(t, "-200", snap.Luck.String())
	assert.Equal(t, "1200", snap.AdjustedProfit.String())
}
