package replay

import (
	"sort"
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

var hundred = decimal.NewFromInt(100)

// ExpectedValue returns potAmount * winProbability / 100 without rounding
func ExpectedValue(r domain.AllInRecord) decimal.Decimal {
	return decimal.NewFromInt(r.PotAmount).Mul(r.WinProbability).Div(hundred)
}

// ActualValue returns the pot when the player won the all-in, otherwise 0
func ActualValue(r domain.AllInRecord) decimal.Decimal {
	if r.ActualResult {
		return decimal.NewFromInt(r.PotAmount)
	}
	return decimal.Zero
}

// Luck returns actual minus expected value for a single all-in.
// Positive means the player ran above equity.
func Luck(r domain.AllInRecord) decimal.Decimal {
	return ActualValue(r).Sub(ExpectedValue(r))
}

// LuckEngine accumulates luck across all-in records in time order.
// Only pot, equity and result are used; run-it-multiple-times details are
// carried on the records but ignored here.
type LuckEngine struct {
	records    []domain.AllInRecord
	cumulative []decimal.Decimal
}

// NewLuckEngine sorts a copy of the records by RecordedAt and precomputes the
// running luck sum.
func NewLuckEngine(records []domain.AllInRecord) *LuckEngine {
	sorted := make([]domain.AllInRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RecordedAt.Before(sorted[j].RecordedAt)
	})

	cumulative := make([]decimal.Decimal, len(sorted))
	running := decimal.Zero
	for i, r := range sorted {
		running = running.Add(Luck(r))
		cumulative[i] = running
	}

	return &LuckEngine{records: sorted, cumulative: cumulative}
}

// CumulativeAsOf returns the luck sum over records recorded at or before t
func (l *LuckEngine) CumulativeAsOf(t time.Time) decimal.Decimal {
	n := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].RecordedAt.After(t)
	})
	if n == 0 {
		return decimal.Zero
	}
	return l.cumulative[n-1]
}

// Records returns the sorted records
func (l *LuckEngine) Records() []domain.AllInRecord {
	return l.records
}

// LuckSummary aggregates a session's all-ins
type LuckSummary struct {
	Count         int             `json:"count"`
	Wins          int             `json:"wins"`
	ExpectedWins  decimal.Decimal `json:"expected_wins"`
	TotalPot      int64           `json:"total_pot"`
	ExpectedValue decimal.Decimal `json:"expected_value"`
	ActualValue   decimal.Decimal `json:"actual_value"`
	Luck          decimal.Decimal `json:"luck"`
	MeanEquity    float64         `json:"mean_equity"`
	// PotWeightedEquity weights each equity by its pot size
	PotWeightedEquity float64 `json:"pot_weighted_equity"`
}

// Summary aggregates every record held by the engine
func (l *LuckEngine) Summary() LuckSummary {
	summary := LuckSummary{
		Count:         len(l.records),
		ExpectedWins:  decimal.Zero,
		ExpectedValue: decimal.Zero,
		ActualValue:   decimal.Zero,
		Luck:          decimal.Zero,
	}
	if len(l.records) == 0 {
		return summary
	}

	equities := make([]float64, len(l.records))
	pots := make([]float64, len(l.records))

	for i, r := range l.records {
		if r.ActualResult {
			summary.Wins++
		}
		summary.ExpectedWins = summary.ExpectedWins.Add(r.WinProbability.Div(hundred))
		summary.TotalPot += r.PotAmount
		summary.ExpectedValue = summary.ExpectedValue.Add(ExpectedValue(r))
		summary.ActualValue = summary.ActualValue.Add(ActualValue(r))

		equities[i] = r.WinProbability.InexactFloat64()
		pots[i] = float64(r.PotAmount)
	}

	summary.Luck = l.cumulative[len(l.cumulative)-1]
	summary.MeanEquity = stat.Mean(equities, nil)
	if summary.TotalPot > 0 {
		summary.PotWeightedEquity = stat.Mean(equities, pots)
	}

	return summary
}
