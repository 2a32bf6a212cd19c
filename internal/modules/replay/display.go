package replay

import (
	"fmt"

	"github.com/aristath/stacktrack/internal/domain"
	"gonum.org/v1/gonum/floats"
)

// MinSpanBigBlinds is the smallest vertical span of a cash chart, in big blinds
const MinSpanBigBlinds = 100

// Variant selects how a series is presented
type Variant string

const (
	VariantCash       Variant = "cash"
	VariantTournament Variant = "tournament"
)

// VariantFor maps a game type onto its default chart variant
func VariantFor(g domain.GameType) Variant {
	if g == domain.GameTypeTournament {
		return VariantTournament
	}
	return VariantCash
}

// Valid reports whether v is a known variant
func (v Variant) Valid() bool {
	return v == VariantCash || v == VariantTournament
}

// AxisMode selects the X axis
type AxisMode string

const (
	AxisTime  AxisMode = "time"
	AxisHands AxisMode = "hands"
)

// Valid reports whether a is a known axis mode
func (a AxisMode) Valid() bool {
	return a == AxisTime || a == AxisHands
}

// DomainKind describes how the Y axis bounds were chosen
type DomainKind string

const (
	// DomainFixed uses Min and Max as given
	DomainFixed DomainKind = "fixed"
	// DomainAuto leaves both bounds to the renderer
	DomainAuto DomainKind = "auto"
	// DomainFromZero pins the lower bound at 0 and leaves the upper bound to the renderer
	DomainFromZero DomainKind = "from_zero"
)

// AxisDomain is the Y-axis range of a chart
type AxisDomain struct {
	Kind     DomainKind `json:"kind"`
	Min      float64    `json:"min"`
	Max      float64    `json:"max"`
	ZeroLine bool       `json:"zero_line"`
}

// ChartPoint is a point projected for one variant and axis mode.
// Fields that the variant does not plot are nil.
type ChartPoint struct {
	X              int      `json:"x"`
	XLabel         string   `json:"x_label"`
	Profit         *int64   `json:"profit,omitempty"`
	AdjustedProfit *float64 `json:"adjusted_profit,omitempty"`
	Stack          *int64   `json:"stack,omitempty"`
	Tooltip        string   `json:"tooltip"`
}

// Chart is a display-ready series
type Chart struct {
	Variant            Variant            `json:"variant"`
	Axis               AxisMode           `json:"axis"`
	Points             []ChartPoint       `json:"points"`
	Domain             AxisDomain         `json:"domain"`
	InitialStackSource InitialStackSource `json:"initial_stack_source"`
}

type variantStrategy interface {
	domain(points []ChartDataPoint, bigBlind *int64) AxisDomain
	project(p ChartDataPoint, cp *ChartPoint)
	describe(p ChartDataPoint) string
}

func strategyFor(v Variant) variantStrategy {
	if v == VariantTournament {
		return tournamentStrategy{}
	}
	return cashStrategy{}
}

type cashStrategy struct{}

func (cashStrategy) domain(points []ChartDataPoint, bigBlind *int64) AxisDomain {
	if len(points) == 0 || bigBlind == nil || *bigBlind <= 0 {
		return AxisDomain{Kind: DomainAuto, ZeroLine: true}
	}

	values := make([]float64, 0, 2*len(points))
	for _, p := range points {
		values = append(values, float64(p.Profit), p.AdjustedProfit)
	}

	lo, hi := floats.Min(values), floats.Max(values)
	minSpan := float64(MinSpanBigBlinds * *bigBlind)
	if span := hi - lo; span < minSpan {
		pad := (minSpan - span) / 2
		lo -= pad
		hi += pad
	}

	return AxisDomain{Kind: DomainFixed, Min: lo, Max: hi, ZeroLine: true}
}

func (cashStrategy) project(p ChartDataPoint, cp *ChartPoint) {
	profit, adjusted := p.Profit, p.AdjustedProfit
	cp.Profit = &profit
	cp.AdjustedProfit = &adjusted
}

func (cashStrategy) describe(p ChartDataPoint) string {
	return fmt.Sprintf("Profit %s, adjusted %s", formatChips(p.Profit), formatChips(int64(p.AdjustedProfit)))
}

type tournamentStrategy struct{}

func (tournamentStrategy) domain([]ChartDataPoint, *int64) AxisDomain {
	return AxisDomain{Kind: DomainFromZero}
}

func (tournamentStrategy) project(p ChartDataPoint, cp *ChartPoint) {
	stack := p.Stack
	cp.Stack = &stack
}

func (tournamentStrategy) describe(p ChartDataPoint) string {
	return "Stack " + formatChips(p.Stack)
}

// ComputeAxisDomain picks the Y-axis range for a series.
//
// Cash charts with a known big blind are padded symmetrically until they span
// at least MinSpanBigBlinds big blinds; without a big blind the range is left
// to the renderer. Both draw a zero line. Tournament charts start at 0.
func ComputeAxisDomain(series *Series, variant Variant, bigBlind *int64) AxisDomain {
	var points []ChartDataPoint
	if series != nil {
		points = series.Points
	}
	return strategyFor(variant).domain(points, bigBlind)
}

// XValue returns the X coordinate of p on the given axis
func XValue(p ChartDataPoint, axis AxisMode) int {
	if axis == AxisHands {
		return p.HandCount
	}
	return p.ElapsedMinutes
}

// BuildChart projects a series for one variant and axis mode. Switching the
// axis changes only X and the labels.
func BuildChart(series *Series, variant Variant, axis AxisMode, bigBlind *int64) Chart {
	strategy := strategyFor(variant)
	chart := Chart{
		Variant: variant,
		Axis:    axis,
		Points:  []ChartPoint{},
		Domain:  ComputeAxisDomain(series, variant, bigBlind),
	}
	if series == nil {
		return chart
	}

	chart.InitialStackSource = series.InitialStackSource
	chart.Points = make([]ChartPoint, len(series.Points))
	for i, p := range series.Points {
		x := XValue(p, axis)
		cp := ChartPoint{X: x, XLabel: FormatAxisValue(x, axis)}
		strategy.project(p, &cp)
		cp.Tooltip = tooltip(p, axis, strategy)
		chart.Points[i] = cp
	}

	return chart
}

func tooltip(p ChartDataPoint, axis AxisMode, strategy variantStrategy) string {
	var title string
	if axis == AxisHands {
		title = fmt.Sprintf("%s (%s)", FormatHands(p.HandCount), FormatElapsed(p.ElapsedMinutes))
	} else {
		title = fmt.Sprintf("%s (%s)", FormatElapsed(p.ElapsedMinutes), FormatHands(p.HandCount))
	}
	return title + ": " + strategy.describe(p)
}
