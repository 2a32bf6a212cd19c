package replay

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/shopspring/decimal"
)

var (
	// ErrNoSessionStart is returned when the log has no session_start event
	ErrNoSessionStart = errors.New("event log has no session_start")
	// ErrSequenceNotMonotonic is returned when sequences are not strictly increasing
	ErrSequenceNotMonotonic = errors.New("event sequence is not strictly increasing")
	// ErrInsufficientData is returned when fewer than two points can be plotted
	ErrInsufficientData = errors.New("insufficient data to plot")
)

// ChartDataPoint is one plotted sample of a session
type ChartDataPoint struct {
	ElapsedMinutes int     `json:"elapsed_minutes"`
	HandCount      int     `json:"hand_count"`
	Profit         int64   `json:"profit"`
	AdjustedProfit float64 `json:"adjusted_profit"`
	Stack          int64   `json:"stack"`
}

// InitialStackSource names where the seed point's stack came from
type InitialStackSource string

const (
	InitialStackFromStackUpdate  InitialStackSource = "stack_update"
	InitialStackFromCurrentStack InitialStackSource = "current_stack"
	InitialStackFromBuyIn        InitialStackSource = "buy_in"
)

// Skip reasons reported in Series.Skipped
const (
	ReasonMalformedPayload  = "malformed payload"
	ReasonBeforeStart       = "recorded before session_start"
	ReasonDuplicateStart    = "duplicate session_start"
	ReasonUnknownType       = "unknown event type"
	ReasonOutOfOrderElapsed = "elapsed time earlier than previous point"
)

// SkippedEvent records an event that contributed nothing to the series
type SkippedEvent struct {
	Sequence int64            `json:"sequence"`
	Type     events.EventType `json:"event_type"`
	Reason   string           `json:"reason"`
}

// Series is the output of BuildSeries
type Series struct {
	Points             []ChartDataPoint   `json:"points"`
	InitialStack       int64              `json:"initial_stack"`
	InitialStackSource InitialStackSource `json:"initial_stack_source"`
	Skipped            []SkippedEvent     `json:"skipped,omitempty"`
}

// replay holds the log-wide trackers shared by BuildSeries and StateAt
type replay struct {
	log        []events.SessionEvent
	startIdx   int
	params     domain.SessionParameters
	investment *Investment
	luck       *LuckEngine
}

func newReplay(log []events.SessionEvent, allIns []domain.AllInRecord, params domain.SessionParameters) (*replay, error) {
	if err := checkSequence(log); err != nil {
		return nil, err
	}

	startIdx := -1
	for i, evt := range log {
		if evt.Type == events.SessionStart {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, ErrNoSessionStart
	}

	return &replay{
		log:        log,
		startIdx:   startIdx,
		params:     params,
		investment: NewInvestment(params.BuyIn, log),
		luck:       NewLuckEngine(allIns),
	}, nil
}

func checkSequence(log []events.SessionEvent) error {
	for i := 1; i < len(log); i++ {
		if log[i].Sequence <= log[i-1].Sequence {
			return fmt.Errorf("%w: %d follows %d", ErrSequenceNotMonotonic, log[i].Sequence, log[i-1].Sequence)
		}
	}
	return nil
}

// payload returns the event's data, falling back to the empty payload of its
// kind when none is attached.
func payload(evt events.SessionEvent) events.EventData {
	if evt.Data == nil {
		return events.NewEventData(evt.Type)
	}
	return evt.Data
}

func (r *replay) start() events.SessionEvent {
	return r.log[r.startIdx]
}

// initialStack walks forward from session_start and takes the first valid
// stack_update, provided no rebuy, addon or session_end came first.
func (r *replay) initialStack() (int64, InitialStackSource) {
	for _, evt := range r.log[r.startIdx+1:] {
		switch d := payload(evt).(type) {
		case *events.StackUpdateData:
			if d.Validate() == nil {
				return *d.Amount, InitialStackFromStackUpdate
			}
		case *events.RebuyData, *events.AddonData, *events.SessionEndData:
			return r.fallbackStack()
		}
	}
	return r.fallbackStack()
}

func (r *replay) fallbackStack() (int64, InitialStackSource) {
	if r.params.CurrentStack != nil {
		return *r.params.CurrentStack, InitialStackFromCurrentStack
	}
	return r.params.BuyIn, InitialStackFromBuyIn
}

func (r *replay) point(minutes, hands int, at time.Time, stack int64) ChartDataPoint {
	profit := stack - r.investment.TotalAsOf(at)
	adjusted := decimal.NewFromInt(profit).Sub(r.luck.CumulativeAsOf(at))
	return ChartDataPoint{
		ElapsedMinutes: minutes,
		HandCount:      hands,
		Profit:         profit,
		AdjustedProfit: adjusted.InexactFloat64(),
		Stack:          stack,
	}
}

// totalHands counts hand events over the whole log
func (r *replay) totalHands() int {
	hands := 0
	for _, evt := range r.log {
		switch d := payload(evt).(type) {
		case *events.HandCompleteData:
			hands++
		case *events.HandsPassedData:
			if d.Validate() == nil {
				hands += int(*d.Count)
			}
		}
	}
	return hands
}

// BuildSeries replays the event log into chart points.
//
// The first point is a seed at minute 0 with zero profit. Each valid
// stack_update then produces a point; an update landing on the same elapsed
// minute as the previous point replaces it. Live and completed sessions get a
// trailing point at now or endTime unless it would share the last point's
// minute. When fewer than two points result, the partial series is returned
// together with ErrInsufficientData.
func BuildSeries(log []events.SessionEvent, allIns []domain.AllInRecord, params domain.SessionParameters, now time.Time) (*Series, error) {
	r, err := newReplay(log, allIns, params)
	if err != nil {
		return nil, err
	}

	series := &Series{}
	series.InitialStack, series.InitialStackSource = r.initialStack()
	series.Points = []ChartDataPoint{{Stack: series.InitialStack}}

	skip := func(evt events.SessionEvent, reason string) {
		series.Skipped = append(series.Skipped, SkippedEvent{Sequence: evt.Sequence, Type: evt.Type, Reason: reason})
	}

	for _, evt := range log[:r.startIdx] {
		skip(evt, ReasonBeforeStart)
	}

	clock := NewClock(r.start().RecordedAt)
	hands := 0

	for _, evt := range log[r.startIdx+1:] {
		switch d := payload(evt).(type) {
		case *events.SessionStartData:
			skip(evt, ReasonDuplicateStart)
		case *events.SessionPauseData:
			clock.Pause(evt.RecordedAt)
		case *events.SessionResumeData:
			clock.Resume(evt.RecordedAt)
		case *events.SessionEndData:
			// completion comes from the session parameters
		case *events.HandCompleteData:
			hands++
		case *events.HandsPassedData:
			if d.Validate() != nil {
				skip(evt, ReasonMalformedPayload)
				continue
			}
			hands += int(*d.Count)
		case *events.RebuyData, *events.AddonData:
			// contributions are handled by the investment tracker
			if d.Validate() != nil {
				skip(evt, ReasonMalformedPayload)
			}
		case *events.StackUpdateData:
			if d.Validate() != nil {
				skip(evt, ReasonMalformedPayload)
				continue
			}
			p := r.point(clock.ActiveMinutes(evt.RecordedAt), hands, evt.RecordedAt, *d.Amount)
			last := &series.Points[len(series.Points)-1]
			switch {
			case p.ElapsedMinutes == last.ElapsedMinutes:
				*last = p
			case p.ElapsedMinutes > last.ElapsedMinutes:
				series.Points = append(series.Points, p)
			default:
				skip(evt, ReasonOutOfOrderElapsed)
			}
		default:
			skip(evt, ReasonUnknownType)
		}
	}

	if trailing, ok := r.trailingPoint(clock, hands, now); ok {
		if trailing.ElapsedMinutes > series.Points[len(series.Points)-1].ElapsedMinutes {
			series.Points = append(series.Points, trailing)
		}
	}

	if len(series.Points) < 2 {
		return series, ErrInsufficientData
	}
	return series, nil
}

// trailingPoint returns the closing point of a live or completed session
func (r *replay) trailingPoint(clock *Clock, hands int, now time.Time) (ChartDataPoint, bool) {
	switch r.params.Status() {
	case domain.SessionStatusCompleted:
		end := *r.params.EndTime
		return r.point(clock.ActiveMinutes(end), hands, end, *r.params.CashOut), true
	case domain.SessionStatusLive:
		return r.point(clock.ActiveMinutes(now), r.totalHands(), now, *r.params.CurrentStack), true
	default:
		return ChartDataPoint{}, false
	}
}
