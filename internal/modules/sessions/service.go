package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/aristath/stacktrack/internal/modules/replay"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Service records session activity and derives charts and live state.
// Writes are serialized so each session log has a single writer.
type Service struct {
	repo      *Repository
	publisher SnapshotPublisher
	now       func() time.Time
	mu        sync.Mutex
	log       zerolog.Logger
}

// NewService creates a new sessions service. publisher may be nil.
func NewService(repo *Repository, publisher SnapshotPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log.With().Str("service", "sessions").Logger(),
	}
}

// SetClock replaces the wall clock used for event timestamps and "now"
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// StartSession opens a new live session and writes its session_start and
// opening stack_update.
func (s *Service) StartSession(ctx context.Context, req StartSessionRequest) (*domain.Session, error) {
	if err := validateStart(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.repo.GetLiveSession(ctx)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrLiveSessionExists, existing.ID)
	}

	now := s.now()
	start := now
	if req.StartTime != nil {
		if req.StartTime.After(now) {
			return nil, fmt.Errorf("%w: start time is in the future", ErrInvalidRequest)
		}
		start = req.StartTime.UTC()
	}

	stack := req.BuyIn
	if req.StartingStack != nil {
		stack = *req.StartingStack
	}

	session := &domain.Session{
		Name:         req.Name,
		GameType:     req.GameType,
		Status:       domain.SessionStatusLive,
		BuyIn:        req.BuyIn,
		BigBlind:     req.BigBlind,
		CurrentStack: &stack,
		StartTime:    start,
		Notes:        req.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	if _, err := s.repo.AppendEvent(ctx, session.ID, &events.SessionStartData{}, start); err != nil {
		s.abandonStart(ctx, session.ID, now)
		return nil, fmt.Errorf("failed to record session start: %w", err)
	}
	if _, err := s.repo.AppendEvent(ctx, session.ID, &events.StackUpdateData{Amount: &stack}, start); err != nil {
		s.abandonStart(ctx, session.ID, now)
		return nil, fmt.Errorf("failed to record opening stack: %w", err)
	}

	s.log.Info().
		Str("session_id", session.ID).
		Str("game_type", string(session.GameType)).
		Int64("buy_in", session.BuyIn).
		Msg("Session started")

	s.publishLocked(ctx, session.ID)
	return session, nil
}

// abandonStart hides a session whose opening events could not be logged, so
// it does not block the next StartSession
func (s *Service) abandonStart(ctx context.Context, id string, now time.Time) {
	if err := s.repo.SoftDelete(ctx, id, now); err != nil {
		s.log.Error().Err(err).Str("session_id", id).Msg("Failed to remove half-started session")
	}
}

func validateStart(req StartSessionRequest) error {
	switch {
	case !req.GameType.Valid():
		return fmt.Errorf("%w: unknown game type %q", ErrInvalidRequest, req.GameType)
	case req.BuyIn < 0:
		return fmt.Errorf("%w: buy-in must not be negative", ErrInvalidRequest)
	case req.BigBlind != nil && *req.BigBlind <= 0:
		return fmt.Errorf("%w: big blind must be positive", ErrInvalidRequest)
	case req.StartingStack != nil && *req.StartingStack < 0:
		return fmt.Errorf("%w: starting stack must not be negative", ErrInvalidRequest)
	}
	return nil
}

// RecordEvent validates and appends an event to a live session and keeps the
// session record in step with it.
func (s *Service) RecordEvent(ctx context.Context, id string, data events.EventData) (*events.SessionEvent, error) {
	if data == nil {
		return nil, fmt.Errorf("%w: missing event payload", events.ErrInvalidPayload)
	}
	eventType := data.EventType()
	if !eventType.IsKnown() {
		return nil, fmt.Errorf("%w: unknown event type %q", events.ErrInvalidPayload, eventType)
	}
	if eventType == events.SessionStart {
		return nil, fmt.Errorf("%w: sessions are started with StartSession", events.ErrInvalidPayload)
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.requireLive(ctx, id); err != nil {
		return nil, err
	}

	now := s.now()
	evt, err := s.repo.AppendEvent(ctx, id, data, now)
	if err != nil {
		return nil, err
	}

	if err := s.applyToRecord(ctx, id, data, now); err != nil {
		// the event is already in the ledger; try once more before giving up
		if retryErr := s.applyToRecord(ctx, id, data, now); retryErr != nil {
			s.log.Error().
				Err(retryErr).
				Str("session_id", id).
				Int64("sequence", evt.Sequence).
				Str("event_type", string(evt.Type)).
				Msg("Event logged but session record not updated")
			return nil, fmt.Errorf("%w: %s sequence %d: %v", ErrRecordOutOfSync, id, evt.Sequence, retryErr)
		}
	}

	s.log.Debug().
		Str("session_id", id).
		Int64("sequence", evt.Sequence).
		Str("event_type", string(evt.Type)).
		Msg("Event recorded")

	s.publishLocked(ctx, id)
	return evt, nil
}

func (s *Service) requireLive(ctx context.Context, id string) (*domain.Session, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != domain.SessionStatusLive {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotLive, id, session.Status)
	}
	return session, nil
}

// applyToRecord mirrors a recorded event onto the mutable session record
func (s *Service) applyToRecord(ctx context.Context, id string, data events.EventData, now time.Time) error {
	switch d := data.(type) {
	case *events.StackUpdateData:
		return s.repo.UpdateLiveStack(ctx, id, *d.Amount, now)
	case *events.RebuyData:
		return s.repo.AddToBuyIn(ctx, id, *d.Amount, now)
	case *events.AddonData:
		return s.repo.AddToBuyIn(ctx, id, *d.Amount, now)
	case *events.SessionEndData:
		return s.repo.CompleteSession(ctx, id, *d.CashOut, now, now)
	}
	return nil
}

// EndSession records session_end with the cash-out and completes the record.
// An open pause needs no resume; the replay nets it out.
func (s *Service) EndSession(ctx context.Context, id string, cashOut int64) (*domain.Session, error) {
	if _, err := s.RecordEvent(ctx, id, &events.SessionEndData{CashOut: &cashOut}); err != nil {
		return nil, err
	}

	s.log.Info().Str("session_id", id).Int64("cash_out", cashOut).Msg("Session ended")
	return s.repo.GetSession(ctx, id)
}

// RecordAllIn logs an all-in for any existing session
func (s *Service) RecordAllIn(ctx context.Context, id string, req AllInRequest) (*domain.AllInRecord, error) {
	if err := validateAllIn(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	recordedAt, err := s.allInTime(session, req.RecordedAt)
	if err != nil {
		return nil, err
	}

	rec := &domain.AllInRecord{
		SessionID:      id,
		PotAmount:      req.PotAmount,
		WinProbability: req.WinProbability,
		ActualResult:   req.ActualResult,
		RunItTimes:     req.RunItTimes,
		WinsInRunout:   req.WinsInRunout,
		RecordedAt:     recordedAt,
	}

	if err := s.repo.AddAllIn(ctx, rec); err != nil {
		return nil, err
	}

	if session.Status == domain.SessionStatusLive {
		s.publishLocked(ctx, id)
	}
	return rec, nil
}

// allInTime places an all-in inside the session window: from the start time
// up to now while live, or up to the end time once completed. A completed
// session's all-ins default to its end time.
func (s *Service) allInTime(session *domain.Session, requested *time.Time) (time.Time, error) {
	upper := s.now()
	if session.Status == domain.SessionStatusCompleted && session.EndTime != nil {
		upper = *session.EndTime
	}

	if requested == nil {
		return upper, nil
	}

	at := requested.UTC()
	if at.Before(session.StartTime) || at.After(upper) {
		return time.Time{}, fmt.Errorf("%w: all-in recorded at %s is outside the session (%s to %s)",
			ErrInvalidRequest, at.Format(time.RFC3339), session.StartTime.Format(time.RFC3339), upper.Format(time.RFC3339))
	}
	return at, nil
}

func validateAllIn(req AllInRequest) error {
	switch {
	case req.PotAmount <= 0:
		return fmt.Errorf("%w: pot amount must be positive", ErrInvalidRequest)
	case req.WinProbability.IsNegative() || req.WinProbability.GreaterThan(decimal.NewFromInt(100)):
		return fmt.Errorf("%w: win probability must be between 0 and 100", ErrInvalidRequest)
	case req.RunItTimes != nil && *req.RunItTimes < 1:
		return fmt.Errorf("%w: run it times must be at least 1", ErrInvalidRequest)
	case req.WinsInRunout != nil && *req.WinsInRunout < 0:
		return fmt.Errorf("%w: wins in runout must not be negative", ErrInvalidRequest)
	case req.WinsInRunout != nil && req.RunItTimes != nil && *req.WinsInRunout > *req.RunItTimes:
		return fmt.Errorf("%w: wins in runout exceeds run it times", ErrInvalidRequest)
	}
	return nil
}

// GetSession returns a session record
func (s *Service) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.repo.GetSession(ctx, id)
}

// ListSessions returns session records newest first
func (s *Service) ListSessions(ctx context.Context, filter ListFilter) ([]domain.Session, error) {
	return s.repo.ListSessions(ctx, filter)
}

// DeleteSession soft-deletes a session
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	s.log.Info().Str("session_id", id).Msg("Session deleted")
	return nil
}

// ListEvents returns a session's event log
func (s *Service) ListEvents(ctx context.Context, id string) ([]events.SessionEvent, error) {
	if _, err := s.repo.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, id)
}

// ListAllIns returns a session's all-ins
func (s *Service) ListAllIns(ctx context.Context, id string) ([]domain.AllInRecord, error) {
	if _, err := s.repo.GetSession(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListAllIns(ctx, id)
}

type replayInputs struct {
	session *domain.Session
	log     []events.SessionEvent
	allIns  []domain.AllInRecord
}

func (s *Service) load(ctx context.Context, id string) (*replayInputs, error) {
	session, err := s.repo.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	log, err := s.repo.ListEvents(ctx, id)
	if err != nil {
		return nil, err
	}
	allIns, err := s.repo.ListAllIns(ctx, id)
	if err != nil {
		return nil, err
	}
	return &replayInputs{session: session, log: log, allIns: allIns}, nil
}

// Chart replays a session into a display-ready chart. An empty variant
// defaults from the game type. Too few points yield an empty chart rather
// than an error.
func (s *Service) Chart(ctx context.Context, id string, variant replay.Variant, axis replay.AxisMode) (*ChartResult, error) {
	in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if variant == "" {
		variant = replay.VariantFor(in.session.GameType)
	}
	if axis == "" {
		axis = replay.AxisTime
	}

	params := in.session.Parameters()
	series, err := replay.BuildSeries(in.log, in.allIns, params, s.now())
	empty := errors.Is(err, replay.ErrInsufficientData)
	if err != nil && !empty {
		return nil, fmt.Errorf("failed to replay session %s: %w", id, err)
	}

	if len(series.Skipped) > 0 {
		s.log.Debug().
			Str("session_id", id).
			Int("skipped", len(series.Skipped)).
			Msg("Replay skipped events")
	}

	return &ChartResult{
		SessionID: id,
		Status:    params.Status(),
		Chart:     replay.BuildChart(series, variant, axis, params.BigBlind),
		Empty:     empty,
		Skipped:   series.Skipped,
	}, nil
}

// StateAt reconstructs a session at an arbitrary instant
func (s *Service) StateAt(ctx context.Context, id string, at time.Time) (*replay.Snapshot, error) {
	in, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	snap, err := replay.StateAt(in.log, in.allIns, in.session.Parameters(), at)
	if err != nil {
		return nil, fmt.Errorf("failed to replay session %s: %w", id, err)
	}
	return snap, nil
}

// LiveState reconstructs a session as of now
func (s *Service) LiveState(ctx context.Context, id string) (*replay.Snapshot, error) {
	return s.StateAt(ctx, id, s.now())
}

// AllInSummary aggregates a session's all-ins
func (s *Service) AllInSummary(ctx context.Context, id string) (replay.LuckSummary, error) {
	allIns, err := s.ListAllIns(ctx, id)
	if err != nil {
		return replay.LuckSummary{}, err
	}
	return replay.NewLuckEngine(allIns).Summary(), nil
}

// PublishLive pushes a fresh snapshot of the live session, if any. It returns
// the live session ID, or "" when nothing is live.
func (s *Service) PublishLive(ctx context.Context) (string, error) {
	session, err := s.repo.GetLiveSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "", nil
	}

	snap, err := s.LiveState(ctx, session.ID)
	if err != nil {
		return session.ID, err
	}
	if s.publisher != nil {
		s.publisher.Publish(session.ID, snap)
	}
	return session.ID, nil
}

// publishLocked pushes a snapshot after a write; failures are logged only
func (s *Service) publishLocked(ctx context.Context, id string) {
	if s.publisher == nil {
		return
	}

	snap, err := s.LiveState(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", id).Msg("Failed to build live snapshot")
		return
	}
	s.publisher.Publish(id, snap)
}
