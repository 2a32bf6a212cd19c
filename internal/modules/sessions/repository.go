package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/stacktrack/internal/database"
	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Repository stores session records in sessions.db and the append-only
// event log and all-ins in ledger.db.
type Repository struct {
	sessionsDB *sql.DB
	ledgerDB   *sql.DB
	log        zerolog.Logger
}

// NewRepository creates a new session repository
func NewRepository(sessionsDB, ledgerDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		sessionsDB: sessionsDB,
		ledgerDB:   ledgerDB,
		log:        log.With().Str("repo", "sessions").Logger(),
	}
}

const sessionColumns = `id, name, game_type, status, buy_in, big_blind, current_stack,
	cash_out, start_time, end_time, notes, created_at, updated_at`

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func intPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var s domain.Session
	var gameType, status string
	var bigBlind, currentStack, cashOut, endTime sql.NullInt64
	var startTime, createdAt, updatedAt int64

	err := row.Scan(
		&s.ID,
		&s.Name,
		&gameType,
		&status,
		&s.BuyIn,
		&bigBlind,
		&currentStack,
		&cashOut,
		&startTime,
		&endTime,
		&s.Notes,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.GameType = domain.GameType(gameType)
	s.Status = domain.SessionStatus(status)
	s.BigBlind = intPtr(bigBlind)
	s.CurrentStack = intPtr(currentStack)
	s.CashOut = intPtr(cashOut)
	s.StartTime = fromMillis(startTime)
	if endTime.Valid {
		end := fromMillis(endTime.Int64)
		s.EndTime = &end
	}
	s.CreatedAt = fromMillis(createdAt)
	s.UpdatedAt = fromMillis(updatedAt)

	return &s, nil
}

// CreateSession inserts a session record, assigning an ID when empty
func (r *Repository) CreateSession(ctx context.Context, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}

	var endTime sql.NullInt64
	if s.EndTime != nil {
		endTime = sql.NullInt64{Int64: toMillis(*s.EndTime), Valid: true}
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.sessionsDB.ExecContext(ctx, query,
		s.ID,
		s.Name,
		string(s.GameType),
		string(s.Status),
		s.BuyIn,
		nullInt(s.BigBlind),
		nullInt(s.CurrentStack),
		nullInt(s.CashOut),
		toMillis(s.StartTime),
		endTime,
		s.Notes,
		toMillis(s.CreatedAt),
		toMillis(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	r.log.Debug().Str("session_id", s.ID).Str("game_type", string(s.GameType)).Msg("Session created")
	return nil
}

// GetSession returns a session that has not been deleted
func (r *Repository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? AND deleted_at IS NULL`

	s, err := scanSession(r.sessionsDB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return s, nil
}

// GetLiveSession returns the live session, or nil when none is live
func (r *Repository) GetLiveSession(ctx context.Context) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions
		WHERE status = 'live' AND deleted_at IS NULL
		ORDER BY start_time DESC LIMIT 1`

	s, err := scanSession(r.sessionsDB.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get live session: %w", err)
	}
	return s, nil
}

// ListSessions returns sessions newest first
func (r *Repository) ListSessions(ctx context.Context, filter ListFilter) ([]domain.Session, error) {
	conditions := []string{"deleted_at IS NULL"}
	var args []any

	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.GameType != "" {
		conditions = append(conditions, "game_type = ?")
		args = append(args, string(filter.GameType))
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY start_time DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.sessionsDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}

	return sessions, nil
}

// execLive runs an update that only applies to a live, non-deleted session
func (r *Repository) execLive(ctx context.Context, query string, args ...any) error {
	result, err := r.sessionsDB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrSessionNotLive
	}
	return nil
}

// UpdateLiveStack sets the live stack of a live session
func (r *Repository) UpdateLiveStack(ctx context.Context, id string, stack int64, at time.Time) error {
	err := r.execLive(ctx, `
		UPDATE sessions SET current_stack = ?, updated_at = ?
		WHERE id = ? AND status = 'live' AND deleted_at IS NULL
	`, stack, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to update live stack: %w", err)
	}
	return nil
}

// AddToBuyIn adds a rebuy or addon to both the buy-in and the live stack
func (r *Repository) AddToBuyIn(ctx context.Context, id string, amount int64, at time.Time) error {
	err := r.execLive(ctx, `
		UPDATE sessions
		SET buy_in = buy_in + ?, current_stack = COALESCE(current_stack, 0) + ?, updated_at = ?
		WHERE id = ? AND status = 'live' AND deleted_at IS NULL
	`, amount, amount, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to add to buy-in: %w", err)
	}
	return nil
}

// CompleteSession records the cash-out and end time and clears the live stack
func (r *Repository) CompleteSession(ctx context.Context, id string, cashOut int64, endTime, at time.Time) error {
	err := r.execLive(ctx, `
		UPDATE sessions
		SET status = 'completed', cash_out = ?, end_time = ?, current_stack = NULL, updated_at = ?
		WHERE id = ? AND status = 'live' AND deleted_at IS NULL
	`, cashOut, toMillis(endTime), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to complete session: %w", err)
	}
	return nil
}

// SoftDelete hides a session; its ledger entries are kept
func (r *Repository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	result, err := r.sessionsDB.ExecContext(ctx,
		`UPDATE sessions SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		toMillis(at), toMillis(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendEvent appends an event to the session's log with the next sequence.
// recordedAt must not be earlier than the previous event.
func (r *Repository) AppendEvent(ctx context.Context, sessionID string, data events.EventData, recordedAt time.Time) (*events.SessionEvent, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", data.EventType(), err)
	}

	evt := &events.SessionEvent{
		Type:       data.EventType(),
		RecordedAt: fromMillis(toMillis(recordedAt)),
		Data:       data,
	}

	err = database.WithTransaction(r.ledgerDB, func(tx *sql.Tx) error {
		var lastSequence, lastRecordedAt int64
		err := tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(sequence), 0), COALESCE(MAX(recorded_at), 0)
			FROM session_events WHERE session_id = ?
		`, sessionID).Scan(&lastSequence, &lastRecordedAt)
		if err != nil {
			return fmt.Errorf("failed to read last sequence: %w", err)
		}

		if lastSequence > 0 && toMillis(recordedAt) < lastRecordedAt {
			return fmt.Errorf("%w: %s at %s", ErrEventOutOfOrder, evt.Type, evt.RecordedAt.Format(time.RFC3339))
		}

		evt.Sequence = lastSequence + 1
		_, err = tx.ExecContext(ctx, `
			INSERT INTO session_events (session_id, sequence, event_type, event_data, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`, sessionID, evt.Sequence, string(evt.Type), string(payload), toMillis(recordedAt))
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return evt, nil
}

// ListEvents returns the session's event log ordered by sequence. A stored
// payload that no longer decodes is replaced by the empty payload of its kind
// so the replay engine reports it as malformed.
func (r *Repository) ListEvents(ctx context.Context, sessionID string) ([]events.SessionEvent, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, `
		SELECT sequence, event_type, event_data, recorded_at
		FROM session_events WHERE session_id = ?
		ORDER BY sequence ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	log := []events.SessionEvent{}
	for rows.Next() {
		var evt events.SessionEvent
		var eventType, raw string
		var recordedAt int64

		if err := rows.Scan(&evt.Sequence, &eventType, &raw, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}

		evt.Type = events.EventType(eventType)
		evt.RecordedAt = fromMillis(recordedAt)
		evt.Data, err = events.DecodeEventData(evt.Type, []byte(raw))
		if err != nil {
			r.log.Warn().
				Err(err).
				Str("session_id", sessionID).
				Int64("sequence", evt.Sequence).
				Msg("Stored event payload does not decode")
			evt.Data = events.NewEventData(evt.Type)
		}

		log = append(log, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return log, nil
}

// AddAllIn stores an all-in record, assigning an ID when empty
func (r *Repository) AddAllIn(ctx context.Context, rec *domain.AllInRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var runItTimes, winsInRunout sql.NullInt64
	if rec.RunItTimes != nil {
		runItTimes = sql.NullInt64{Int64: int64(*rec.RunItTimes), Valid: true}
	}
	if rec.WinsInRunout != nil {
		winsInRunout = sql.NullInt64{Int64: int64(*rec.WinsInRunout), Valid: true}
	}

	_, err := r.ledgerDB.ExecContext(ctx, `
		INSERT INTO all_ins (id, session_id, pot_amount, win_probability, actual_result,
			run_it_times, wins_in_runout, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.SessionID,
		rec.PotAmount,
		rec.WinProbability.String(),
		rec.ActualResult,
		runItTimes,
		winsInRunout,
		toMillis(rec.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert all-in: %w", err)
	}
	return nil
}

// ListAllIns returns the session's all-ins in recording order
func (r *Repository) ListAllIns(ctx context.Context, sessionID string) ([]domain.AllInRecord, error) {
	rows, err := r.ledgerDB.QueryContext(ctx, `
		SELECT id, session_id, pot_amount, win_probability, actual_result,
			run_it_times, wins_in_runout, recorded_at
		FROM all_ins WHERE session_id = ?
		ORDER BY recorded_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query all-ins: %w", err)
	}
	defer rows.Close()

	records := []domain.AllInRecord{}
	for rows.Next() {
		var rec domain.AllInRecord
		var probability string
		var runItTimes, winsInRunout sql.NullInt64
		var recordedAt int64

		err := rows.Scan(
			&rec.ID,
			&rec.SessionID,
			&rec.PotAmount,
			&probability,
			&rec.ActualResult,
			&runItTimes,
			&winsInRunout,
			&recordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan all-in: %w", err)
		}

		rec.WinProbability, err = decimal.NewFromString(probability)
		if err != nil {
			return nil, fmt.Errorf("failed to parse win probability %q: %w", probability, err)
		}
		if runItTimes.Valid {
			n := int(runItTimes.Int64)
			rec.RunItTimes = &n
		}
		if winsInRunout.Valid {
			n := int(winsInRunout.Int64)
			rec.WinsInRunout = &n
		}
		rec.RecordedAt = fromMillis(recordedAt)

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate all-ins: %w", err)
	}

	return records, nil
}
