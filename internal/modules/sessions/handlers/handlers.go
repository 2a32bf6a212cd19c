// Package handlers provides HTTP handlers for poker sessions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/stacktrack/internal/domain"
	"github.com/aristath/stacktrack/internal/events"
	"github.com/aristath/stacktrack/internal/modules/replay"
	"github.com/aristath/stacktrack/internal/modules/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles session HTTP requests
type Handler struct {
	service *sessions.Service
	stream  http.Handler
	log     zerolog.Logger
}

// NewHandler creates a new sessions handler
func NewHandler(service *sessions.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "sessions").Logger(),
	}
}

// SetStreamHandler mounts the live push stream at /sessions/{id}/live/ws
func (h *Handler) SetStreamHandler(stream http.Handler) {
	h.stream = stream
}

// RecordEventRequest is the body of POST /api/sessions/{id}/events
type RecordEventRequest struct {
	EventType events.EventType `json:"event_type"`
	EventData json.RawMessage  `json:"event_data"`
}

// EndSessionRequest is the body of POST /api/sessions/{id}/end
type EndSessionRequest struct {
	CashOut *int64 `json:"cash_out"`
}

// HandleStartSession handles POST /api/sessions
func (h *Handler) HandleStartSession(w http.ResponseWriter, r *http.Request) {
	var req sessions.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.service.StartSession(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to start session")
		return
	}

	h.writeData(w, http.StatusCreated, session)
}

// HandleListSessions handles GET /api/sessions
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := sessions.ListFilter{
		Status:   domain.SessionStatus(query.Get("status")),
		GameType: domain.GameType(query.Get("game_type")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 || limit > 1000 {
			h.writeError(w, http.StatusBadRequest, "Invalid limit. Must be 1-1000")
			return
		}
		filter.Limit = limit
	}

	list, err := h.service.ListSessions(r.Context(), filter)
	if err != nil {
		h.handleServiceError(w, err, "Failed to list sessions")
		return
	}

	h.writeData(w, http.StatusOK, list)
}

// HandleGetSession handles GET /api/sessions/{id}
func (h *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to get session")
		return
	}

	h.writeData(w, http.StatusOK, session)
}

// HandleDeleteSession handles DELETE /api/sessions/{id}
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.handleServiceError(w, err, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleRecordEvent handles POST /api/sessions/{id}/events
func (h *Handler) HandleRecordEvent(w http.ResponseWriter, r *http.Request) {
	var req RecordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.EventType == "" {
		h.writeError(w, http.StatusBadRequest, "event_type is required")
		return
	}

	data, err := events.DecodeEventData(req.EventType, req.EventData)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	evt, err := h.service.RecordEvent(r.Context(), chi.URLParam(r, "id"), data)
	if err != nil {
		h.handleServiceError(w, err, "Failed to record event")
		return
	}

	h.writeData(w, http.StatusCreated, evt)
}

// HandleListEvents handles GET /api/sessions/{id}/events
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	log, err := h.service.ListEvents(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to list events")
		return
	}

	h.writeData(w, http.StatusOK, log)
}

// HandleEndSession handles POST /api/sessions/{id}/end
func (h *Handler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	var req EndSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CashOut == nil || *req.CashOut < 0 {
		h.writeError(w, http.StatusBadRequest, "cash_out is required and must not be negative")
		return
	}

	session, err := h.service.EndSession(r.Context(), chi.URLParam(r, "id"), *req.CashOut)
	if err != nil {
		h.handleServiceError(w, err, "Failed to end session")
		return
	}

	h.writeData(w, http.StatusOK, session)
}

// HandleRecordAllIn handles POST /api/sessions/{id}/all-ins
func (h *Handler) HandleRecordAllIn(w http.ResponseWriter, r *http.Request) {
	var req sessions.AllInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.service.RecordAllIn(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.handleServiceError(w, err, "Failed to record all-in")
		return
	}

	h.writeData(w, http.StatusCreated, rec)
}

// HandleListAllIns handles GET /api/sessions/{id}/all-ins
func (h *Handler) HandleListAllIns(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.ListAllIns(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to list all-ins")
		return
	}

	h.writeData(w, http.StatusOK, records)
}

// HandleAllInSummary handles GET /api/sessions/{id}/all-ins/summary
func (h *Handler) HandleAllInSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.AllInSummary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, err, "Failed to summarize all-ins")
		return
	}

	h.writeData(w, http.StatusOK, summary)
}

// HandleGetChart handles GET /api/sessions/{id}/chart?variant=cash|tournament&axis=time|hands
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	variant := replay.Variant(r.URL.Query().Get("variant"))
	if variant != "" && !variant.Valid() {
		h.writeError(w, http.StatusBadRequest, "Invalid variant. Must be cash or tournament")
		return
	}

	axis := replay.AxisMode(r.URL.Query().Get("axis"))
	if axis != "" && !axis.Valid() {
		h.writeError(w, http.StatusBadRequest, "Invalid axis. Must be time or hands")
		return
	}

	result, err := h.service.Chart(r.Context(), chi.URLParam(r, "id"), variant, axis)
	if err != nil {
		h.handleServiceError(w, err, "Failed to build chart")
		return
	}

	h.writeData(w, http.StatusOK, result)
}

// HandleGetLive handles GET /api/sessions/{id}/live
// An optional ?at=RFC3339 reconstructs the session at that instant instead of now.
func (h *Handler) HandleGetLive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var snap *replay.Snapshot
	var err error
	if atStr := r.URL.Query().Get("at"); atStr != "" {
		at, parseErr := time.Parse(time.RFC3339, atStr)
		if parseErr != nil {
			h.writeError(w, http.StatusBadRequest, "Invalid at. Use RFC3339")
			return
		}
		snap, err = h.service.StateAt(r.Context(), id, at)
	} else {
		snap, err = h.service.LiveState(r.Context(), id)
	}
	if err != nil {
		h.handleServiceError(w, err, "Failed to build live state")
		return
	}

	h.writeData(w, http.StatusOK, snap)
}

// handleServiceError maps service errors onto status codes
func (h *Handler) handleServiceError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, sessions.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sessions.ErrLiveSessionExists),
		errors.Is(err, sessions.ErrSessionNotLive),
		errors.Is(err, sessions.ErrEventOutOfOrder):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, sessions.ErrInvalidRequest),
		errors.Is(err, events.ErrInvalidPayload):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, replay.ErrNoSessionStart),
		errors.Is(err, replay.ErrSequenceNotMonotonic):
		h.log.Warn().Err(err).Msg(message)
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error().Err(err).Msg(message)
		h.writeError(w, http.StatusInternalServerError, message)
	}
}

func (h *Handler) writeData(w http.ResponseWriter, status int, data interface{}) {
	h.writeJSON(w, status, map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
