package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/aristath/stacktrack/internal/modules/replay"
	"github.com/aristath/stacktrack/internal/modules/sessions"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
	"nhooyr.io/websocket"
)

const writeWait = 10 * time.Second

// Wire formats accepted in ?format=
const (
	FormatJSON    = "json"
	FormatMsgpack = "msgpack"
)

// SnapshotSource rebuilds a session's current state
type SnapshotSource interface {
	LiveState(ctx context.Context, id string) (*replay.Snapshot, error)
}

// Handler streams a session's snapshots over a websocket
type Handler struct {
	hub            *Hub
	source         SnapshotSource
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new live stream handler
func NewHandler(hub *Hub, source SnapshotSource, log zerolog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		source: source,
		log:    log.With().Str("handler", "live_stream").Logger(),
	}
}

// SetOriginPatterns lists the cross-origin hosts allowed to connect.
// Without patterns only same-host browser connections are accepted.
func (h *Handler) SetOriginPatterns(patterns []string) {
	h.originPatterns = patterns
}

func encodeFrame(format string, frame Frame) (websocket.MessageType, []byte, error) {
	if format == FormatMsgpack {
		data, err := msgpack.Marshal(frame)
		return websocket.MessageBinary, data, err
	}
	data, err := json.Marshal(frame)
	return websocket.MessageText, data, err
}

// ServeHTTP handles GET /api/sessions/{id}/live/ws?format=json|msgpack.
// The current snapshot is sent immediately, then every published one.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatMsgpack {
		http.Error(w, "Invalid format. Must be json or msgpack", http.StatusBadRequest)
		return
	}

	snap, err := h.source.LiveState(r.Context(), id)
	if errors.Is(err, sessions.ErrNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("session_id", id).Msg("Failed to build initial snapshot")
		http.Error(w, "Failed to build live state", http.StatusInternalServerError)
		return
	}

	// subscribe before the upgrade so no publish is missed after the first frame
	frames := h.hub.Subscribe(id)
	defer h.hub.Unsubscribe(frames)

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.Warn().Err(err).Str("session_id", id).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	h.log.Info().Str("session_id", id).Str("format", format).Msg("Client connected to live stream")

	// clients only listen; CloseRead cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())

	if err := h.write(ctx, conn, format, NewFrame(id, snap)); err != nil {
		h.log.Debug().Err(err).Str("session_id", id).Msg("Failed to send initial frame")
		return
	}

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Str("session_id", id).Msg("Client disconnected from live stream")
			return
		case frame, ok := <-frames:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			if err := h.write(ctx, conn, format, frame); err != nil {
				h.log.Debug().Err(err).Str("session_id", id).Msg("Failed to send frame")
				return
			}
		}
	}
}

func (h *Handler) write(ctx context.Context, conn *websocket.Conn, format string, frame Frame) error {
	msgType, data, err := encodeFrame(format, frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	return conn.Write(ctx, msgType, data)
}
