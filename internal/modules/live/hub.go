// Package live pushes live-session snapshots to connected dashboards.
package live

import (
	"sync"
	"time"

	"github.com/aristath/stacktrack/internal/modules/replay"
	"github.com/rs/zerolog"
)

const subscriberBuffer = 8

// Frame is one pushed update. Decimal values travel as strings so both JSON
// and msgpack clients read them without loss.
type Frame struct {
	Type           string    `json:"type" msgpack:"type"`
	SessionID      string    `json:"session_id" msgpack:"session_id"`
	At             time.Time `json:"at" msgpack:"at"`
	Status         string    `json:"status" msgpack:"status"`
	ElapsedMinutes int       `json:"elapsed_minutes" msgpack:"elapsed_minutes"`
	Elapsed        string    `json:"elapsed" msgpack:"elapsed"`
	HandCount      int       `json:"hand_count" msgpack:"hand_count"`
	Stack          int64     `json:"stack" msgpack:"stack"`
	Investment     int64     `json:"investment" msgpack:"investment"`
	Profit         int64     `json:"profit" msgpack:"profit"`
	Luck           string    `json:"luck" msgpack:"luck"`
	AdjustedProfit string    `json:"adjusted_profit" msgpack:"adjusted_profit"`
	Paused         bool      `json:"paused" msgpack:"paused"`
	Ended          bool      `json:"ended" msgpack:"ended"`
	LastSequence   int64     `json:"last_sequence" msgpack:"last_sequence"`
}

// NewFrame converts a snapshot into a snapshot frame
func NewFrame(sessionID string, snap *replay.Snapshot) Frame {
	return Frame{
		Type:           "snapshot",
		SessionID:      sessionID,
		At:             snap.At,
		Status:         string(snap.Status),
		ElapsedMinutes: snap.ElapsedMinutes,
		Elapsed:        snap.Elapsed,
		HandCount:      snap.HandCount,
		Stack:          snap.Stack,
		Investment:     snap.Investment,
		Profit:         snap.Profit,
		Luck:           snap.Luck.String(),
		AdjustedProfit: snap.AdjustedProfit.String(),
		Paused:         snap.Paused,
		Ended:          snap.Ended,
		LastSequence:   snap.LastSequence,
	}
}

// Hub fans snapshots out to subscribers of a session
type Hub struct {
	subscribers map[chan Frame]string // channel -> session ID
	mu          sync.RWMutex
	log         zerolog.Logger
}

// NewHub creates a new hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subscribers: make(map[chan Frame]string),
		log:         log.With().Str("component", "live_hub").Logger(),
	}
}

// Subscribe registers a buffered channel for one session's frames
func (h *Hub) Subscribe(sessionID string) chan Frame {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Frame, subscriberBuffer)
	h.subscribers[ch] = sessionID

	h.log.Debug().
		Str("session_id", sessionID).
		Int("total_subscribers", len(h.subscribers)).
		Msg("Subscriber added")

	return ch
}

// Unsubscribe removes and closes a subscriber channel
func (h *Hub) Unsubscribe(ch chan Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()

	sessionID, ok := h.subscribers[ch]
	if !ok {
		return
	}
	delete(h.subscribers, ch)
	close(ch)

	h.log.Debug().
		Str("session_id", sessionID).
		Int("total_subscribers", len(h.subscribers)).
		Msg("Subscriber removed")
}

// Publish sends a snapshot to every subscriber of the session. A subscriber
// whose buffer is full misses the frame.
func (h *Hub) Publish(sessionID string, snap *replay.Snapshot) {
	if snap == nil {
		return
	}
	frame := NewFrame(sessionID, snap)

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch, subscribed := range h.subscribers {
		if subscribed != sessionID {
			continue
		}
		select {
		case ch <- frame:
		default:
			h.log.Warn().Str("session_id", sessionID).Msg("Subscriber channel full, frame dropped")
		}
	}
}

// SubscriberCount returns the number of subscribers, for one session or for
// all sessions when sessionID is empty.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if sessionID == "" {
		return len(h.subscribers)
	}
	count := 0
	for _, subscribed := range h.subscribers {
		if subscribed == sessionID {
			count++
		}
	}
	return count
}
