package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all session routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStartSession)
		r.Get("/", h.HandleListSessions)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleDeleteSession)

			// Event log
			r.Post("/events", h.HandleRecordEvent)
			r.Get("/events", h.HandleListEvents)
			r.Post("/end", h.HandleEndSession)

			// All-ins
			r.Post("/all-ins", h.HandleRecordAllIn)
			r.Get("/all-ins", h.HandleListAllIns)
			r.Get("/all-ins/summary", h.HandleAllInSummary)

			// Derived views
			r.Get("/chart", h.HandleGetChart)
			r.Get("/live", h.HandleGetLive)
			if h.stream != nil {
				r.Get("/live/ws", h.stream.ServeHTTP)
			}
		})
	})
}
