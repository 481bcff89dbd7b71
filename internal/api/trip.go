package api

import (
	"net/http"

	"tourguide/pkg/model"
)

// EventProvider provides access to the trip journal.
type EventProvider interface {
	Events() []model.TripEvent
}

// TripHandler handles trip-related API endpoints.
type TripHandler struct {
	events EventProvider
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(events EventProvider) *TripHandler {
	return &TripHandler{events: events}
}

// HandleEvents returns the trip events as JSON.
// GET /api/trip/events
func (h *TripHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	events := h.events.Events()
	if events == nil {
		events = []model.TripEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}
