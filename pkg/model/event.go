package model

import "time"

// TripEventType classifies journal entries.
type TripEventType string

const (
	EventTourStarted   TripEventType = "tour_started"
	EventTourCommitted TripEventType = "tour_committed"
	EventFollowStarted TripEventType = "follow_started"
	EventArrival       TripEventType = "arrival"
	EventFollowEnded   TripEventType = "follow_ended"
)

// TripEvent is one entry of the session journal.
type TripEvent struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Type      TripEventType `json:"type"`
	TourID    string        `json:"tour_id,omitempty"`
	Title     string        `json:"title"`
	Summary   string        `json:"summary,omitempty"`
}
