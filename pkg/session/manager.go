// Package session guards the single tour controller shared by the HTTP API,
// the live feed and catalog replay.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"tourguide/pkg/chunk"
	"tourguide/pkg/controller"
	"tourguide/pkg/geo"
	"tourguide/pkg/logging"
	"tourguide/pkg/model"
	"tourguide/pkg/tracker"
)

// Op names a controller operation for stats and the journal.
type Op string

const (
	OpStartNewTour      Op = "start_new_tour"
	OpSetLocation       Op = "set_location"
	OpAddLeg            Op = "add_leg"
	OpAddWaypoint       Op = "add_waypoint"
	OpEndNewTour        Op = "end_new_tour"
	OpShowTourDetails   Op = "show_tour_details"
	OpShowToursOverview Op = "show_tours_overview"
	OpFollowTour        Op = "follow_tour"
	OpEndSelectedTour   Op = "end_selected_tour"
)

const subscriberBuffer = 8

// Progress is the follow cursor as published to clients.
type Progress struct {
	TourID  string `json:"tour_id"`
	Visited int    `json:"visited"`
	Total   int    `json:"total"`
}

// Snapshot is the observable controller state after an operation.
type Snapshot struct {
	State    controller.State
	Output   []chunk.Chunk
	Revision uint64
	Location *geo.Point
	Progress *Progress
}

// MarshalJSON encodes the output as typed envelopes.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State    controller.State `json:"state"`
		Revision uint64           `json:"revision"`
		Location *geo.Point       `json:"location,omitempty"`
		Progress *Progress        `json:"progress,omitempty"`
		Output   []chunk.Envelope `json:"output"`
	}{s.State, s.Revision, s.Location, s.Progress, chunk.Wrap(s.Output)})
}

// TourSummary describes a committed tour.
type TourSummary struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Annotation  model.Annotation `json:"annotation"`
	Legs        int              `json:"legs"`
	Waypoints   int              `json:"waypoints"`
	RouteLength float64          `json:"route_length"`
}

// Manager serialises every controller call and publishes the results.
type Manager struct {
	mu       sync.Mutex
	ctrl     *controller.Controller
	tracker  *tracker.Tracker
	logger   *slog.Logger
	id       string
	revision uint64
	events   []model.TripEvent

	subs    map[int]chan Snapshot
	nextSub int
}

// NewManager wraps ctrl. A nil tracker gets a fresh one.
func NewManager(ctrl *controller.Controller, tr *tracker.Tracker, logger *slog.Logger) *Manager {
	if tr == nil {
		tr = tracker.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		ctrl:    ctrl,
		tracker: tr,
		id:      uuid.NewString(),
		subs:    make(map[int]chan Snapshot),
	}
	m.logger = logger.With("component", "session", "session_id", m.id)
	return m
}

// ID identifies this running session.
func (m *Manager) ID() string {
	return m.id
}

// Tracker returns the operation counters.
func (m *Manager) Tracker() *tracker.Tracker {
	return m.tracker
}

// Apply runs fn against the controller under the session lock. Successful
// operations bump the revision, are journalled and reach subscribers. The
// returned snapshot is current either way.
func (m *Manager) Apply(op Op, fn func(*controller.Controller) error) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft, _ := m.ctrl.Draft()
	visitedBefore, totalBefore, followingBefore := m.ctrl.Progress()
	selectedBefore := m.ctrl.Selected()

	err := fn(m.ctrl)
	m.tracker.Track(string(op), err)
	if err != nil {
		m.logger.Debug("Operation failed", "op", op, "error", err)
		return m.snapshotLocked(), fmt.Errorf("%s: %w", op, err)
	}

	m.revision++
	if op == OpSetLocation {
		loc, _ := m.ctrl.Location()
		logging.Trace(m.logger, "Location update", "x", loc.X, "y", loc.Y, "revision", m.revision)
	}

	switch op {
	case OpStartNewTour:
		if ref, ok := m.ctrl.Draft(); ok {
			m.journal(model.EventTourStarted, ref.ID, ref.Title, "")
		}
	case OpEndNewTour:
		m.journal(model.EventTourCommitted, draft.ID, draft.Title, m.tourSummaryLine(draft.ID))
	case OpFollowTour:
		ref := m.selectedRef()
		m.journal(model.EventFollowStarted, ref.ID, ref.Title, "")
	case OpEndSelectedTour:
		if followingBefore {
			title := m.titleOf(selectedBefore)
			m.journal(model.EventFollowEnded, selectedBefore, title,
				fmt.Sprintf("%d of %d waypoints visited", visitedBefore, totalBefore))
		}
	}

	if visited, _, ok := m.ctrl.Progress(); ok {
		if visited > visitedBefore {
			if wp, ok := m.ctrl.LastArrival(); ok {
				ref := m.selectedRef()
				m.journal(model.EventArrival, ref.ID, ref.Title, wp.Annotation.String())
			}
		}
	}

	snap := m.snapshotLocked()
	m.broadcastLocked(snap)
	return snap, nil
}

// Snapshot returns the current state without running an operation.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	s := Snapshot{
		State:    m.ctrl.State(),
		Output:   m.ctrl.Output(),
		Revision: m.revision,
	}
	if loc, ok := m.ctrl.Location(); ok {
		s.Location = &loc
	}
	if visited, total, ok := m.ctrl.Progress(); ok {
		s.Progress = &Progress{TourID: m.ctrl.Selected(), Visited: visited, Total: total}
	}
	return s
}

func (m *Manager) selectedRef() chunk.TourRef {
	id := m.ctrl.Selected()
	return chunk.TourRef{ID: id, Title: m.titleOf(id)}
}

func (m *Manager) titleOf(id string) string {
	if t, ok := m.ctrl.Tour(id); ok {
		return t.Title
	}
	return ""
}

func (m *Manager) tourSummaryLine(id string) string {
	t, ok := m.ctrl.Tour(id)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d legs, %d waypoints", t.LegCount(), t.WaypointCount())
}

func (m *Manager) journal(typ model.TripEventType, tourID, title, summary string) {
	ev := model.TripEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Type:      typ,
		TourID:    tourID,
		Title:     title,
		Summary:   summary,
	}
	m.events = append(m.events, ev)
	m.logger.Info("Trip event", "type", typ, "tour", tourID, "summary", summary)
	logging.LogEvent(&ev)
}

// Events returns a copy of the trip journal.
func (m *Manager) Events() []model.TripEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// Tours summarises the committed tours ordered by id.
func (m *Manager) Tours() []TourSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	refs := m.ctrl.Tours()
	out := make([]TourSummary, 0, len(refs))
	for _, ref := range refs {
		if s, ok := m.summaryLocked(ref.ID); ok {
			out = append(out, s)
		}
	}
	return out
}

// Tour summarises one committed tour.
func (m *Manager) Tour(id string) (TourSummary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summaryLocked(id)
}

func (m *Manager) summaryLocked(id string) (TourSummary, bool) {
	t, ok := m.ctrl.Tour(id)
	if !ok {
		return TourSummary{}, false
	}
	return TourSummary{
		ID:          t.ID,
		Title:       t.Title,
		Annotation:  t.Annotation,
		Legs:        t.LegCount(),
		Waypoints:   t.WaypointCount(),
		RouteLength: geo.PathLength(t.Route()),
	}, true
}

// Subscribe registers for snapshots after each successful operation. Slow
// subscribers lose older snapshots, never the newest. The returned func
// unsubscribes and closes the channel.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, subscriberBuffer)
	m.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			delete(m.subs, id)
			close(ch)
		})
	}
}

func (m *Manager) broadcastLocked(snap Snapshot) {
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
			// Drop the oldest queued snapshot to make room.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
