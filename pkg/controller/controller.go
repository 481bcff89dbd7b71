// Package controller implements the tour authoring, browsing and following
// state machine.
//
// A Controller is not safe for concurrent use. Callers sharing one across
// goroutines must serialise every call behind a single lock (see
// tourguide/pkg/session).
package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"tourguide/pkg/chunk"
	"tourguide/pkg/geo"
	"tourguide/pkg/model"
)

// State is the controller mode.
type State string

const (
	StateBrowseOverview State = "browse_overview"
	StateBrowseDetails  State = "browse_details"
	StateCreating       State = "creating"
	StateFollowing      State = "following"
)

// Controller errors.
var (
	ErrWrongState    = errors.New("operation not allowed in current state")
	ErrDuplicateTour = errors.New("tour id already in use")
	ErrUnknownTour   = errors.New("unknown tour")
	ErrIncomplete    = errors.New("tour cannot be completed yet")
)

// Status is the binary outcome reported to shells.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// StatusOf reduces an operation error to its Status.
func StatusOf(err error) Status {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// Params are the tunables fixed at construction.
type Params struct {
	// WaypointRadius is the arrival threshold.
	WaypointRadius float64
	// WaypointSeparation is the minimum spacing between consecutive waypoints.
	WaypointSeparation float64
}

// Controller owns the committed tours, the tour being authored, the last
// known location, the follow cursor and the current output.
type Controller struct {
	params Params
	logger *slog.Logger

	state    State
	tours    map[string]*model.Tour
	draft    *model.Tour
	selected string

	location geo.Point
	located  bool
	follow   *cursor

	output []chunk.Chunk
}

// New creates a controller in the browse overview state.
func New(p Params, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		params:   p,
		logger:   logger,
		state:    StateBrowseOverview,
		tours:    make(map[string]*model.Tour),
		location: geo.Origin,
	}
	c.output = []chunk.Chunk{c.overview()}
	return c
}

// State returns the current mode.
func (c *Controller) State() State {
	return c.state
}

// Params returns the construction parameters.
func (c *Controller) Params() Params {
	return c.params
}

// Location returns the last known location and whether one was ever set.
func (c *Controller) Location() (geo.Point, bool) {
	return c.location, c.located
}

// Output returns the chunks produced by the most recent operation.
func (c *Controller) Output() []chunk.Chunk {
	return slices.Clone(c.output)
}

// Tours lists the committed tours ordered by id.
func (c *Controller) Tours() []chunk.TourRef {
	return c.overview().Tours
}

// Tour returns a committed tour. The tour must be treated as read-only.
func (c *Controller) Tour(id string) (*model.Tour, bool) {
	t, ok := c.tours[id]
	return t, ok
}

// Draft describes the tour being authored, if any.
func (c *Controller) Draft() (chunk.TourRef, bool) {
	if c.draft == nil {
		return chunk.TourRef{}, false
	}
	return chunk.TourRef{ID: c.draft.ID, Title: c.draft.Title}, true
}

// Selected returns the id of the tour shown in details or being followed.
func (c *Controller) Selected() string {
	return c.selected
}

func (c *Controller) browsing() bool {
	return c.state == StateBrowseOverview || c.state == StateBrowseDetails
}

func (c *Controller) reject(op string, err error) error {
	c.logger.Debug("Operation rejected", "op", op, "state", c.state, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

func (c *Controller) overview() chunk.BrowseOverview {
	refs := make([]chunk.TourRef, 0, len(c.tours))
	for _, t := range c.tours {
		refs = append(refs, chunk.TourRef{ID: t.ID, Title: t.Title})
	}
	return chunk.NewBrowseOverview(refs...)
}

func (c *Controller) emit(chunks ...chunk.Chunk) {
	c.output = append(make([]chunk.Chunk, 0, len(chunks)), chunks...)
}

func (c *Controller) showOverview() {
	c.state = StateBrowseOverview
	c.selected = ""
	c.emit(c.overview())
}

// StartNewTour begins authoring a tour.
func (c *Controller) StartNewTour(id, title string, annotation model.Annotation) error {
	const op = "start new tour"
	if !c.browsing() {
		return c.reject(op, ErrWrongState)
	}
	if _, exists := c.tours[id]; exists {
		return c.reject(op, fmt.Errorf("%w: %q", ErrDuplicateTour, id))
	}

	c.draft = model.NewTour(id, title, annotation)
	c.state = StateCreating
	c.selected = ""
	c.logger.Info("Tour authoring started", "id", id, "title", title)
	c.emitCreateHeader()
	return nil
}

func (c *Controller) emitCreateHeader() {
	c.emit(chunk.CreateHeader{
		Title:     c.draft.Title,
		Legs:      c.draft.LegCount(),
		Waypoints: c.draft.WaypointCount(),
	})
}

// SetLocation records the user's position. While following a tour it
// recomputes the navigation output.
func (c *Controller) SetLocation(x, y float64) error {
	c.location = geo.Point{X: x, Y: y}
	c.located = true
	if c.state == StateFollowing {
		c.navigate()
	}
	return nil
}

// AddLeg adds a leg to the current stage of the tour being authored.
func (c *Controller) AddLeg(annotation model.Annotation) error {
	const op = "add leg"
	if c.state != StateCreating {
		return c.reject(op, ErrWrongState)
	}
	if err := c.draft.AddLeg(annotation); err != nil {
		return c.reject(op, err)
	}
	c.emitCreateHeader()
	return nil
}

// AddWaypoint adds a waypoint at the last known location.
func (c *Controller) AddWaypoint(annotation model.Annotation) error {
	const op = "add waypoint"
	if c.state != StateCreating {
		return c.reject(op, ErrWrongState)
	}
	w := model.Waypoint{Location: c.location, Annotation: annotation}
	if err := c.draft.AddWaypoint(w, c.params.WaypointSeparation); err != nil {
		return c.reject(op, err)
	}
	c.logger.Debug("Waypoint added", "tour", c.draft.ID, "x", w.Location.X, "y", w.Location.Y)
	c.emitCreateHeader()
	return nil
}

// EndNewTour commits the tour being authored.
func (c *Controller) EndNewTour() error {
	const op = "end new tour"
	if c.state != StateCreating {
		return c.reject(op, ErrWrongState)
	}
	if err := c.draft.Complete(); err != nil {
		return c.reject(op, fmt.Errorf("%w: %w", ErrIncomplete, err))
	}

	t := c.draft
	c.tours[t.ID] = t
	c.draft = nil
	c.logger.Info("Tour committed", "id", t.ID, "legs", t.LegCount(), "waypoints", t.WaypointCount())
	c.showOverview()
	return nil
}

// ShowTourDetails selects a committed tour for display.
func (c *Controller) ShowTourDetails(id string) error {
	const op = "show tour details"
	if !c.browsing() {
		return c.reject(op, ErrWrongState)
	}
	t, ok := c.tours[id]
	if !ok {
		return c.reject(op, fmt.Errorf("%w: %q", ErrUnknownTour, id))
	}

	c.state = StateBrowseDetails
	c.selected = id
	c.emit(chunk.BrowseDetails{ID: t.ID, Title: t.Title, Annotation: t.Annotation})
	return nil
}

// ShowToursOverview returns to the list of committed tours.
func (c *Controller) ShowToursOverview() error {
	if !c.browsing() {
		return c.reject("show tours overview", ErrWrongState)
	}
	c.showOverview()
	return nil
}

// FollowTour starts walking a committed tour with nothing visited. When a
// location is known the output points at the first waypoint; arrivals are
// counted from the next SetLocation on.
func (c *Controller) FollowTour(id string) error {
	const op = "follow tour"
	if !c.browsing() {
		return c.reject(op, ErrWrongState)
	}
	t, ok := c.tours[id]
	if !ok {
		return c.reject(op, fmt.Errorf("%w: %q", ErrUnknownTour, id))
	}

	c.follow = newCursor(t)
	c.state = StateFollowing
	c.selected = id
	c.logger.Info("Following tour", "id", id, "waypoints", c.follow.total)

	if c.located {
		c.preview()
	} else {
		c.emit()
	}
	return nil
}

// EndSelectedTour stops following, whatever the progress.
func (c *Controller) EndSelectedTour() error {
	if c.state != StateFollowing {
		return c.reject("end selected tour", ErrWrongState)
	}
	c.logger.Info("Stopped following tour", "id", c.selected, "visited", c.follow.visited, "total", c.follow.total)
	c.follow = nil
	c.showOverview()
	return nil
}
