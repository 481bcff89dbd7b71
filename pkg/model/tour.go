package model

import (
	"errors"
	"fmt"

	"tourguide/pkg/geo"
)

// Tour authoring errors.
var (
	ErrWaypointTooClose = errors.New("waypoint too close to the previous waypoint")
	ErrTourCommitted    = errors.New("tour is already committed")
)

// Tour is an ordered sequence of stages, always led by one first stage.
type Tour struct {
	ID         string
	Title      string
	Annotation Annotation

	stages []*Stage
}

// NewTour creates a tour holding a single empty first stage.
func NewTour(id, title string, annotation Annotation) *Tour {
	return &Tour{
		ID:         id,
		Title:      title,
		Annotation: annotation,
		stages:     []*Stage{newStage(StageFirst)},
	}
}

// Stages returns a copy of the stage sequence.
func (t *Tour) Stages() []Stage {
	out := make([]Stage, len(t.stages))
	for i, s := range t.stages {
		out[i] = *s
	}
	return out
}

// LegCount returns the number of legs across all stages.
func (t *Tour) LegCount() int {
	return CountLegs(t.stages)
}

// WaypointCount returns the number of waypoints across all stages.
func (t *Tour) WaypointCount() int {
	return CountWaypoints(t.stages)
}

// Committed reports whether the tour has been closed by a final stage.
func (t *Tour) Committed() bool {
	return t.last().IsFinal()
}

// Waypoints returns the waypoints in stage order.
func (t *Tour) Waypoints() []Waypoint {
	out := make([]Waypoint, 0, len(t.stages))
	for _, s := range t.stages {
		if s.waypoint != nil {
			out = append(out, *s.waypoint)
		}
	}
	return out
}

// Route returns the waypoint locations in stage order.
func (t *Tour) Route() []geo.Point {
	wps := t.Waypoints()
	out := make([]geo.Point, len(wps))
	for i, w := range wps {
		out[i] = w.Location
	}
	return out
}

// LegInto returns the leg leading to the waypoint at index i (0-based, in
// stage order). That is the leg of the stage preceding the waypoint's stage.
// A missing leg reads as a leg with the default annotation.
func (t *Tour) LegInto(i int) Leg {
	seen := 0
	for j, s := range t.stages {
		if s.waypoint == nil {
			continue
		}
		if seen == i {
			if j > 0 && t.stages[j-1].leg != nil {
				return *t.stages[j-1].leg
			}
			return Leg{Annotation: DefaultAnnotation}
		}
		seen++
	}
	return Leg{Annotation: DefaultAnnotation}
}

func (t *Tour) last() *Stage {
	return t.stages[len(t.stages)-1]
}

func (t *Tour) lastWaypoint() (Waypoint, bool) {
	for i := len(t.stages) - 1; i >= 0; i-- {
		if w := t.stages[i].waypoint; w != nil {
			return *w, true
		}
	}
	return Waypoint{}, false
}

// AddLeg assigns a leg to the current (last) stage.
func (t *Tour) AddLeg(annotation Annotation) error {
	if err := t.last().AssignLeg(Leg{Annotation: annotation}); err != nil {
		return fmt.Errorf("add leg to stage %d: %w", len(t.stages)-1, err)
	}
	return nil
}

// AddWaypoint places w on the tour.
//
// The waypoint must be at least separation away from the previous waypoint.
// When the current stage cannot take a waypoint a new intermediate stage is
// appended; the stage left behind receives a default leg first if it has
// none. Either every step succeeds or the tour is left untouched.
func (t *Tour) AddWaypoint(w Waypoint, separation float64) error {
	if t.Committed() {
		return ErrTourCommitted
	}

	if prev, ok := t.lastWaypoint(); ok {
		if d := geo.Distance(prev.Location, w.Location); d < separation {
			return fmt.Errorf("%w: %.1f < %.1f", ErrWaypointTooClose, d, separation)
		}
	}

	last := t.last()
	if last.canAcceptWaypoint() == nil {
		return last.AssignWaypoint(w)
	}

	if !last.HasLeg() {
		if err := last.canAcceptLeg(); err != nil {
			return fmt.Errorf("implicit leg on stage %d: %w", len(t.stages)-1, err)
		}
		_ = last.AssignLeg(Leg{Annotation: DefaultAnnotation})
	}

	next := newStage(StageIntermediate)
	_ = next.AssignWaypoint(w)
	t.stages = append(t.stages, next)
	return nil
}

// Complete promotes the last stage to final, committing the tour.
func (t *Tour) Complete() error {
	if err := t.last().PromoteToFinal(); err != nil {
		return fmt.Errorf("complete tour %q: %w", t.ID, err)
	}
	return nil
}
