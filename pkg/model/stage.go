package model

import (
	"errors"

	"tourguide/pkg/geo"
)

// Stage assignment errors.
var (
	ErrWaypointAssigned   = errors.New("stage already has a waypoint")
	ErrFirstStageWaypoint = errors.New("first stage cannot hold a waypoint")
	ErrLegAssigned        = errors.New("stage already has a leg")
	ErrFinalStageLeg      = errors.New("final stage cannot gain a leg")
	ErrLegBeforeWaypoint  = errors.New("intermediate stage needs its waypoint before its leg")
	ErrNotPromotable      = errors.New("stage cannot become final")
)

// StageKind is the position of a stage within its tour.
type StageKind string

const (
	StageFirst        StageKind = "first"
	StageIntermediate StageKind = "intermediate"
	StageFinal        StageKind = "final"
)

// Waypoint is a point of interest on a tour.
type Waypoint struct {
	Location   geo.Point  `json:"location"`
	Annotation Annotation `json:"annotation"`
}

// Leg is the path leading into the next waypoint.
type Leg struct {
	Annotation Annotation `json:"annotation"`
}

// Stage is one waypoint+leg slot of a tour.
//
// The leg of a stage is the departure from that stage's waypoint (or, for the
// first stage, from the tour start), so the leg of stage i leads to the
// waypoint of stage i+1.
type Stage struct {
	kind     StageKind
	waypoint *Waypoint
	leg      *Leg
}

func newStage(kind StageKind) *Stage {
	return &Stage{kind: kind}
}

// Kind returns the stage kind.
func (s *Stage) Kind() StageKind {
	return s.kind
}

// IsFinal reports whether the stage closes its tour.
func (s *Stage) IsFinal() bool {
	return s.kind == StageFinal
}

// Waypoint returns the stage waypoint, if any.
func (s *Stage) Waypoint() (Waypoint, bool) {
	if s.waypoint == nil {
		return Waypoint{}, false
	}
	return *s.waypoint, true
}

// Leg returns the stage leg, if any.
func (s *Stage) Leg() (Leg, bool) {
	if s.leg == nil {
		return Leg{}, false
	}
	return *s.leg, true
}

// HasWaypoint reports whether the waypoint slot is filled.
func (s *Stage) HasWaypoint() bool {
	return s.waypoint != nil
}

// HasLeg reports whether the leg slot is filled.
func (s *Stage) HasLeg() bool {
	return s.leg != nil
}

// canAcceptWaypoint mirrors the checks of AssignWaypoint without mutating.
func (s *Stage) canAcceptWaypoint() error {
	if s.waypoint != nil {
		return ErrWaypointAssigned
	}
	if s.kind == StageFirst {
		return ErrFirstStageWaypoint
	}
	return nil
}

// canAcceptLeg mirrors the checks of AssignLeg without mutating.
func (s *Stage) canAcceptLeg() error {
	if s.leg != nil {
		return ErrLegAssigned
	}
	if s.kind == StageFinal {
		return ErrFinalStageLeg
	}
	if s.kind == StageIntermediate && s.waypoint == nil {
		return ErrLegBeforeWaypoint
	}
	return nil
}

// AssignWaypoint fills the waypoint slot.
func (s *Stage) AssignWaypoint(w Waypoint) error {
	if err := s.canAcceptWaypoint(); err != nil {
		return err
	}
	s.waypoint = &w
	return nil
}

// AssignLeg fills the leg slot.
func (s *Stage) AssignLeg(l Leg) error {
	if err := s.canAcceptLeg(); err != nil {
		return err
	}
	s.leg = &l
	return nil
}

// PromoteToFinal turns an intermediate stage with a waypoint and no trailing
// leg into the final stage. Promotion is irreversible.
func (s *Stage) PromoteToFinal() error {
	if s.kind != StageIntermediate || s.waypoint == nil || s.leg != nil {
		return ErrNotPromotable
	}
	s.kind = StageFinal
	return nil
}

// CountWaypoints returns the number of stages holding a waypoint.
func CountWaypoints(stages []*Stage) int {
	count := 0
	for _, s := range stages {
		if s.waypoint != nil {
			count++
		}
	}
	return count
}

// CountLegs returns the number of stages holding a leg.
func CountLegs(stages []*Stage) int {
	count := 0
	for _, s := range stages {
		if s.leg != nil {
			count++
		}
	}
	return count
}
