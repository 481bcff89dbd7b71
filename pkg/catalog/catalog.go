// Package catalog loads tour scripts from YAML and replays them through the
// controller as authoring operations.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tourguide/pkg/controller"
	"tourguide/pkg/geo"
	"tourguide/pkg/model"
	"tourguide/pkg/session"
	"tourguide/pkg/validation"
)

// Catalog errors.
var (
	ErrEmptyStep   = errors.New("step has no action")
	ErrMixedStep   = errors.New("step sets both leg and waypoint")
	ErrDuplicateID = errors.New("duplicate tour id in catalog")
)

// Catalog is a set of tour scripts.
type Catalog struct {
	Tours []Script `yaml:"tours" validate:"dive"`
}

// Script authors one tour.
type Script struct {
	ID         string `yaml:"id" validate:"required"`
	Title      string `yaml:"title" validate:"required"`
	Annotation string `yaml:"annotation"`
	Steps      []Step `yaml:"steps" validate:"min=1"`
}

// Step moves to a location, then adds a leg or a waypoint. Any part may be
// omitted but not all of them.
type Step struct {
	At       *geo.Point `yaml:"at,omitempty"`
	Leg      *string    `yaml:"leg,omitempty"`
	Waypoint *string    `yaml:"waypoint,omitempty"`
}

func (s Step) validate() error {
	switch {
	case s.Leg != nil && s.Waypoint != nil:
		return ErrMixedStep
	case s.At == nil && s.Leg == nil && s.Waypoint == nil:
		return ErrEmptyStep
	}
	return nil
}

// Load reads and parses a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := validation.Struct(&cat); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(cat.Tours))
	for _, s := range cat.Tours {
		if seen[s.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
		for i, st := range s.Steps {
			if err := st.validate(); err != nil {
				return nil, &StepError{TourID: s.ID, Step: i, Err: err}
			}
		}
	}
	return &cat, nil
}

// StepError locates a failure inside a script. Step is -1 for starting the
// tour and len(Steps) for ending it.
type StepError struct {
	TourID string
	Step   int
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("tour %s step %d: %v", e.TourID, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Applier runs one controller operation. *session.Manager satisfies it.
type Applier interface {
	Apply(op session.Op, fn func(*controller.Controller) error) (session.Snapshot, error)
}

// Replay authors every tour in order. It stops at the first failure and
// leaves the failing tour uncommitted.
func (c *Catalog) Replay(ctx context.Context, a Applier) error {
	for _, s := range c.Tours {
		if err := s.replay(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Script) replay(ctx context.Context, a Applier) error {
	fail := func(step int, err error) error {
		return &StepError{TourID: s.ID, Step: step, Err: err}
	}

	if _, err := a.Apply(session.OpStartNewTour, func(c *controller.Controller) error {
		return c.StartNewTour(s.ID, s.Title, model.Annotation(s.Annotation))
	}); err != nil {
		return fail(-1, err)
	}

	for i, st := range s.Steps {
		if err := ctx.Err(); err != nil {
			return fail(i, err)
		}
		if err := st.apply(a); err != nil {
			return fail(i, err)
		}
	}

	if _, err := a.Apply(session.OpEndNewTour, func(c *controller.Controller) error {
		return c.EndNewTour()
	}); err != nil {
		return fail(len(s.Steps), err)
	}
	return nil
}

func (st Step) apply(a Applier) error {
	if st.At != nil {
		at := *st.At
		if _, err := a.Apply(session.OpSetLocation, func(c *controller.Controller) error {
			return c.SetLocation(at.X, at.Y)
		}); err != nil {
			return err
		}
	}
	switch {
	case st.Leg != nil:
		ann := model.Annotation(*st.Leg)
		_, err := a.Apply(session.OpAddLeg, func(c *controller.Controller) error {
			return c.AddLeg(ann)
		})
		return err
	case st.Waypoint != nil:
		ann := model.Annotation(*st.Waypoint)
		_, err := a.Apply(session.OpAddWaypoint, func(c *controller.Controller) error {
			return c.AddWaypoint(ann)
		})
		return err
	}
	return nil
}
