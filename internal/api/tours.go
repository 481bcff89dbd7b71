package api

import (
	"fmt"
	"net/http"

	"tourguide/pkg/controller"
	"tourguide/pkg/model"
	"tourguide/pkg/session"
	"tourguide/pkg/validation"
)

// TourHandler exposes the controller operations over HTTP.
type TourHandler struct {
	mgr *session.Manager
}

// NewTourHandler creates a new TourHandler.
func NewTourHandler(mgr *session.Manager) *TourHandler {
	return &TourHandler{mgr: mgr}
}

type startTourRequest struct {
	ID         string `json:"id" validate:"required,max=64"`
	Title      string `json:"title" validate:"required,max=200"`
	Annotation string `json:"annotation" validate:"max=4096"`
}

func (r *startTourRequest) sanitize() {
	r.ID = validation.SanitizeText(r.ID)
	r.Title = validation.SanitizeText(r.Title)
}

type annotationRequest struct {
	Annotation string `json:"annotation" validate:"max=4096"`
}

type locationRequest struct {
	X *float64 `json:"x" validate:"required"`
	Y *float64 `json:"y" validate:"required"`
}

func (h *TourHandler) apply(w http.ResponseWriter, op session.Op, fn func(*controller.Controller) error) {
	snap, err := h.mgr.Apply(op, fn)
	respondOp(w, newOpResponse(snap, err), err)
}

// HandleOutput returns the current output without running an operation.
// GET /api/output
func (h *TourHandler) HandleOutput(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.mgr.Snapshot())
}

// HandleStart begins authoring a tour.
// POST /api/tours
func (h *TourHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	var req startTourRequest
	if err := decodeBody(r, w, &req); err != nil {
		respondBadRequest(w, h.mgr.Snapshot(), err)
		return
	}
	h.apply(w, session.OpStartNewTour, func(c *controller.Controller) error {
		return c.StartNewTour(req.ID, req.Title, model.Annotation(req.Annotation))
	})
}

// HandleAddLeg adds a leg to the draft. An empty body means the default annotation.
// POST /api/tours/draft/legs
func (h *TourHandler) HandleAddLeg(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := decodeBody(r, w, &req); err != nil {
		respondBadRequest(w, h.mgr.Snapshot(), err)
		return
	}
	h.apply(w, session.OpAddLeg, func(c *controller.Controller) error {
		return c.AddLeg(model.Annotation(req.Annotation))
	})
}

// HandleAddWaypoint adds a waypoint at the last known location.
// POST /api/tours/draft/waypoints
func (h *TourHandler) HandleAddWaypoint(w http.ResponseWriter, r *http.Request) {
	var req annotationRequest
	if err := decodeBody(r, w, &req); err != nil {
		respondBadRequest(w, h.mgr.Snapshot(), err)
		return
	}
	h.apply(w, session.OpAddWaypoint, func(c *controller.Controller) error {
		return c.AddWaypoint(model.Annotation(req.Annotation))
	})
}

// HandleEnd commits the draft.
// POST /api/tours/draft/end
func (h *TourHandler) HandleEnd(w http.ResponseWriter, r *http.Request) {
	h.apply(w, session.OpEndNewTour, func(c *controller.Controller) error {
		return c.EndNewTour()
	})
}

// HandleList lists committed tours without changing the controller state.
// GET /api/tours
func (h *TourHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	resp := newOpResponse(h.mgr.Snapshot(), nil)
	resp.Tours = h.mgr.Tours()
	respondJSON(w, http.StatusOK, resp)
}

// HandleSummary returns one committed tour without changing the controller state.
// GET /api/tours/{id}
func (h *TourHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	sum, ok := h.mgr.Tour(id)
	if !ok {
		err := fmt.Errorf("%w: %q", controller.ErrUnknownTour, id)
		respondOp(w, newOpResponse(h.mgr.Snapshot(), err), err)
		return
	}
	resp := newOpResponse(h.mgr.Snapshot(), nil)
	resp.Tour = &sum
	respondJSON(w, http.StatusOK, resp)
}

// HandleOverview switches to the tour overview and lists tour summaries.
// POST /api/browse
func (h *TourHandler) HandleOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := h.mgr.Apply(session.OpShowToursOverview, func(c *controller.Controller) error {
		return c.ShowToursOverview()
	})
	resp := newOpResponse(snap, err)
	if err == nil {
		resp.Tours = h.mgr.Tours()
	}
	respondOp(w, resp, err)
}

// HandleDetails switches to the details of one tour.
// POST /api/tours/{id}/details
func (h *TourHandler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snap, err := h.mgr.Apply(session.OpShowTourDetails, func(c *controller.Controller) error {
		return c.ShowTourDetails(id)
	})
	resp := newOpResponse(snap, err)
	if err == nil {
		if sum, ok := h.mgr.Tour(id); ok {
			resp.Tour = &sum
		}
	}
	respondOp(w, resp, err)
}

// HandleFollow starts following a tour.
// POST /api/tours/{id}/follow
func (h *TourHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.apply(w, session.OpFollowTour, func(c *controller.Controller) error {
		return c.FollowTour(id)
	})
}

// HandleEndFollow stops following.
// POST /api/follow/end
func (h *TourHandler) HandleEndFollow(w http.ResponseWriter, r *http.Request) {
	h.apply(w, session.OpEndSelectedTour, func(c *controller.Controller) error {
		return c.EndSelectedTour()
	})
}

// HandleLocation records a location fix.
// PUT /api/location
func (h *TourHandler) HandleLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeBody(r, w, &req); err != nil {
		respondBadRequest(w, h.mgr.Snapshot(), err)
		return
	}
	x, y := *req.X, *req.Y
	h.apply(w, session.OpSetLocation, func(c *controller.Controller) error {
		return c.SetLocation(x, y)
	})
}
