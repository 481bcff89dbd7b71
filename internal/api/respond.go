package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"tourguide/pkg/chunk"
	"tourguide/pkg/controller"
	"tourguide/pkg/geo"
	"tourguide/pkg/session"
	"tourguide/pkg/validation"
)

const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("bad request")

// opResponse is returned by every endpoint that runs a controller operation.
type opResponse struct {
	Status   controller.Status     `json:"status"`
	Error    string                `json:"error,omitempty"`
	State    controller.State      `json:"state"`
	Revision uint64                `json:"revision"`
	Location *geo.Point            `json:"location,omitempty"`
	Progress *session.Progress     `json:"progress,omitempty"`
	Output   []chunk.Envelope      `json:"output"`
	Tours    []session.TourSummary `json:"tours,omitempty"`
	Tour     *session.TourSummary  `json:"tour,omitempty"`
}

func newOpResponse(snap session.Snapshot, err error) opResponse {
	resp := opResponse{
		Status:   controller.StatusOf(err),
		State:    snap.State,
		Revision: snap.Revision,
		Location: snap.Location,
		Progress: snap.Progress,
		Output:   chunk.Wrap(snap.Output),
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

// statusFor maps operation errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, controller.ErrUnknownTour):
		return http.StatusNotFound
	default:
		// Wrong state, duplicate ids and structural tour errors.
		return http.StatusConflict
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respondOp(w http.ResponseWriter, resp opResponse, err error) {
	respondJSON(w, statusFor(err), resp)
}

func respondBadRequest(w http.ResponseWriter, snap session.Snapshot, err error) {
	respondOp(w, newOpResponse(snap, err), err)
}

// sanitizer is implemented by request bodies that clean their fields before
// validation.
type sanitizer interface {
	sanitize()
}

// decodeBody decodes an optional JSON body into dst and validates it.
func decodeBody(r *http.Request, w http.ResponseWriter, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if s, ok := dst.(sanitizer); ok {
		s.sanitize()
	}
	if err := validation.Struct(dst); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return nil
}
