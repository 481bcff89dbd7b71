// Package chunk holds the output fragments produced by controller operations.
// Chunks are immutable values and compare structurally.
package chunk

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strings"

	"tourguide/pkg/model"
)

// Kind tags a chunk variant.
type Kind string

const (
	KindBrowseOverview Kind = "browse_overview"
	KindBrowseDetails  Kind = "browse_details"
	KindCreateHeader   Kind = "create_header"
	KindFollowHeader   Kind = "follow_header"
	KindFollowLeg      Kind = "follow_leg"
	KindFollowWaypoint Kind = "follow_waypoint"
	KindFollowBearing  Kind = "follow_bearing"
)

// Chunk is one unit of display output.
type Chunk interface {
	Kind() Kind
	String() string
}

// TourRef identifies a committed tour in the overview.
type TourRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// BrowseOverview lists committed tours ordered by id.
type BrowseOverview struct {
	Tours []TourRef `json:"tours"`
}

// NewBrowseOverview copies refs and sorts them by id.
func NewBrowseOverview(refs ...TourRef) BrowseOverview {
	tours := make([]TourRef, len(refs))
	copy(tours, refs)
	slices.SortStableFunc(tours, func(a, b TourRef) int {
		return strings.Compare(a.ID, b.ID)
	})
	return BrowseOverview{Tours: tours}
}

func (BrowseOverview) Kind() Kind { return KindBrowseOverview }

func (c BrowseOverview) String() string {
	if len(c.Tours) == 0 {
		return "No tours."
	}
	var b strings.Builder
	b.WriteString("Tours:")
	for _, t := range c.Tours {
		fmt.Fprintf(&b, "\n  %s  %s", t.ID, t.Title)
	}
	return b.String()
}

// BrowseDetails shows one committed tour.
type BrowseDetails struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Annotation model.Annotation `json:"annotation"`
}

func (BrowseDetails) Kind() Kind { return KindBrowseDetails }

func (c BrowseDetails) String() string {
	return fmt.Sprintf("%s: %s\n%s", c.ID, c.Title, strings.TrimRight(c.Annotation.String(), "\n"))
}

// CreateHeader reports authoring progress.
type CreateHeader struct {
	Title     string `json:"title"`
	Legs      int    `json:"legs"`
	Waypoints int    `json:"waypoints"`
}

func (CreateHeader) Kind() Kind { return KindCreateHeader }

func (c CreateHeader) String() string {
	return fmt.Sprintf("Creating %q: %d legs, %d waypoints", c.Title, c.Legs, c.Waypoints)
}

// FollowHeader reports progress along a followed tour.
type FollowHeader struct {
	Title   string `json:"title"`
	Visited int    `json:"visited"`
	Total   int    `json:"total"`
}

func (FollowHeader) Kind() Kind { return KindFollowHeader }

func (c FollowHeader) String() string {
	return fmt.Sprintf("Following %q: %d of %d waypoints visited", c.Title, c.Visited, c.Total)
}

// FollowLeg describes the leg currently being walked.
type FollowLeg struct {
	Annotation model.Annotation `json:"annotation"`
}

func (FollowLeg) Kind() Kind { return KindFollowLeg }

func (c FollowLeg) String() string {
	if c.Annotation.IsDefault() {
		return "Leg"
	}
	return "Leg: " + strings.TrimRight(c.Annotation.String(), "\n")
}

// FollowWaypoint announces an arrival.
type FollowWaypoint struct {
	Annotation model.Annotation `json:"annotation"`
}

func (FollowWaypoint) Kind() Kind { return KindFollowWaypoint }

func (c FollowWaypoint) String() string {
	return "Arrived: " + strings.TrimRight(c.Annotation.String(), "\n")
}

// FollowBearing points the way to the next waypoint.
type FollowBearing struct {
	Bearing  float64 `json:"bearing"`
	Distance float64 `json:"distance"`
}

// NewFollowBearing rounds bearing and distance to whole units, the precision
// the chunk is displayed and compared at. A bearing that rounds to 360 reads
// as 0.
func NewFollowBearing(bearing, distance float64) FollowBearing {
	return FollowBearing{
		Bearing:  math.Mod(math.Round(bearing), 360),
		Distance: math.Round(distance),
	}
}

func (FollowBearing) Kind() Kind { return KindFollowBearing }

func (c FollowBearing) String() string {
	return fmt.Sprintf("Head %03.0f° for %.0fm", c.Bearing, c.Distance)
}

// Envelope is the wire form of a chunk.
type Envelope struct {
	Type Kind  `json:"type"`
	Data Chunk `json:"data"`
}

// Wrap tags each chunk with its kind for encoding.
func Wrap(chunks []Chunk) []Envelope {
	out := make([]Envelope, len(chunks))
	for i, c := range chunks {
		out[i] = Envelope{Type: c.Kind(), Data: c}
	}
	return out
}

// Render writes chunks as plain text, one block per chunk.
func Render(w io.Writer, chunks []Chunk) error {
	for _, c := range chunks {
		if _, err := fmt.Fprintln(w, c.String()); err != nil {
			return err
		}
	}
	return nil
}
