package controller

import (
	"tourguide/pkg/chunk"
	"tourguide/pkg/geo"
	"tourguide/pkg/model"
)

// cursor tracks progress along a followed tour. It lives for one follow
// session only and never moves backwards.
type cursor struct {
	tour      *model.Tour
	waypoints []model.Waypoint
	visited   int
	total     int
}

func newCursor(t *model.Tour) *cursor {
	wps := t.Waypoints()
	return &cursor{
		tour:      t,
		waypoints: wps,
		total:     len(wps),
	}
}

// Progress reports the follow cursor. ok is false outside the following state.
func (c *Controller) Progress() (visited, total int, ok bool) {
	if c.state != StateFollowing || c.follow == nil {
		return 0, 0, false
	}
	return c.follow.visited, c.follow.total, true
}

// LastArrival returns the most recently reached waypoint of the followed tour.
func (c *Controller) LastArrival() (model.Waypoint, bool) {
	if c.follow == nil || c.follow.visited == 0 {
		return model.Waypoint{}, false
	}
	return c.follow.waypoints[c.follow.visited-1], true
}

func (c *Controller) navigate() {
	cur := c.follow
	loc := c.location
	header := func() chunk.FollowHeader {
		return chunk.FollowHeader{Title: cur.tour.Title, Visited: cur.visited, Total: cur.total}
	}

	if cur.visited >= cur.total {
		c.emit(header())
		return
	}

	target := cur.waypoints[cur.visited]
	if !geo.Within(loc, target.Location, c.params.WaypointRadius) {
		c.emit(
			header(),
			chunk.FollowLeg{Annotation: cur.tour.LegInto(cur.visited).Annotation},
			bearingChunk(loc, target.Location),
		)
		return
	}

	cur.visited++
	c.logger.Info("Waypoint reached", "tour", cur.tour.ID, "visited", cur.visited, "total", cur.total)
	out := []chunk.Chunk{
		header(),
		chunk.FollowWaypoint{Annotation: target.Annotation},
	}
	if cur.visited < cur.total {
		next := cur.waypoints[cur.visited]
		out = append(out,
			chunk.FollowLeg{Annotation: cur.tour.LegInto(cur.visited).Annotation},
			bearingChunk(loc, next.Location),
		)
	}
	c.emit(out...)
}

// preview shows the way to the next waypoint without checking for arrival.
// Arrivals are only counted by SetLocation.
func (c *Controller) preview() {
	cur := c.follow
	if cur.visited >= cur.total {
		c.emit(chunk.FollowHeader{Title: cur.tour.Title, Visited: cur.visited, Total: cur.total})
		return
	}
	c.emit(
		chunk.FollowHeader{Title: cur.tour.Title, Visited: cur.visited, Total: cur.total},
		chunk.FollowLeg{Annotation: cur.tour.LegInto(cur.visited).Annotation},
		bearingChunk(c.location, cur.waypoints[cur.visited].Location),
	)
}

func bearingChunk(from, to geo.Point) chunk.FollowBearing {
	if from == to {
		return chunk.NewFollowBearing(0, 0)
	}
	return chunk.NewFollowBearing(geo.Bearing(from, to), geo.Distance(from, to))
}
