package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Point is a location on the flat plane the tours are laid out on.
// Units are meters; +Y points north and +X points east.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Origin is the location assumed before any position fix arrives.
var Origin = Point{}

func (p Point) orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Point) float64 {
	return planar.Distance(a.orb(), b.orb())
}

// Bearing returns the compass bearing from a to b in degrees, clockwise from
// north, normalized to [0, 360). Callers must not pass equal points.
func Bearing(a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y

	// atan2(x, y) rather than atan2(y, x): angle measured from +Y towards +X
	brng := math.Atan2(dx, dy) * (180.0 / math.Pi)
	return math.Mod(brng+360.0, 360.0)
}

// Within reports whether p lies inside the circle around centre.
// The boundary counts as inside.
func Within(p, centre Point, radius float64) bool {
	return Distance(p, centre) <= radius
}

// PathLength returns the total length of the polyline through the points.
func PathLength(points []Point) float64 {
	if len(points) < 2 {
		return 0
	}
	line := make(orb.LineString, 0, len(points))
	for _, p := range points {
		line = append(line, p.orb())
	}
	return planar.Length(line)
}
