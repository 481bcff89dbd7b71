package model

// Annotation is the descriptive text attached to tours, waypoints and legs.
type Annotation string

// DefaultAnnotation stands in wherever no annotation was supplied, e.g. on the
// leg inserted implicitly when a waypoint is added without a preceding leg.
const DefaultAnnotation Annotation = ""

// String returns the annotation text.
func (a Annotation) String() string {
	return string(a)
}

// IsDefault reports whether a is the "nothing supplied" sentinel.
func (a Annotation) IsDefault() bool {
	return a == DefaultAnnotation
}
