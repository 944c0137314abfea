// Package path holds waypoint sequences and the post-processing applied to planned paths.
package path

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"rrt-planner/geometry"
)

// Path is an ordered sequence of waypoints.
type Path []geometry.Point

// Length is the sum of the segment lengths, zero for fewer than two points.
func (p Path) Length() float64 {
	if len(p) < 2 {
		return 0
	}
	return planar.Length(p.LineString())
}

// LineString converts the path to an orb line string.
func (p Path) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(p))
	for _, pt := range p {
		ls = append(ls, pt.Orb())
	}
	return ls
}

// FromLineString converts an orb line string.
func FromLineString(ls orb.LineString) Path {
	p := make(Path, 0, len(ls))
	for _, pt := range ls {
		p = append(p, geometry.FromOrb(pt))
	}
	return p
}

// TargetPoint returns the point at arclength s along the path and the index of the
// segment start it lies on. An s past the end yields the last point and its index.
// A zero length segment hit at its start divides by zero.
func (p Path) TargetPoint(s float64) (geometry.Point, int) {
	if len(p) == 0 {
		return geometry.Point{}, -1
	}

	le := 0.0
	for i := 0; i < len(p)-1; i++ {
		d := p[i].Distance(p[i+1])
		if le+d >= s {
			ratio := (s - le) / d
			return p[i].Add(p[i+1].Sub(p[i]).Scale(ratio)), i
		}
		le += d
	}
	return p[len(p)-1], len(p) - 1
}

// Reversed returns a copy of the path in the opposite order. Planners return paths goal
// first; this gives the start to goal order.
func (p Path) Reversed() Path {
	out := make(Path, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}
