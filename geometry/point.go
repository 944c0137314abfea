// Package geometry contains the 2D primitives and obstacle shapes used by the planners.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a coordinate in the planning plane.
type Point struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// Distance calculates Euclidean distance between two points
func (p Point) Distance(other Point) float64 {
	return p.Sub(other).Norm()
}

// Sub returns p - other.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Add returns p + other.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Scale multiplies both coordinates by k.
func (p Point) Scale(k float64) Point {
	return Point{X: p.X * k, Y: p.Y * k}
}

// Norm is the distance of p to the origin.
func (p Point) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y)
}

// Orb converts p to an orb point.
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// FromOrb converts an orb point.
func FromOrb(p orb.Point) Point {
	return Point{X: p.X(), Y: p.Y()}
}

// SegmentsIntersect reports whether segment a1-a2 crosses segment b1-b2.
// Parallel and colinear segments never intersect.
func SegmentsIntersect(a1, a2, b1, b2 Point) bool {
	b := a2.Sub(a1)
	d := b2.Sub(b1)
	cross := b.X*d.Y - b.Y*d.X
	if cross == 0 {
		return false
	}

	c := b1.Sub(a1)
	t := (c.X*d.Y - c.Y*d.X) / cross
	if t < 0 || t > 1 {
		return false
	}

	u := (c.X*b.Y - c.Y*b.X) / cross
	return u >= 0 && u <= 1
}

// crossProduct calculates the cross product of vectors (b-a) and (c-a)
func crossProduct(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}
