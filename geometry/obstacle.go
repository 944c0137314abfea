package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/pkg/errors"
)

// polygonSegmentSamples is the number of points probed along a segment for polygon checks.
const polygonSegmentSamples = 100

// ErrDegeneratePolygon is returned when a point set cannot form a convex polygon.
var ErrDegeneratePolygon = errors.New("cannot build convex polygon from points")

// Obstacle is a keep-out region.
type Obstacle interface {
	IsCollision(p Point) bool
}

// SegmentObstacle is implemented by obstacles that can also block straight edges.
type SegmentObstacle interface {
	Obstacle
	IsCollisionSegment(p0, p1 Point) bool
}

// CollidesSegment reports whether o blocks the segment p0-p1. Obstacles that do not
// implement SegmentObstacle never block segments.
func CollidesSegment(o Obstacle, p0, p1 Point) bool {
	so, ok := o.(SegmentObstacle)
	if !ok {
		return false
	}
	return so.IsCollisionSegment(p0, p1)
}

// AnyCollision reports whether p lies in any of the obstacles.
func AnyCollision(obstacles []Obstacle, p Point) bool {
	for _, o := range obstacles {
		if o.IsCollision(p) {
			return true
		}
	}
	return false
}

// AnyCollisionSegment reports whether any obstacle blocks the segment p0-p1.
func AnyCollisionSegment(obstacles []Obstacle, p0, p1 Point) bool {
	for _, o := range obstacles {
		if CollidesSegment(o, p0, p1) {
			return true
		}
	}
	return false
}

// Circle is a disc obstacle.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// IsCollision is boundary inclusive.
func (c Circle) IsCollision(p Point) bool {
	dx := p.X - c.Center.X
	dy := p.Y - c.Center.Y
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

// IsCollisionSegment compares the distance from the center to the infinite line through
// p0 and p1 with the radius. It does not clip to the segment, so a circle beyond either
// end of the segment can still block it. A zero length segment never collides.
func (c Circle) IsCollisionSegment(p0, p1 Point) bool {
	a := p1.Y - p0.Y
	b := -(p1.X - p0.X)
	k := p1.Y*(p1.X-p0.X) - p1.X*(p1.Y-p0.Y)

	d := math.Abs(a*c.Center.X+b*c.Center.Y+k) / math.Sqrt(a*a+b*b)
	return d <= c.Radius
}

// Rectangle is an axis aligned box described by its min and max corners.
type Rectangle struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// IsCollision ORs the four bound comparisons, so it holds for nearly every point of the
// plane (any point right of Min.X already qualifies). The planners use it as their
// exploration bound filter with exactly these semantics; use Contains for an inside test.
func (r Rectangle) IsCollision(p Point) bool {
	return p.X > r.Min.X || p.X < r.Max.X || p.Y > r.Min.Y || p.Y < r.Max.Y
}

// IsCollisionSegment reports whether the segment crosses any of the four edges. The top
// edge from Max to (Min.X, Max.Y) is checked as well, unlike the literal check that tests
// the right edge twice and never looks at the top one.
func (r Rectangle) IsCollisionSegment(p0, p1 Point) bool {
	lowerRight := Point{X: r.Max.X, Y: r.Min.Y}
	upperLeft := Point{X: r.Min.X, Y: r.Max.Y}
	return SegmentsIntersect(p0, p1, r.Min, lowerRight) ||
		SegmentsIntersect(p0, p1, r.Min, upperLeft) ||
		SegmentsIntersect(p0, p1, r.Max, lowerRight) ||
		SegmentsIntersect(p0, p1, r.Max, upperLeft)
}

// Contains reports whether p lies inside the box, boundary included.
func (r Rectangle) Contains(p Point) bool {
	return r.Bound().Contains(p.Orb())
}

// Bound returns the rectangle as an orb bound.
func (r Rectangle) Bound() orb.Bound {
	return orb.Bound{Min: r.Min.Orb(), Max: r.Max.Orb()}
}

// Width is Max.X - Min.X.
func (r Rectangle) Width() float64 {
	return r.Max.X - r.Min.X
}

// Height is Max.Y - Min.Y.
func (r Rectangle) Height() float64 {
	return r.Max.Y - r.Min.Y
}

// RectangleFromBound converts an orb bound.
func RectangleFromBound(b orb.Bound) Rectangle {
	return Rectangle{Min: FromOrb(b.Min), Max: FromOrb(b.Max)}
}

// ConvexPolygon is the convex hull of a point set.
type ConvexPolygon struct {
	// Points are the points the polygon was built from, in caller order.
	Points []Point `json:"points"`
	hull   orb.Ring
}

// NewConvexPolygon builds a polygon from the convex hull of points. Fewer than three
// points, or points that are all colinear, return ErrDegeneratePolygon.
func NewConvexPolygon(points []Point) (*ConvexPolygon, error) {
	if len(points) < 3 {
		return nil, errors.Wrapf(ErrDegeneratePolygon, "need at least 3 points, got %d", len(points))
	}

	hull := ConvexHull(points)
	if len(hull) < 3 {
		return nil, errors.Wrap(ErrDegeneratePolygon, "points are colinear")
	}

	ring := make(orb.Ring, 0, len(hull)+1)
	for _, v := range hull {
		ring = append(ring, v.Orb())
	}
	ring = append(ring, hull[0].Orb())

	return &ConvexPolygon{
		Points: append([]Point(nil), points...),
		hull:   ring,
	}, nil
}

// Vertices returns the hull vertices in counter-clockwise order without the closing point.
func (cp *ConvexPolygon) Vertices() []Point {
	vertices := make([]Point, 0, len(cp.hull)-1)
	for _, v := range cp.hull[:len(cp.hull)-1] {
		vertices = append(vertices, FromOrb(v))
	}
	return vertices
}

// Ring returns the closed hull ring.
func (cp *ConvexPolygon) Ring() orb.Ring {
	return cp.hull
}

// IsCollision is an exact containment test with the boundary counted as inside.
func (cp *ConvexPolygon) IsCollision(p Point) bool {
	return planar.RingContains(cp.hull, p.Orb())
}

// IsCollisionSegment probes 100 evenly spaced points from p0 towards p1 (p1 itself is not
// probed). Slivers of the polygon narrower than the probe spacing can be missed.
func (cp *ConvexPolygon) IsCollisionSegment(p0, p1 Point) bool {
	diff := p1.Sub(p0)
	for i := 0; i < polygonSegmentSamples; i++ {
		pt := p0.Add(diff.Scale(float64(i) / polygonSegmentSamples))
		if cp.IsCollision(pt) {
			return true
		}
	}
	return false
}
