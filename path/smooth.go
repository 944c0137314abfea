package path

import (
	"math"
	"math/rand"

	"rrt-planner/geometry"
)

// SmoothObstacle shortcuts the path for a fixed number of random trials. Each trial picks
// two arclengths, and when the straight connector between their points is not blocked by
// any obstacle's segment predicate the waypoints between them are replaced by the
// connector. The result is never longer than p. p itself is not modified.
func SmoothObstacle(p Path, obstacles []geometry.Obstacle, iterations int, rng *rand.Rand) Path {
	out := append(Path(nil), p...)
	if len(out) < 3 {
		return out
	}

	length := out.Length()
	for it := 0; it < iterations; it++ {
		a := rng.Float64() * length
		b := rng.Float64() * length
		if a > b {
			a, b = b, a
		}

		first, i := out.TargetPoint(a)
		second, j := out.TargetPoint(b)
		if i <= 0 || j <= 0 || i == j || j >= len(out)-1 {
			continue
		}
		if geometry.AnyCollisionSegment(obstacles, first, second) {
			continue
		}

		next := make(Path, 0, i+3+len(out)-j-1)
		next = append(next, out[:i+1]...)
		next = append(next, first, second)
		next = append(next, out[j+1:]...)
		out = next
		length = out.Length()
	}
	return out
}

// SimplifyObstacle removes waypoints with Douglas-Peucker, dropping a run of points only
// when its chord is within epsilon of them and not blocked by any obstacle's segment
// predicate. The endpoints are always kept.
func SimplifyObstacle(p Path, obstacles []geometry.Obstacle, epsilon float64) Path {
	if len(p) <= 2 {
		return append(Path(nil), p...)
	}
	return douglasPeucker(p, obstacles, epsilon)
}

// douglasPeucker implements the Douglas-Peucker line simplification algorithm
func douglasPeucker(points Path, obstacles []geometry.Obstacle, epsilon float64) Path {
	if len(points) <= 2 {
		return append(Path(nil), points...)
	}

	// Find the point with maximum distance from line between first and last
	dmax := 0.0
	index := 0
	end := len(points) - 1

	for i := 1; i < end; i++ {
		d := perpendicularDistance(points[i], points[0], points[end])
		if d > dmax {
			index = i
			dmax = d
		}
	}

	if dmax <= epsilon && !geometry.AnyCollisionSegment(obstacles, points[0], points[end]) {
		return Path{points[0], points[end]}
	}
	if index == 0 {
		// every point sits on a blocked chord
		index = end / 2
	}

	left := douglasPeucker(points[0:index+1], obstacles, epsilon)
	right := douglasPeucker(points[index:], obstacles, epsilon)

	// Combine results (removing duplicate point at index)
	result := make(Path, 0, len(left)+len(right)-1)
	result = append(result, left[:len(left)-1]...)
	result = append(result, right...)
	return result
}

// perpendicularDistance calculates perpendicular distance from point to line
func perpendicularDistance(point, lineStart, lineEnd geometry.Point) float64 {
	dx := lineEnd.X - lineStart.X
	dy := lineEnd.Y - lineStart.Y

	// Normalize
	mag := math.Sqrt(dx*dx + dy*dy)
	if mag > 0 {
		dx /= mag
		dy /= mag
	}

	pvx := point.X - lineStart.X
	pvy := point.Y - lineStart.Y

	// Get dot product (project pv onto normalized direction)
	pvdot := dx*pvx + dy*pvy

	ax := pvx - pvdot*dx
	ay := pvy - pvdot*dy

	return math.Sqrt(ax*ax + ay*ay)
}
