package geometry

import (
	"math"
	"sort"
)

// ConvexHull computes the convex hull using the Graham scan algorithm. The result is in
// counter-clockwise order starting at the lowest point, with colinear points dropped.
// The input slice is not modified.
func ConvexHull(points []Point) []Point {
	if len(points) < 3 {
		return append([]Point(nil), points...)
	}

	// Find the point with lowest Y (and lowest X if tied)
	start := 0
	for i := 1; i < len(points); i++ {
		if points[i].Y < points[start].Y ||
			(points[i].Y == points[start].Y && points[i].X < points[start].X) {
			start = i
		}
	}
	pivot := points[start]

	sorted := make([]Point, 0, len(points)-1)
	for i, p := range points {
		if i != start {
			sorted = append(sorted, p)
		}
	}

	// Sort by polar angle around the pivot, nearer points first on ties
	sort.SliceStable(sorted, func(i, j int) bool {
		ai, aj := polarAngle(pivot, sorted[i]), polarAngle(pivot, sorted[j])
		if ai != aj {
			return ai < aj
		}
		return pivot.Distance(sorted[i]) < pivot.Distance(sorted[j])
	})

	hull := []Point{pivot}
	for _, p := range sorted {
		// Remove points that create a right turn or lie on the current edge
		for len(hull) > 1 && crossProduct(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		if p == hull[len(hull)-1] {
			continue
		}
		hull = append(hull, p)
	}

	return hull
}

// polarAngle calculates the polar angle from pivot to point
func polarAngle(pivot, point Point) float64 {
	return math.Atan2(point.Y-pivot.Y, point.X-pivot.X)
}
