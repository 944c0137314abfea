// Package tree holds the planning tree records and the spatial index over their points.
package tree

import (
	"fmt"
	"math"

	"rrt-planner/geometry"
)

// NoParent is the parent id of the root node.
const NoParent = -1

// Node is a vertex of the planning tree. Path is the dense edge from the parent's point
// to Point; it is empty for the root.
type Node struct {
	ID       int              `json:"id"`
	ParentID int              `json:"parent_id"`
	Point    geometry.Point   `json:"point"`
	Path     []geometry.Point `json:"path,omitempty"`
}

// NewRoot returns the node every tree starts from.
func NewRoot(start geometry.Point) Node {
	return Node{ID: 0, ParentID: NoParent, Point: start}
}

// HasParent is false only for the root.
func (n Node) HasParent() bool {
	return n.ParentID != NoParent
}

// CostNode is a Node annotated with the length of the path from the root to it.
type CostNode struct {
	Node
	Cost float64 `json:"cost"`
}

// DistanceBetween calculates Euclidean distance between the points of two nodes
func DistanceBetween(a, b Node) float64 {
	return a.Point.Distance(b.Point)
}

// AngleBetween returns the heading of the vector from a to b.
func AngleBetween(a, b Node) float64 {
	return math.Atan2(b.Point.Y-a.Point.Y, b.Point.X-a.Point.X)
}

// NearestNodeIndex finds the index of the node closest to target with a linear scan.
// ok is false for an empty slice.
func NearestNodeIndex(nodes []Node, target geometry.Point) (int, bool) {
	if len(nodes) == 0 {
		return 0, false
	}

	best := 0
	bestDist := math.Inf(1)
	for i, n := range nodes {
		d := n.Point.Sub(target)
		dist := d.X*d.X + d.Y*d.Y
		if dist < bestDist {
			best = i
			bestDist = dist
		}
	}
	return best, true
}

// Trace walks parent links from nodes[from] back to the root and returns the visited
// points, terminal first. nodes must be indexed by id. A broken parent chain is a bug
// in the caller and panics.
func Trace(nodes []Node, from int) []geometry.Point {
	return walk(len(nodes), from, func(id int) (Node, bool) {
		if id < 0 || id >= len(nodes) {
			return Node{}, false
		}
		return nodes[id], true
	})
}

func walk(size, from int, lookup func(int) (Node, bool)) []geometry.Point {
	var points []geometry.Point
	id := from
	for steps := 0; ; steps++ {
		if steps >= size {
			panic(fmt.Sprintf("parent chain from node %d does not reach the root in %d steps", from, size))
		}
		n, ok := lookup(id)
		if !ok {
			panic(fmt.Sprintf("node %d references unknown node %d", from, id))
		}
		points = append(points, n.Point)
		if !n.HasParent() {
			return points
		}
		id = n.ParentID
	}
}
