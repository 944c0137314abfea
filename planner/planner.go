// Package planner implements sampling based planners that grow a tree from a start point
// towards a goal while avoiding obstacles.
package planner

import (
	"context"

	"github.com/samber/lo"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/tree"
)

// Planner is the contract shared by every tree planner.
type Planner interface {
	// Obstacles returns the keep-out regions the planner avoids.
	Obstacles() []geometry.Obstacle

	// Plan grows a tree and returns the path from the goal back to the start, terminal
	// point first. Failure to reach the goal is reported as ErrPlanningFailed.
	Plan(ctx context.Context) (path.Path, error)
}

// IsCollision reports whether pt lies in any of the planner's obstacles.
func IsCollision(p Planner, pt geometry.Point) bool {
	return geometry.AnyCollision(p.Obstacles(), pt)
}

// IsCollisionSegment reports whether any of the planner's obstacles blocks the segment.
func IsCollisionSegment(p Planner, p0, p1 geometry.Point) bool {
	return geometry.AnyCollisionSegment(p.Obstacles(), p0, p1)
}

// Algorithm names a planner implementation.
type Algorithm string

const (
	// AlgorithmRRT is the basic single nearest neighbour planner.
	AlgorithmRRT Algorithm = "rrt"
	// AlgorithmRRTStar rewires the tree to shorten paths.
	AlgorithmRRTStar Algorithm = "rrtstar"
)

// TreeNodes returns the tree grown by the last Plan call of p, or nil for planners that do
// not expose one.
func TreeNodes(p Planner) []tree.Node {
	switch pl := p.(type) {
	case *RRT:
		return pl.Nodes()
	case *RRTStar:
		return lo.Map(pl.Nodes(), func(n tree.CostNode, _ int) tree.Node { return n.Node })
	default:
		return nil
	}
}
