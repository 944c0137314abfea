package path

import (
	"rrt-planner/geometry"
)

// maxVisibilityNodes bounds the quadratic edge construction.
const maxVisibilityNodes = 1000

// Graph is an undirected weighted graph over waypoints. Node i is Points[i] and Edges[i]
// lists its neighbours.
type Graph struct {
	Points Path
	Edges  [][]Edge
}

// Edge represents a connection between two nodes with a cost
type Edge struct {
	To   int     // Index of the destination node
	Cost float64 // Euclidean distance
}

// NewGraph returns a graph over points with no edges.
func NewGraph(points Path) *Graph {
	return &Graph{Points: points, Edges: make([][]Edge, len(points))}
}

func (g *Graph) has(i int) bool {
	return i >= 0 && i < len(g.Points)
}

func (g *Graph) connect(i, j int) {
	cost := g.Points[i].Distance(g.Points[j])
	g.Edges[i] = append(g.Edges[i], Edge{To: j, Cost: cost})
	g.Edges[j] = append(g.Edges[j], Edge{To: i, Cost: cost})
}

// BuildVisibilityGraph connects every pair of waypoints of p whose straight segment is not
// blocked by any obstacle's segment predicate. Consecutive waypoints are always connected so
// p itself stays a walk through the graph.
func BuildVisibilityGraph(p Path, obstacles []geometry.Obstacle) *Graph {
	g := NewGraph(append(Path(nil), p...))
	for i := 0; i < len(p); i++ {
		for j := i + 1; j < len(p); j++ {
			if j == i+1 || !geometry.AnyCollisionSegment(obstacles, p[i], p[j]) {
				g.connect(i, j)
			}
		}
	}
	return g
}

// ShortcutVisible returns the shortest walk from the first to the last waypoint of p through
// its visibility graph. Only existing waypoints are kept. Paths with more than 1000 waypoints
// are returned unchanged.
func ShortcutVisible(p Path, obstacles []geometry.Obstacle) Path {
	if len(p) < 3 || len(p) > maxVisibilityNodes {
		return append(Path(nil), p...)
	}
	g := BuildVisibilityGraph(p, obstacles)
	best, ok := AStar(g, 0, len(p)-1)
	if !ok {
		return append(Path(nil), p...)
	}
	return best
}
