package planner

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/tree"
)

// RRTStar extends RRT with cost-aware parent selection and rewiring. Nodes live in a
// PathTree so neighbourhood queries go through the spatial index.
type RRTStar struct {
	rrt      *RRT
	logger   *zap.SugaredLogger
	nodeTree *tree.PathTree
}

// NewRRTStar creates an RRT* planner. A nil logger disables logging.
func NewRRTStar(cfg Config, obstacles []geometry.Obstacle, logger *zap.SugaredLogger) (*RRTStar, error) {
	rrt, err := NewRRT(cfg, obstacles, logger)
	if err != nil {
		return nil, err
	}
	return &RRTStar{rrt: rrt, logger: rrt.logger}, nil
}

// Obstacles implements Planner.
func (rs *RRTStar) Obstacles() []geometry.Obstacle {
	return rs.rrt.obstacles
}

// Nodes returns the tree built by the last Plan call in id order.
func (rs *RRTStar) Nodes() []tree.CostNode {
	if rs.nodeTree == nil {
		return nil
	}
	return rs.nodeTree.Nodes()
}

// Plan implements Planner. The returned path starts at the goal, followed by the chain
// of the cheapest node that can connect to it.
func (rs *RRTStar) Plan(ctx context.Context) (path.Path, error) {
	cfg := rs.rrt.cfg
	rs.nodeTree = tree.NewPathTree()
	if err := rs.nodeTree.Add(tree.CostNode{Node: tree.NewRoot(cfg.Start)}); err != nil {
		return nil, err
	}

	rs.logger.Debugf("RRT* planning from %v to %v, max %d iterations", cfg.Start, cfg.Goal, cfg.MaxIter)

	nextID := 1
	iterations := 0
	for i := 1; i <= cfg.MaxIter; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "RRT* planning interrupted")
		default:
		}
		iterations = i

		rnd := tree.Node{Point: rs.rrt.sample()}
		nearestID, ok := rs.nodeTree.Nearest(rnd.Point)
		if !ok {
			panic("RRT* tree has no root")
		}
		nearest := rs.get(nearestID)

		edge := rs.rrt.steer(nearest.Node, rnd, cfg.ExpandDis, nextID)
		candidate := tree.CostNode{Node: edge, Cost: nearest.Cost + tree.DistanceBetween(edge, nearest.Node)}

		if !IsCollision(rs, edge.Point) && !IsCollisionSegment(rs, nearest.Point, edge.Point) {
			nearIDs := rs.findNearNodes(candidate.Point)
			newNode := candidate
			if withParent, ok := rs.chooseParent(candidate, nearIDs); ok {
				newNode = withParent
			}
			// a point already in the tree is skipped, the id is reused
			if err := rs.nodeTree.Add(newNode); err == nil {
				nextID++
				rs.rewire(newNode, nearIDs)
			}
		}

		if !cfg.SearchUntilMax && edge.Point.Distance(cfg.Goal) <= cfg.ExpandDis {
			break
		}

		if cfg.LogInterval > 0 && i%cfg.LogInterval == 0 {
			rs.logger.Debugf("RRT* progress: %d%%\tnodes: %d", 100*i/cfg.MaxIter, rs.nodeTree.Len())
		}
	}

	bestID, ok := rs.searchBestGoalNode()
	if !ok {
		return nil, errors.Wrapf(ErrPlanningFailed, "RRT* found no safe goal connection after %d iterations with %d nodes",
			iterations, rs.nodeTree.Len())
	}

	p := rs.goalPath(bestID)
	rs.logger.Debugf("RRT* finished after %d iterations: %d nodes, path cost %.3f", iterations, rs.nodeTree.Len(), p.Length())
	return p, nil
}

// goalPath traces bestID back to the root. The goal leads the path even when bestID only
// connects to it, and is not repeated when bestID sits on it.
func (rs *RRTStar) goalPath(bestID int) path.Path {
	goal := rs.rrt.cfg.Goal
	p := path.Path(rs.nodeTree.PathFrom(bestID))
	if p[0] != goal {
		p = append(path.Path{goal}, p...)
	}
	return p
}

func (rs *RRTStar) get(id int) tree.CostNode {
	n, ok := rs.nodeTree.Get(id)
	if !ok {
		panic(fmt.Sprintf("RRT* node %d missing from tree", id))
	}
	return n
}

// nearRadius shrinks with the tree size: min(expand_dis, connect_circle_dist*sqrt(ln(n)/n))
// with n one more than the current node count.
func (rs *RRTStar) nearRadius() float64 {
	n := float64(rs.nodeTree.Len() + 1)
	r := rs.rrt.cfg.ConnectCircleDist * math.Sqrt(math.Log(n)/n)
	return math.Min(r, rs.rrt.cfg.ExpandDis)
}

func (rs *RRTStar) findNearNodes(p geometry.Point) []int {
	return rs.nodeTree.Within(p, rs.nearRadius())
}

// chooseParent re-steers the candidate from every near node and keeps the collision free
// edge with the lowest total cost. ok is false when every edge is blocked.
func (rs *RRTStar) chooseParent(candidate tree.CostNode, nearIDs []int) (tree.CostNode, bool) {
	var best tree.CostNode
	found := false
	for _, id := range nearIDs {
		near := rs.get(id)
		t := rs.rrt.steer(near.Node, candidate.Node, rs.rrt.cfg.ExpandDis, candidate.ID)
		if IsCollision(rs, t.Point) || IsCollisionSegment(rs, near.Point, t.Point) {
			continue
		}

		cost := near.Cost + tree.DistanceBetween(near.Node, t)
		if !found || cost < best.Cost {
			best = tree.CostNode{Node: t, Cost: cost}
			found = true
		}
	}
	return best, found
}

// rewire reparents near nodes onto newNode when that makes them strictly cheaper. Points
// never move, only parent, edge and cost change.
func (rs *RRTStar) rewire(newNode tree.CostNode, nearIDs []int) {
	for _, id := range nearIDs {
		near := rs.get(id)
		edge := rs.rrt.steer(newNode.Node, near.Node, rs.rrt.cfg.ExpandDis, near.ID)
		if edge.Point != near.Point {
			continue
		}

		edgeCost := newNode.Cost + tree.DistanceBetween(newNode.Node, near.Node)
		if edgeCost >= near.Cost {
			continue
		}
		if IsCollision(rs, edge.Point) || IsCollisionSegment(rs, newNode.Point, edge.Point) {
			continue
		}

		near.ParentID = newNode.ID
		near.Path = edge.Path
		near.Cost = edgeCost
		if err := rs.nodeTree.Set(near); err != nil {
			panic(fmt.Sprintf("RRT* rewire of node %d failed: %v", near.ID, err))
		}
		rs.propagateCostToLeaves(near)
	}
}

// propagateCostToLeaves recomputes the cost of every descendant of parent.
func (rs *RRTStar) propagateCostToLeaves(parent tree.CostNode) {
	children := map[int][]int{}
	for _, n := range rs.nodeTree.Nodes() {
		if n.HasParent() {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}

	queue := []tree.CostNode{parent}
	visited := 0
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if visited++; visited > rs.nodeTree.Len() {
			panic(fmt.Sprintf("RRT* cycle below node %d", parent.ID))
		}

		for _, childID := range children[p.ID] {
			child := rs.get(childID)
			child.Cost = p.Cost + tree.DistanceBetween(p.Node, child.Node)
			if err := rs.nodeTree.Set(child); err != nil {
				panic(fmt.Sprintf("RRT* cost update of node %d failed: %v", child.ID, err))
			}
			queue = append(queue, child)
		}
	}
}

// searchBestGoalNode picks the cheapest node within expand_dis of the goal whose final
// edge onto the goal is collision free. Equal costs resolve to the lowest id.
func (rs *RRTStar) searchBestGoalNode() (int, bool) {
	cfg := rs.rrt.cfg
	goal := tree.Node{Point: cfg.Goal}

	bestID := 0
	bestCost := math.Inf(1)
	found := false
	for _, id := range rs.nodeTree.Within(cfg.Goal, cfg.ExpandDis) {
		n := rs.get(id)
		t := rs.rrt.steer(n.Node, goal, cfg.ExpandDis, 0)
		if IsCollision(rs, t.Point) || IsCollisionSegment(rs, n.Point, t.Point) {
			continue
		}
		if n.Cost < bestCost {
			bestID, bestCost, found = id, n.Cost, true
		}
	}
	return bestID, found
}
