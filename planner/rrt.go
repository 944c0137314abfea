package planner

import (
	"context"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/tree"
)

// RRT grows a tree by extending the node nearest to each random sample.
type RRT struct {
	cfg       Config
	obstacles []geometry.Obstacle
	logger    *zap.SugaredLogger
	randseed  *rand.Rand
	nodes     []tree.Node
}

// NewRRT creates an RRT planner. A nil logger disables logging.
func NewRRT(cfg Config, obstacles []geometry.Obstacle, logger *zap.SugaredLogger) (*RRT, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = 1
	}
	return &RRT{
		cfg:       cfg,
		obstacles: obstacles,
		logger:    logger,
		//nolint:gosec
		randseed: rand.New(rand.NewSource(seed)),
	}, nil
}

// Obstacles implements Planner.
func (r *RRT) Obstacles() []geometry.Obstacle {
	return r.obstacles
}

// Nodes returns the tree built by the last Plan call, indexed by id.
func (r *RRT) Nodes() []tree.Node {
	return append([]tree.Node(nil), r.nodes...)
}

// Plan implements Planner. Each call starts a fresh tree but keeps drawing from the same
// random source.
func (r *RRT) Plan(ctx context.Context) (path.Path, error) {
	r.nodes = make([]tree.Node, 0, min(r.cfg.MaxIter+2, 1<<16))
	r.nodes = append(r.nodes, tree.NewRoot(r.cfg.Start))
	goal := tree.Node{Point: r.cfg.Goal}

	r.logger.Debugf("RRT planning from %v to %v, max %d iterations", r.cfg.Start, r.cfg.Goal, r.cfg.MaxIter)

	for i := 1; i <= r.cfg.MaxIter; i++ {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "RRT planning interrupted")
		default:
		}

		rnd := tree.Node{Point: r.sample()}
		nearestIdx, ok := tree.NearestNodeIndex(r.nodes, rnd.Point)
		if !ok {
			panic("RRT tree has no root")
		}
		nearest := r.nodes[nearestIdx]
		newNode := r.steer(nearest, rnd, r.cfg.ExpandDis, len(r.nodes))

		if r.cfg.ExploreArea.IsCollision(newNode.Point) &&
			!IsCollision(r, newNode.Point) &&
			!IsCollisionSegment(r, nearest.Point, newNode.Point) {
			r.nodes = append(r.nodes, newNode)
		}

		last := r.nodes[len(r.nodes)-1]
		if tree.DistanceBetween(last, goal) <= r.cfg.ExpandDis {
			final := r.steer(last, goal, r.cfg.ExpandDis, len(r.nodes))
			r.nodes = append(r.nodes, final)

			p := path.Path(tree.Trace(r.nodes, final.ID))
			r.logger.Debugf("RRT reached goal after %d iterations: %d nodes, path length %.3f", i, len(r.nodes), p.Length())
			return p, nil
		}

		if r.cfg.LogInterval > 0 && i%r.cfg.LogInterval == 0 {
			r.logger.Debugf("RRT progress: %d%%\tnodes: %d", 100*i/r.cfg.MaxIter, len(r.nodes))
		}
	}

	return nil, errors.Wrapf(ErrPlanningFailed, "RRT exhausted %d iterations with %d nodes", r.cfg.MaxIter, len(r.nodes))
}

// sample returns the goal when a draw in [0,100) exceeds GoalSampleRate, otherwise a
// uniform point in the explore area.
func (r *RRT) sample() geometry.Point {
	if r.randseed.Intn(100) > r.cfg.GoalSampleRate {
		return r.cfg.Goal
	}
	area := r.cfg.ExploreArea
	return geometry.Point{
		X: area.Min.X + r.randseed.Float64()*area.Width(),
		Y: area.Min.Y + r.randseed.Float64()*area.Height(),
	}
}

// steer grows an edge from `from` towards `to`, at most extendLength long, in steps of
// PathResolution. The end snaps onto `to` once it is within one step of it.
func (r *RRT) steer(from, to tree.Node, extendLength float64, id int) tree.Node {
	dist := tree.DistanceBetween(from, to)
	theta := tree.AngleBetween(from, to)
	if extendLength > dist {
		extendLength = dist
	}

	res := r.cfg.PathResolution
	nexpand := int(math.Floor(extendLength / res))
	step := geometry.Point{X: res * math.Cos(theta), Y: res * math.Sin(theta)}

	n := tree.Node{
		ID:       id,
		ParentID: from.ID,
		Point:    from.Point,
		Path:     make([]geometry.Point, 0, nexpand+2),
	}
	n.Path = append(n.Path, from.Point)
	for i := 0; i < nexpand; i++ {
		n.Point = n.Point.Add(step)
		n.Path = append(n.Path, n.Point)
	}

	if n.Point.Distance(to.Point) <= res {
		n.Path = append(n.Path, to.Point)
		n.Point = to.Point
	}
	return n
}
