package planner

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rrt-planner/geometry"
	"rrt-planner/path"
)

// Factory builds an independent planner for one seeded attempt.
type Factory func(seed int64) (Planner, error)

// New creates the planner named by alg. An empty name selects RRT.
func New(alg Algorithm, cfg Config, obstacles []geometry.Obstacle, logger *zap.SugaredLogger) (Planner, error) {
	switch alg {
	case AlgorithmRRT, "":
		return NewRRT(cfg, obstacles, logger)
	case AlgorithmRRTStar:
		return NewRRTStar(cfg, obstacles, logger)
	default:
		return nil, errors.Errorf("unknown planning algorithm %q", alg)
	}
}

// NewFactory returns a Factory that builds alg planners from cfg with the seed replaced.
func NewFactory(alg Algorithm, cfg Config, obstacles []geometry.Obstacle, logger *zap.SugaredLogger) Factory {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return func(seed int64) (Planner, error) {
		c := cfg
		c.Seed = seed
		return New(alg, c, obstacles, logger.With("seed", seed))
	}
}

// PlanRestarts runs one planner per seed concurrently and returns the shortest path found.
// Attempts that fail to reach the goal are ignored; any other error cancels the rest and
// is returned. Each planner is used by a single goroutine only.
func PlanRestarts(ctx context.Context, seeds []int64, factory Factory) (path.Path, error) {
	results := make([]path.Path, len(seeds))
	g, ctx := errgroup.WithContext(ctx)
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			p, err := factory(seed)
			if err != nil {
				return err
			}
			res, err := p.Plan(ctx)
			if errors.Is(err, ErrPlanningFailed) {
				return nil
			}
			if err != nil {
				return errors.Wrapf(err, "attempt with seed %d", seed)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	found := lo.Filter(results, func(p path.Path, _ int) bool { return p != nil })
	if len(found) == 0 {
		return nil, errors.Wrapf(ErrPlanningFailed, "no path in %d attempts", len(seeds))
	}
	return lo.MinBy(found, func(a, b path.Path) bool { return a.Length() < b.Length() }), nil
}
