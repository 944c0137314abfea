package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"rrt-planner/logging"
	"rrt-planner/path"
	"rrt-planner/planner"
	"rrt-planner/scenario"
	"rrt-planner/server"
)

const (
	// Flags.
	flagDebug          = "debug"
	flagScenario       = "scenario"
	flagAlgorithm      = "algorithm"
	flagSeed           = "seed"
	flagRestarts       = "restarts"
	flagSmooth         = "smooth"
	flagSimplify       = "simplify"
	flagShortcut       = "shortcut"
	flagFormat         = "format"
	flagOut            = "out"
	flagTree           = "tree"
	flagExpandDis      = "expand-dis"
	flagPathResolution = "path-resolution"
	flagGoalSampleRate = "goal-sample-rate"
	flagMaxIter        = "max-iter"
	flagSearchUntilMax = "search-until-max"
	flagLogInterval    = "log-interval"
	flagAddr           = "addr"
	flagTimeout        = "timeout"

	formatGeoJSON = "geojson"
	formatTable   = "table"
)

func newApp(stdout io.Writer) *cli.App {
	var logger *zap.SugaredLogger

	return &cli.App{
		Name:      "rrtplan",
		Usage:     "plan collision free paths with RRT and RRT*",
		Writer:    stdout,
		ErrWriter: stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger = logging.NewDebugLogger("rrtplan")
			} else {
				logger = logging.NewLogger("rrtplan")
			}
			return nil
		},
		After: func(c *cli.Context) error {
			if logger != nil {
				//nolint:errcheck
				logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "plan",
				Usage:     "plan a path for a scenario file",
				UsageText: "rrtplan plan --scenario <file> [options]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     flagScenario,
						Aliases:  []string{"s"},
						Usage:    "GeoJSON scenario `FILE`",
						Required: true,
					},
					&cli.StringFlag{
						Name:  flagAlgorithm,
						Value: string(planner.AlgorithmRRT),
						Usage: "planning algorithm, rrt or rrtstar",
					},
					&cli.Int64Flag{Name: flagSeed, Usage: "random seed, overrides the scenario"},
					&cli.IntFlag{Name: flagRestarts, Value: 1, Usage: "number of seeded attempts run in parallel"},
					&cli.IntFlag{Name: flagSmooth, Usage: "shortcut smoothing iterations applied to the path"},
					&cli.BoolFlag{Name: flagShortcut, Usage: "reduce the path to the shortest walk through its visible waypoints"},
					&cli.Float64Flag{Name: flagSimplify, Usage: "Douglas-Peucker tolerance applied after smoothing"},
					&cli.StringFlag{
						Name:  flagFormat,
						Value: formatTable,
						Usage: "output format, table or geojson",
					},
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "write the output to `FILE` instead of stdout"},
					&cli.BoolFlag{Name: flagTree, Usage: "include the search tree in geojson output"},
					&cli.Float64Flag{Name: flagExpandDis, Usage: "maximum edge length"},
					&cli.Float64Flag{Name: flagPathResolution, Usage: "edge subdivision step"},
					&cli.IntFlag{Name: flagGoalSampleRate, Usage: "goal is sampled when a draw in [0,100) exceeds this"},
					&cli.IntFlag{Name: flagMaxIter, Usage: "maximum iterations"},
					&cli.BoolFlag{Name: flagSearchUntilMax, Usage: "RRT*: keep searching after the goal is reached"},
					&cli.IntFlag{Name: flagLogInterval, Usage: "iterations between progress logs"},
				},
				Action: func(c *cli.Context) error {
					return planAction(c, logger)
				},
			},
			{
				Name:  "serve",
				Usage: "serve the planners over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagAddr, Value: ":8080", Usage: "listen address"},
					&cli.DurationFlag{Name: flagTimeout, Value: 30 * time.Second, Usage: "maximum duration of a single plan"},
				},
				Action: func(c *cli.Context) error {
					ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
					defer stop()
					s := server.New(server.Options{PlanTimeout: c.Duration(flagTimeout)}, logger)
					return s.ListenAndServe(ctx, c.String(flagAddr))
				},
			},
			{
				Name:      "example",
				Usage:     "write an example scenario",
				UsageText: "rrtplan example --out <file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: flagOut, Aliases: []string{"o"}, Usage: "scenario `FILE`", Required: true},
				},
				Action: func(c *cli.Context) error {
					return scenario.Example().Save(c.String(flagOut))
				},
			},
		},
	}
}

func planAction(c *cli.Context, logger *zap.SugaredLogger) error {
	sc, err := scenario.Load(c.String(flagScenario))
	if err != nil {
		return err
	}
	applyOverrides(c, &sc.Config)

	alg := planner.Algorithm(c.String(flagAlgorithm))
	format := c.String(flagFormat)
	if format != formatTable && format != formatGeoJSON {
		return errors.Errorf("unknown format %q", format)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT)
	defer stop()

	res, err := runPlan(ctx, sc, alg, c.Int(flagRestarts), logger)
	if err != nil {
		return err
	}
	if !c.Bool(flagTree) {
		res.Tree = nil
	}
	if n := c.Int(flagSmooth); n > 0 {
		//nolint:gosec
		rng := rand.New(rand.NewSource(sc.Config.Seed))
		res.Smoothed = path.SmoothObstacle(res.Path, sc.Obstacles, n, rng)
	}
	if c.Bool(flagShortcut) {
		res.Smoothed = path.ShortcutVisible(postBase(res), sc.Obstacles)
	}
	if eps := c.Float64(flagSimplify); eps > 0 {
		res.Smoothed = path.SimplifyObstacle(postBase(res), sc.Obstacles, eps)
	}
	logger.Infow("path found", "algorithm", alg, "waypoints", len(res.Path), "length", res.Path.Length())

	out := c.App.Writer
	if format == formatGeoJSON && c.String(flagOut) != "" {
		return scenario.WriteResult(c.String(flagOut), res)
	}
	if format == formatGeoJSON {
		data, err := json.MarshalIndent(res.FeatureCollection(), "", "  ")
		if err != nil {
			return errors.Wrap(err, "failed to marshal result")
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	_, err = fmt.Fprintln(out, waypointTable(res))
	return err
}

// postBase is the path the next post-processing step starts from.
func postBase(res scenario.Result) path.Path {
	if res.Smoothed != nil {
		return res.Smoothed
	}
	return res.Path
}

// applyOverrides copies the tuning flags the user set onto cfg.
func applyOverrides(c *cli.Context, cfg *planner.Config) {
	if c.IsSet(flagSeed) {
		cfg.Seed = c.Int64(flagSeed)
	}
	if c.IsSet(flagExpandDis) {
		cfg.ExpandDis = c.Float64(flagExpandDis)
	}
	if c.IsSet(flagPathResolution) {
		cfg.PathResolution = c.Float64(flagPathResolution)
	}
	if c.IsSet(flagGoalSampleRate) {
		cfg.GoalSampleRate = c.Int(flagGoalSampleRate)
	}
	if c.IsSet(flagMaxIter) {
		cfg.MaxIter = c.Int(flagMaxIter)
	}
	if c.IsSet(flagSearchUntilMax) {
		cfg.SearchUntilMax = c.Bool(flagSearchUntilMax)
	}
	if c.IsSet(flagLogInterval) {
		cfg.LogInterval = c.Int(flagLogInterval)
	}
}

func runPlan(
	ctx context.Context,
	sc *scenario.Scenario,
	alg planner.Algorithm,
	restarts int,
	logger *zap.SugaredLogger,
) (scenario.Result, error) {
	res := scenario.Result{Algorithm: alg}
	if restarts > 1 {
		seeds := make([]int64, restarts)
		for i := range seeds {
			seeds[i] = sc.Config.Seed + int64(i)
		}
		p, err := planner.PlanRestarts(ctx, seeds, planner.NewFactory(alg, sc.Config, sc.Obstacles, logger))
		if err != nil {
			return res, err
		}
		res.Path = p
		return res, nil
	}

	pl, err := planner.New(alg, sc.Config, sc.Obstacles, logger)
	if err != nil {
		return res, err
	}
	p, err := pl.Plan(ctx)
	if err != nil {
		return res, err
	}
	res.Path = p
	res.Tree = planner.TreeNodes(pl)
	return res, nil
}

// waypointTable renders the path, and the smoothed path when present, from start to goal.
func waypointTable(res scenario.Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "X", "Y", "Segment", "Total"})
	appendPath(t, res.Path.Reversed())
	t.AppendFooter(table.Row{"", "", "", "length", fmt.Sprintf("%.3f", res.Path.Length())})
	rendered := t.Render()

	if len(res.Smoothed) > 0 {
		s := table.NewWriter()
		s.SetTitle("smoothed")
		s.AppendHeader(table.Row{"#", "X", "Y", "Segment", "Total"})
		appendPath(s, res.Smoothed.Reversed())
		s.AppendFooter(table.Row{"", "", "", "length", fmt.Sprintf("%.3f", res.Smoothed.Length())})
		rendered += "\n" + s.Render()
	}
	return rendered
}

func appendPath(t table.Writer, p path.Path) {
	var total float64
	for i, pt := range p {
		var seg float64
		if i > 0 {
			seg = p[i-1].Distance(pt)
			total += seg
		}
		t.AppendRow(table.Row{
			i,
			fmt.Sprintf("%.3f", pt.X),
			fmt.Sprintf("%.3f", pt.Y),
			fmt.Sprintf("%.3f", seg),
			fmt.Sprintf("%.3f", total),
		})
	}
}
