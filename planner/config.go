package planner

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"rrt-planner/geometry"
)

const (
	defaultExpandDis         = 1.0
	defaultPathResolution    = 1.0
	defaultGoalSampleRate    = 50
	defaultMaxIter           = 100000
	defaultConnectCircleDist = 50.0
)

// Config controls a single plan call. Start, Goal and ExploreArea come from the scenario
// geometry, the rest are tuning options.
type Config struct {
	Start geometry.Point `json:"start" mapstructure:"-"`
	Goal  geometry.Point `json:"goal" mapstructure:"-"`

	// Maximum length of a single edge
	ExpandDis float64 `json:"expand_dis" mapstructure:"expand_dis"`

	// Step length edges are subdivided into
	PathResolution float64 `json:"path_resolution" mapstructure:"path_resolution"`

	// A uniform draw in [0,100) strictly above this value samples the goal, so lower
	// values sample the goal more often.
	GoalSampleRate int `json:"goal_sample_rate" mapstructure:"goal_sample_rate"`

	MaxIter int `json:"max_iter" mapstructure:"max_iter"`

	// Random samples are drawn inside this rectangle
	ExploreArea geometry.Rectangle `json:"explore_area" mapstructure:"-"`

	// Scales the RRT* neighbourhood radius
	ConnectCircleDist float64 `json:"connect_circle_dist" mapstructure:"connect_circle_dist"`

	// When false RRT* stops as soon as a candidate lands within ExpandDis of the goal
	SearchUntilMax bool `json:"search_until_max" mapstructure:"search_until_max"`

	// Seed for the planner's random source, 0 is treated as 1
	Seed int64 `json:"seed" mapstructure:"seed"`

	// Iterations between progress logs, 0 disables them
	LogInterval int `json:"log_interval" mapstructure:"log_interval"`
}

// DefaultConfig returns a config with default tuning options and an explore area of
// [0,10]x[0,10]. Start and goal are left at the origin.
func DefaultConfig() Config {
	return Config{
		ExpandDis:         defaultExpandDis,
		PathResolution:    defaultPathResolution,
		GoalSampleRate:    defaultGoalSampleRate,
		MaxIter:           defaultMaxIter,
		ExploreArea:       geometry.Rectangle{Min: geometry.Point{X: 0, Y: 0}, Max: geometry.Point{X: 10, Y: 10}},
		ConnectCircleDist: defaultConnectCircleDist,
	}
}

// Validate reports every invalid option at once.
func (c Config) Validate() error {
	var err error
	if c.ExpandDis <= 0 {
		err = multierr.Append(err, errors.Errorf("expand_dis must be positive, got %v", c.ExpandDis))
	}
	if c.PathResolution <= 0 {
		err = multierr.Append(err, errors.Errorf("path_resolution must be positive, got %v", c.PathResolution))
	}
	if c.GoalSampleRate < 0 || c.GoalSampleRate > 100 {
		err = multierr.Append(err, errors.Errorf("goal_sample_rate must be within [0, 100], got %d", c.GoalSampleRate))
	}
	if c.MaxIter <= 0 {
		err = multierr.Append(err, errors.Errorf("max_iter must be positive, got %d", c.MaxIter))
	}
	if c.ConnectCircleDist < 0 {
		err = multierr.Append(err, errors.Errorf("connect_circle_dist must not be negative, got %v", c.ConnectCircleDist))
	}
	if c.LogInterval < 0 {
		err = multierr.Append(err, errors.Errorf("log_interval must not be negative, got %d", c.LogInterval))
	}
	area := c.ExploreArea
	if area.Min.X > area.Max.X || area.Min.Y > area.Max.Y {
		err = multierr.Append(err, errors.Errorf("explore_area min (%g, %g) exceeds max (%g, %g)",
			area.Min.X, area.Min.Y, area.Max.X, area.Max.Y))
	}
	if err != nil {
		return errors.Wrap(ErrInvalidConfig, err.Error())
	}
	return nil
}
