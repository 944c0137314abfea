// Package scenario reads planning problems from GeoJSON and writes planning results back.
//
// A scenario is a FeatureCollection whose features carry a "role" property:
//
//	start, goal     Point
//	explore_area    Polygon, its bound is the sampling area; planner options sit in its properties
//	obstacle        Point with a "radius" property (circle), Polygon with "shape": "rectangle",
//	                any other Polygon or MultiPolygon (convex hull of each outer ring)
package scenario

import (
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"rrt-planner/geometry"
	"rrt-planner/planner"
)

// Feature roles.
const (
	RoleProperty = "role"

	RoleStart       = "start"
	RoleGoal        = "goal"
	RoleExploreArea = "explore_area"
	RoleObstacle    = "obstacle"

	ShapeRectangle = "rectangle"
)

// Scenario is a fully specified planning problem.
type Scenario struct {
	Config    planner.Config
	Obstacles []geometry.Obstacle
}

type obstacleProperties struct {
	Shape  string  `mapstructure:"shape"`
	Radius float64 `mapstructure:"radius"`
}

// Load reads a scenario file.
func Load(filename string) (*Scenario, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read scenario")
	}
	sc, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", filename)
	}
	return sc, nil
}

// Parse decodes a scenario FeatureCollection. Start and goal are required. Without an
// explore_area feature the bound of all features is used.
func Parse(data []byte) (*Scenario, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, errors.Wrap(err, "invalid GeoJSON")
	}

	sc := &Scenario{Config: planner.DefaultConfig()}
	var haveStart, haveGoal, haveArea bool
	var bound orb.Bound

	for i, f := range fc.Features {
		if f.Geometry == nil {
			return nil, errors.Errorf("feature %d has no geometry", i)
		}
		if i == 0 {
			bound = f.Geometry.Bound()
		} else {
			bound = bound.Union(f.Geometry.Bound())
		}

		role := f.Properties.MustString(RoleProperty, "")
		switch role {
		case RoleStart, RoleGoal:
			pt, ok := f.Geometry.(orb.Point)
			if !ok {
				return nil, errors.Errorf("feature %d: %s must be a Point, got %s", i, role, f.Geometry.GeoJSONType())
			}
			if role == RoleStart {
				sc.Config.Start, haveStart = geometry.FromOrb(pt), true
			} else {
				sc.Config.Goal, haveGoal = geometry.FromOrb(pt), true
			}
		case RoleExploreArea:
			sc.Config.ExploreArea = geometry.RectangleFromBound(f.Geometry.Bound())
			haveArea = true
			if err := decodeProperties(f.Properties, &sc.Config); err != nil {
				return nil, errors.Wrapf(err, "feature %d: invalid planner options", i)
			}
		case RoleObstacle:
			obstacles, err := parseObstacle(f)
			if err != nil {
				return nil, errors.Wrapf(err, "feature %d", i)
			}
			sc.Obstacles = append(sc.Obstacles, obstacles...)
		default:
			return nil, errors.Errorf("feature %d: unknown role %q", i, role)
		}
	}

	if !haveStart || !haveGoal {
		return nil, errors.New("scenario needs a start and a goal feature")
	}
	if !haveArea {
		sc.Config.ExploreArea = geometry.RectangleFromBound(bound)
	}
	return sc, nil
}

func parseObstacle(f *geojson.Feature) ([]geometry.Obstacle, error) {
	var props obstacleProperties
	if err := decodeProperties(f.Properties, &props); err != nil {
		return nil, err
	}

	switch g := f.Geometry.(type) {
	case orb.Point:
		if props.Radius <= 0 {
			return nil, errors.Errorf("circle obstacle needs a positive radius, got %v", props.Radius)
		}
		return []geometry.Obstacle{geometry.Circle{Center: geometry.FromOrb(g), Radius: props.Radius}}, nil
	case orb.Polygon:
		if props.Shape == ShapeRectangle {
			return []geometry.Obstacle{geometry.RectangleFromBound(g.Bound())}, nil
		}
		cp, err := polygonObstacle(g)
		if err != nil {
			return nil, err
		}
		return []geometry.Obstacle{cp}, nil
	case orb.MultiPolygon:
		obstacles := make([]geometry.Obstacle, 0, len(g))
		for _, poly := range g {
			cp, err := polygonObstacle(poly)
			if err != nil {
				return nil, err
			}
			obstacles = append(obstacles, cp)
		}
		return obstacles, nil
	default:
		return nil, errors.Errorf("unsupported obstacle geometry %s", f.Geometry.GeoJSONType())
	}
}

// polygonObstacle builds a convex polygon from the outer ring; holes are ignored.
func polygonObstacle(poly orb.Polygon) (*geometry.ConvexPolygon, error) {
	if len(poly) == 0 {
		return nil, errors.Wrap(geometry.ErrDegeneratePolygon, "polygon has no rings")
	}
	ring := poly[0]
	if len(ring) > 1 && ring.Closed() {
		ring = ring[:len(ring)-1]
	}
	points := make([]geometry.Point, 0, len(ring))
	for _, pt := range ring {
		points = append(points, geometry.FromOrb(pt))
	}
	return geometry.NewConvexPolygon(points)
}

func decodeProperties(props geojson.Properties, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(map[string]interface{}(props))
}

// Example returns a small scenario with a circle and a convex polygon between start and goal.
func Example() *Scenario {
	cfg := planner.DefaultConfig()
	cfg.Start = geometry.Point{X: 0, Y: 0}
	cfg.Goal = geometry.Point{X: 10, Y: 0}

	wall, err := geometry.NewConvexPolygon([]geometry.Point{{X: 3, Y: -1}, {X: 8, Y: 9}, {X: 3, Y: 9}, {X: 8, Y: -1}})
	if err != nil {
		panic(err)
	}
	return &Scenario{
		Config: cfg,
		Obstacles: []geometry.Obstacle{
			geometry.Circle{Center: geometry.Point{X: 5, Y: 5}, Radius: 2.5},
			wall,
		},
	}
}
