package scenario

import (
	"encoding/json"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/planner"
	"rrt-planner/tree"
)

// Result roles.
const (
	RolePath         = "path"
	RoleSmoothedPath = "smoothed_path"
	RoleTree         = "tree"
)

// Result is the outcome of one planning run.
type Result struct {
	Algorithm planner.Algorithm
	// Path is terminal first, as returned by the planner.
	Path     path.Path
	Smoothed path.Path
	Tree     []tree.Node
}

// FeatureCollection renders the result. Paths are written start to goal.
func (r Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	if len(r.Path) > 0 {
		f := geojson.NewFeature(r.Path.Reversed().LineString())
		f.Properties[RoleProperty] = RolePath
		f.Properties["algorithm"] = string(r.Algorithm)
		f.Properties["length"] = r.Path.Length()
		f.Properties["waypoints"] = len(r.Path)
		fc.Append(f)
	}

	if len(r.Smoothed) > 0 {
		f := geojson.NewFeature(r.Smoothed.Reversed().LineString())
		f.Properties[RoleProperty] = RoleSmoothedPath
		f.Properties["length"] = r.Smoothed.Length()
		f.Properties["waypoints"] = len(r.Smoothed)
		fc.Append(f)
	}

	if edges := treeEdges(r.Tree); len(edges) > 0 {
		f := geojson.NewFeature(edges)
		f.Properties[RoleProperty] = RoleTree
		f.Properties["nodes"] = len(r.Tree)
		fc.Append(f)
	}

	return fc
}

// treeEdges returns the dense edge of every non-root node.
func treeEdges(nodes []tree.Node) orb.MultiLineString {
	var edges orb.MultiLineString
	for _, n := range nodes {
		if !n.HasParent() || len(n.Path) < 2 {
			continue
		}
		edges = append(edges, path.Path(n.Path).LineString())
	}
	return edges
}

// WriteResult saves the result as indented GeoJSON.
func WriteResult(filename string, r Result) error {
	data, err := json.MarshalIndent(r.FeatureCollection(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal result")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write result")
	}
	return nil
}

// FeatureCollection renders the scenario in the format Parse reads.
func (sc *Scenario) FeatureCollection() (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	start := geojson.NewFeature(sc.Config.Start.Orb())
	start.Properties[RoleProperty] = RoleStart
	fc.Append(start)

	goal := geojson.NewFeature(sc.Config.Goal.Orb())
	goal.Properties[RoleProperty] = RoleGoal
	fc.Append(goal)

	area := geojson.NewFeature(sc.Config.ExploreArea.Bound().ToPolygon())
	if err := mapstructure.Decode(sc.Config, &area.Properties); err != nil {
		return nil, errors.Wrap(err, "failed to encode planner options")
	}
	area.Properties[RoleProperty] = RoleExploreArea
	fc.Append(area)

	for i, o := range sc.Obstacles {
		var f *geojson.Feature
		switch obs := o.(type) {
		case geometry.Circle:
			f = geojson.NewFeature(obs.Center.Orb())
			f.Properties["radius"] = obs.Radius
		case geometry.Rectangle:
			f = geojson.NewFeature(obs.Bound().ToPolygon())
			f.Properties["shape"] = ShapeRectangle
		case *geometry.ConvexPolygon:
			f = geojson.NewFeature(orb.Polygon{obs.Ring()})
		default:
			return nil, errors.Errorf("obstacle %d: cannot encode %T", i, o)
		}
		f.Properties[RoleProperty] = RoleObstacle
		fc.Append(f)
	}
	return fc, nil
}

// Save writes the scenario as indented GeoJSON.
func (sc *Scenario) Save(filename string) error {
	fc, err := sc.FeatureCollection()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal scenario")
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return errors.Wrap(err, "failed to write scenario")
	}
	return nil
}
