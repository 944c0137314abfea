package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb/geojson"
	"go.viam.com/test"

	"rrt-planner/geometry"
	"rrt-planner/planner"
	"rrt-planner/scenario"
)

func writeScenario(t *testing.T) string {
	t.Helper()
	cfg := planner.DefaultConfig()
	cfg.Start = geometry.Point{X: 0, Y: 0}
	cfg.Goal = geometry.Point{X: 10, Y: 0}
	cfg.ExploreArea = geometry.Rectangle{Min: geometry.Point{X: 0, Y: -5}, Max: geometry.Point{X: 10, Y: 5}}
	cfg.MaxIter = 5000
	sc := &scenario.Scenario{
		Config:    cfg,
		Obstacles: []geometry.Obstacle{geometry.Circle{Center: geometry.Point{X: 5, Y: 3}, Radius: 2}},
	}
	filename := filepath.Join(t.TempDir(), "scenario.geojson")
	test.That(t, sc.Save(filename), test.ShouldBeNil)
	return filename
}

func TestPlanTable(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"rrtplan", "plan", "--scenario", writeScenario(t), "--smooth", "100", "--shortcut"})
	test.That(t, err, test.ShouldBeNil)
	rendered := strings.ToLower(out.String())
	test.That(t, rendered, test.ShouldContainSubstring, "length")
	test.That(t, rendered, test.ShouldContainSubstring, "smoothed")
	test.That(t, out.String(), test.ShouldContainSubstring, "10.000")
}

func TestPlanGeoJSON(t *testing.T) {
	filename := writeScenario(t)
	outFile := filepath.Join(t.TempDir(), "result.geojson")

	var out bytes.Buffer
	err := newApp(&out).Run([]string{
		"rrtplan", "plan",
		"--scenario", filename,
		"--algorithm", "rrtstar",
		"--seed", "5",
		"--expand-dis", "0.8",
		"--max-iter", "1500",
		"--search-until-max",
		"--format", "geojson",
		"--simplify", "0.1",
		"--tree",
		"--out", outFile,
	})
	test.That(t, err, test.ShouldBeNil)

	data, err := os.ReadFile(outFile)
	test.That(t, err, test.ShouldBeNil)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fc.Features, test.ShouldHaveLength, 3)
	test.That(t, fc.Features[0].Properties.MustString("algorithm"), test.ShouldEqual, "rrtstar")
	test.That(t, fc.Features[2].Properties.MustString(scenario.RoleProperty), test.ShouldEqual, scenario.RoleTree)

	out.Reset()
	err = newApp(&out).Run([]string{"rrtplan", "plan", "-s", filename, "--format", "geojson", "--restarts", "3"})
	test.That(t, err, test.ShouldBeNil)
	fc, err = geojson.UnmarshalFeatureCollection(out.Bytes())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, fc.Features, test.ShouldHaveLength, 1)
}

func TestPlanErrors(t *testing.T) {
	filename := writeScenario(t)
	var out bytes.Buffer

	err := newApp(&out).Run([]string{"rrtplan", "plan", "--scenario", filename, "--format", "csv"})
	test.That(t, err, test.ShouldNotBeNil)

	err = newApp(&out).Run([]string{"rrtplan", "plan", "--scenario", filename, "--algorithm", "prm"})
	test.That(t, err, test.ShouldNotBeNil)

	err = newApp(&out).Run([]string{"rrtplan", "plan", "--scenario", filename, "--max-iter", "0"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, strings.Contains(err.Error(), "max_iter"), test.ShouldBeTrue)

	err = newApp(&out).Run([]string{"rrtplan", "plan", "--scenario", filepath.Join(t.TempDir(), "missing.geojson")})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestExample(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "example.geojson")
	var out bytes.Buffer
	err := newApp(&out).Run([]string{"rrtplan", "example", "--out", filename})
	test.That(t, err, test.ShouldBeNil)

	sc, err := scenario.Load(filename)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sc.Config, test.ShouldResemble, scenario.Example().Config)
	test.That(t, sc.Obstacles, test.ShouldHaveLength, 2)
}
