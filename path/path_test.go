package path

import (
	"math"
	"math/rand"
	"testing"

	"go.viam.com/test"

	"rrt-planner/geometry"
)

func TestLength(t *testing.T) {
	test.That(t, Path{}.Length(), test.ShouldEqual, 0.0)
	test.That(t, Path{{X: 1, Y: 1}}.Length(), test.ShouldEqual, 0.0)
	test.That(t, Path{{X: 0, Y: 0}, {X: 3, Y: 4}, {X: 3, Y: 0}}.Length(), test.ShouldAlmostEqual, 9.0)
}

func TestTargetPoint(t *testing.T) {
	p := Path{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 2}, {X: 5, Y: 2}}

	pt, idx := p.TargetPoint(1)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, pt.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 0.0)

	pt, idx = p.TargetPoint(3.5)
	test.That(t, idx, test.ShouldEqual, 1)
	test.That(t, pt.X, test.ShouldAlmostEqual, 2.0)
	test.That(t, pt.Y, test.ShouldAlmostEqual, 1.5)

	pt, idx = p.TargetPoint(6)
	test.That(t, idx, test.ShouldEqual, 2)
	test.That(t, pt.X, test.ShouldAlmostEqual, 4.0)

	// the shared vertex belongs to the earlier segment
	pt, idx = p.TargetPoint(2)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, pt, test.ShouldResemble, geometry.Point{X: 2, Y: 0})

	pt, idx = p.TargetPoint(100)
	test.That(t, idx, test.ShouldEqual, 3)
	test.That(t, pt, test.ShouldResemble, geometry.Point{X: 5, Y: 2})

	_, idx = Path{}.TargetPoint(1)
	test.That(t, idx, test.ShouldEqual, -1)

	// zero length leading segment
	pt, idx = Path{{X: 1, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}}.TargetPoint(0)
	test.That(t, idx, test.ShouldEqual, 0)
	test.That(t, math.IsNaN(pt.X), test.ShouldBeTrue)
}

func TestReversed(t *testing.T) {
	p := Path{{X: 1}, {X: 2}, {X: 3}}
	test.That(t, p.Reversed(), test.ShouldResemble, Path{{X: 3}, {X: 2}, {X: 1}})
	test.That(t, p, test.ShouldResemble, Path{{X: 1}, {X: 2}, {X: 3}})
	test.That(t, FromLineString(p.LineString()), test.ShouldResemble, p)
}

func zigzag(n int) Path {
	p := make(Path, 0, n)
	for i := 0; i < n; i++ {
		p = append(p, geometry.Point{X: float64(i), Y: float64(i % 2)})
	}
	return p
}

func TestSmoothObstacleNeverLonger(t *testing.T) {
	wall := geometry.Rectangle{Min: geometry.Point{X: 4.2, Y: -5}, Max: geometry.Point{X: 4.8, Y: 0.4}}
	cases := []struct {
		name      string
		obstacles []geometry.Obstacle
	}{
		{"free", nil},
		{"wall", []geometry.Obstacle{wall}},
		{"circle", []geometry.Obstacle{geometry.Circle{Center: geometry.Point{X: 10, Y: 10}, Radius: 0.5}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(3))
			in := zigzag(12)
			for _, iterations := range []int{0, 1, 5, 50, 500} {
				out := SmoothObstacle(in, tc.obstacles, iterations, rng)
				test.That(t, out.Length(), test.ShouldBeLessThanOrEqualTo, in.Length()+1e-9)
				test.That(t, out[0], test.ShouldResemble, in[0])
				test.That(t, out[len(out)-1], test.ShouldResemble, in[len(in)-1])
			}
		})
	}
}

func TestSmoothObstacleShortcuts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	in := zigzag(20)
	out := SmoothObstacle(in, nil, 200, rng)
	test.That(t, out.Length(), test.ShouldBeLessThan, in.Length())
	test.That(t, in, test.ShouldResemble, zigzag(20))

	test.That(t, SmoothObstacle(Path{{X: 0}, {X: 1}}, nil, 10, rng), test.ShouldResemble, Path{{X: 0}, {X: 1}})
	test.That(t, SmoothObstacle(in, nil, 0, rng), test.ShouldResemble, in)
}

func TestSmoothObstacleRespectsObstacles(t *testing.T) {
	// a detour around a box, every shortcut across the box is blocked by its edges
	box := geometry.Rectangle{Min: geometry.Point{X: 1, Y: -1}, Max: geometry.Point{X: 3, Y: 1}}
	in := Path{{X: 0, Y: 0}, {X: 0, Y: 2}, {X: 2, Y: 2}, {X: 4, Y: 2}, {X: 4, Y: 0}}
	out := SmoothObstacle(in, []geometry.Obstacle{box}, 300, rand.New(rand.NewSource(7)))
	for i := 0; i < len(out)-1; i++ {
		test.That(t, box.IsCollisionSegment(out[i], out[i+1]), test.ShouldBeFalse)
	}
}

func TestSimplifyObstacle(t *testing.T) {
	straight := Path{{X: 0}, {X: 1, Y: 0.01}, {X: 2}, {X: 3, Y: -0.01}, {X: 4}}
	test.That(t, SimplifyObstacle(straight, nil, 0.1), test.ShouldResemble, Path{{X: 0}, {X: 4}})

	// a circle on the chord keeps the detour points
	blocker := geometry.Circle{Center: geometry.Point{X: 2, Y: 0}, Radius: 0.5}
	out := SimplifyObstacle(straight, []geometry.Obstacle{blocker}, 0.1)
	test.That(t, len(out), test.ShouldBeGreaterThan, 2)
	test.That(t, out.Length(), test.ShouldBeLessThanOrEqualTo, straight.Length())

	test.That(t, SimplifyObstacle(Path{{X: 1}}, nil, 1), test.ShouldResemble, Path{{X: 1}})
}
