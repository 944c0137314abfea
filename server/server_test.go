package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/planner"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Options{}, zaptest.NewLogger(t).Sugar())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func postPlan(t *testing.T, url string, body interface{}) (*http.Response, PlanResponse) {
	t.Helper()
	data, err := json.Marshal(body)
	test.That(t, err, test.ShouldBeNil)
	resp, err := http.Post(url+"/plan", "application/json", bytes.NewReader(data))
	test.That(t, err, test.ShouldBeNil)
	defer resp.Body.Close()

	var out PlanResponse
	test.That(t, json.NewDecoder(resp.Body).Decode(&out), test.ShouldBeNil)
	return resp, out
}

func lineRequest() PlanRequest {
	return PlanRequest{
		Start:       geometry.Point{X: 0, Y: 0},
		Goal:        geometry.Point{X: 10, Y: 0},
		ExploreArea: &geometry.Rectangle{Min: geometry.Point{X: 0, Y: -5}, Max: geometry.Point{X: 10, Y: 5}},
		Config:      map[string]interface{}{"max_iter": "5000", "seed": 3},
	}
}

func TestPlanHandler(t *testing.T) {
	_, ts := newTestServer(t)

	for _, alg := range []planner.Algorithm{"", planner.AlgorithmRRT, planner.AlgorithmRRTStar} {
		t.Run("algorithm "+string(alg), func(t *testing.T) {
			req := lineRequest()
			req.Algorithm = alg
			req.Obstacles = []ObstacleSpec{
				{Type: ObstaclePolygon, Points: []geometry.Point{{X: 4, Y: -3}, {X: 6, Y: -3}, {X: 6, Y: 3}, {X: 4, Y: 3}}},
			}
			req.IncludeTree = true

			resp, out := postPlan(t, ts.URL, req)
			test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
			test.That(t, resp.Header.Get("Access-Control-Allow-Origin"), test.ShouldEqual, "*")
			test.That(t, out.Success, test.ShouldBeTrue)
			test.That(t, out.Path[0], test.ShouldResemble, req.Start)
			test.That(t, out.Path[len(out.Path)-1], test.ShouldResemble, req.Goal)
			test.That(t, out.Length, test.ShouldBeGreaterThan, 10)
			test.That(t, len(out.Tree), test.ShouldBeGreaterThan, 1)
			for _, p := range out.Path {
				test.That(t, p.X > 4 && p.X < 6 && p.Y > -3 && p.Y < 3, test.ShouldBeFalse)
			}
		})
	}
}

func TestPlanHandlerSmoothing(t *testing.T) {
	_, ts := newTestServer(t)

	req := lineRequest()
	req.Obstacles = []ObstacleSpec{{Type: ObstacleCircle, Center: geometry.Point{X: 5, Y: 0}, Radius: 2}}
	req.SmoothIterations = 200

	resp, out := postPlan(t, ts.URL, req)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, out.Success, test.ShouldBeTrue)
	test.That(t, out.Smoothed[0], test.ShouldResemble, req.Start)
	test.That(t, out.Smoothed[len(out.Smoothed)-1], test.ShouldResemble, req.Goal)
	test.That(t, out.Length, test.ShouldAlmostEqual, path.Path(out.Smoothed).Length())
	test.That(t, out.Length, test.ShouldBeLessThanOrEqualTo, path.Path(out.Path).Length()+1e-9)
	test.That(t, out.Tree, test.ShouldBeEmpty)
}

func TestPlanHandlerShortcut(t *testing.T) {
	_, ts := newTestServer(t)

	req := lineRequest()
	req.Shortcut = true
	resp, out := postPlan(t, ts.URL, req)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	// without obstacles the whole path collapses to one segment
	test.That(t, out.Smoothed, test.ShouldResemble, []geometry.Point{req.Start, req.Goal})
	test.That(t, out.Length, test.ShouldAlmostEqual, 10.0)
}

func TestPlanHandlerRestarts(t *testing.T) {
	_, ts := newTestServer(t)

	req := lineRequest()
	req.Algorithm = planner.AlgorithmRRTStar
	req.Restarts = 3
	resp, out := postPlan(t, ts.URL, req)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, out.Success, test.ShouldBeTrue)
	test.That(t, out.Path[0], test.ShouldResemble, req.Start)
}

func TestPlanHandlerNoPath(t *testing.T) {
	_, ts := newTestServer(t)

	req := lineRequest()
	req.Config["max_iter"] = 200
	req.Obstacles = []ObstacleSpec{{Type: ObstacleCircle, Center: geometry.Point{X: 10, Y: 0}, Radius: 3}}

	resp, out := postPlan(t, ts.URL, req)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, out.Success, test.ShouldBeFalse)
	test.That(t, out.Path, test.ShouldBeEmpty)
	test.That(t, out.Message, test.ShouldContainSubstring, "failed to find path")
}

func TestPlanHandlerInvalid(t *testing.T) {
	_, ts := newTestServer(t)

	for name, mutate := range map[string]func(*PlanRequest){
		"unknown algorithm": func(r *PlanRequest) { r.Algorithm = "prm" },
		"unknown option":    func(r *PlanRequest) { r.Config["speed"] = 3 },
		"bad option":        func(r *PlanRequest) { r.Config["expand_dis"] = 0 },
		"circle radius":     func(r *PlanRequest) { r.Obstacles = []ObstacleSpec{{Type: ObstacleCircle}} },
		"degenerate polygon": func(r *PlanRequest) {
			r.Obstacles = []ObstacleSpec{{Type: ObstaclePolygon, Points: []geometry.Point{{X: 1, Y: 1}, {X: 2, Y: 2}}}}
		},
		"obstacle type": func(r *PlanRequest) { r.Obstacles = []ObstacleSpec{{Type: "cone"}} },
		"restarts":      func(r *PlanRequest) { r.Restarts = 1000 },
		"smoothing":     func(r *PlanRequest) { r.SmoothIterations = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			req := lineRequest()
			mutate(&req)
			resp, out := postPlan(t, ts.URL, req)
			test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusBadRequest)
			test.That(t, out.Success, test.ShouldBeFalse)
			test.That(t, out.Message, test.ShouldNotBeEmpty)
		})
	}

	resp, err := http.Post(ts.URL+"/plan", "application/json", strings.NewReader("{"))
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusBadRequest)

	resp, err = http.Get(ts.URL + "/plan")
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusMethodNotAllowed)
}

func TestPlanHandlerTimeout(t *testing.T) {
	s := New(Options{PlanTimeout: time.Nanosecond}, zaptest.NewLogger(t).Sugar())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	req := lineRequest()
	req.Config["max_iter"] = 1000000
	req.Obstacles = []ObstacleSpec{{Type: ObstacleCircle, Center: geometry.Point{X: 10, Y: 0}, Radius: 3}}
	resp, out := postPlan(t, ts.URL, req)
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusGatewayTimeout)
	test.That(t, out.Success, test.ShouldBeFalse)
}

func TestPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/plan", nil)
	test.That(t, err, test.ShouldBeNil)
	resp, err := http.DefaultClient.Do(req)
	test.That(t, err, test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, resp.StatusCode, test.ShouldEqual, http.StatusOK)
	test.That(t, resp.Header.Get("Access-Control-Allow-Methods"), test.ShouldEqual, "POST, GET, OPTIONS")
}

func TestHealthAndMetrics(t *testing.T) {
	_, ts := newTestServer(t)
	postPlan(t, ts.URL, lineRequest())

	resp, err := http.Get(ts.URL + "/health")
	test.That(t, err, test.ShouldBeNil)
	var health map[string]interface{}
	test.That(t, json.NewDecoder(resp.Body).Decode(&health), test.ShouldBeNil)
	resp.Body.Close()
	test.That(t, health["status"], test.ShouldEqual, "ready")
	test.That(t, health["served"], test.ShouldEqual, 1.0)

	resp, err = http.Get(ts.URL + "/metrics")
	test.That(t, err, test.ShouldBeNil)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(body), test.ShouldContainSubstring, `rrt_plan_requests_total{algorithm="rrt",result="success"} 1`)
	test.That(t, string(body), test.ShouldContainSubstring, "rrt_plan_duration_seconds_bucket")
	test.That(t, string(body), test.ShouldContainSubstring, "rrt_plan_tree_nodes_count 1")
}

func TestObstacleSpec(t *testing.T) {
	o, err := ObstacleSpec{Type: ObstacleRectangle, Min: geometry.Point{X: 1, Y: 1}, Max: geometry.Point{X: 2, Y: 2}}.Obstacle()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o, test.ShouldResemble, geometry.Rectangle{Min: geometry.Point{X: 1, Y: 1}, Max: geometry.Point{X: 2, Y: 2}})

	o, err = ObstacleSpec{Type: ObstacleCircle, Center: geometry.Point{X: 1, Y: 1}, Radius: 0.5}.Obstacle()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, o.IsCollision(geometry.Point{X: 1.5, Y: 1}), test.ShouldBeTrue)
}
