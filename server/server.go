// Package server exposes the planners over HTTP.
//
// Endpoints:
//
//	POST /plan     plan a path for the obstacles in the request body
//	GET  /health   report server status
//	GET  /metrics  prometheus metrics
package server

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"rrt-planner/geometry"
	"rrt-planner/path"
	"rrt-planner/planner"
	"rrt-planner/tree"
)

const (
	defaultPlanTimeout = 30 * time.Second
	maxRestarts        = 32
	shutdownTimeout    = 5 * time.Second
)

// Obstacle types accepted in a plan request.
const (
	ObstacleCircle    = "circle"
	ObstacleRectangle = "rectangle"
	ObstaclePolygon   = "polygon"
)

// ObstacleSpec describes one obstacle in a plan request. Only the fields of its Type are read.
type ObstacleSpec struct {
	Type   string           `json:"type"`
	Center geometry.Point   `json:"center"`
	Radius float64          `json:"radius,omitempty"`
	Min    geometry.Point   `json:"min"`
	Max    geometry.Point   `json:"max"`
	Points []geometry.Point `json:"points,omitempty"`
}

// PlanRequest is the body of POST /plan.
type PlanRequest struct {
	Start geometry.Point `json:"start"`
	Goal  geometry.Point `json:"goal"`
	// Optional, defaults to the planner's default area
	ExploreArea *geometry.Rectangle `json:"explore_area,omitempty"`
	Obstacles   []ObstacleSpec      `json:"obstacles,omitempty"`
	Algorithm   planner.Algorithm   `json:"algorithm,omitempty"`
	// Planner options by their config names, e.g. {"expand_dis": 0.5, "max_iter": 2000}
	Config           map[string]interface{} `json:"config,omitempty"`
	SmoothIterations int                    `json:"smooth_iterations,omitempty"`
	// Reduce the (smoothed) path to the shortest walk through its visibility graph
	Shortcut bool `json:"shortcut,omitempty"`
	// Number of seeded attempts run in parallel, the shortest path wins
	Restarts    int  `json:"restarts,omitempty"`
	IncludeTree bool `json:"include_tree,omitempty"`
}

// PlanResponse is the reply to POST /plan. Paths run from start to goal. Length is the length
// of the smoothed path when one was requested.
type PlanResponse struct {
	Path     []geometry.Point `json:"path"`
	Smoothed []geometry.Point `json:"smoothed,omitempty"`
	Success  bool             `json:"success"`
	Message  string           `json:"message,omitempty"`
	Length   float64          `json:"length,omitempty"`
	Tree     []tree.Node      `json:"tree,omitempty"`
}

// Options configures a Server.
type Options struct {
	// Upper bound for a single plan call, 0 means the default of 30s
	PlanTimeout time.Duration
	// Defaults applied before the options of each request, zero means planner.DefaultConfig
	Defaults planner.Config
}

// Server handles planning requests. It keeps no planner state between requests.
type Server struct {
	logger   *zap.SugaredLogger
	opts     Options
	registry *prometheus.Registry
	metrics  *metrics
	served   atomic.Int64
	started  time.Time
}

// New creates a server. A nil logger disables logging.
func New(opts Options, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if opts.PlanTimeout <= 0 {
		opts.PlanTimeout = defaultPlanTimeout
	}
	if opts.Defaults == (planner.Config{}) {
		opts.Defaults = planner.DefaultConfig()
	}
	reg := prometheus.NewRegistry()
	return &Server{
		logger:   logger,
		opts:     opts,
		registry: reg,
		metrics:  newMetrics(reg),
		started:  time.Now(),
	}
}

// Handler returns the routes of the server with CORS enabled.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/plan", corsMiddleware(s.planHandler))
	mux.HandleFunc("/health", corsMiddleware(s.healthHandler))
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Infow("server started", "addr", addr)

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server stopped")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown failed")
	}
	return nil
}

// corsMiddleware adds CORS headers to allow frontend requests
func corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		// Handle preflight
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ready",
		"algorithms": []planner.Algorithm{planner.AlgorithmRRT, planner.AlgorithmRRTStar},
		"served":     s.served.Load(),
		"uptime":     time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) planHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.logger.Debugw("invalid request body", "error", err)
		s.metrics.requests.WithLabelValues("", resultInvalid).Inc()
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Algorithm == "" {
		req.Algorithm = planner.AlgorithmRRT
	}
	logger := s.logger.With("algorithm", req.Algorithm)
	logger.Infow("plan request received", "start", req.Start, "goal", req.Goal, "obstacles", len(req.Obstacles))

	cfg, obstacles, err := s.buildProblem(req)
	if err != nil {
		logger.Infow("invalid plan request", "error", err)
		s.metrics.requests.WithLabelValues(string(req.Algorithm), resultInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, PlanResponse{Message: err.Error()})
		return
	}

	if !cfg.ExploreArea.Contains(cfg.Start) || !cfg.ExploreArea.Contains(cfg.Goal) {
		logger.Warnw("start or goal outside the explore area", "explore_area", cfg.ExploreArea)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.opts.PlanTimeout)
	defer cancel()

	start := time.Now()
	resp, err := s.plan(ctx, req, cfg, obstacles, logger)
	s.metrics.duration.WithLabelValues(string(req.Algorithm)).Observe(time.Since(start).Seconds())
	s.served.Add(1)

	switch {
	case err == nil:
		s.metrics.requests.WithLabelValues(string(req.Algorithm), resultSuccess).Inc()
		s.metrics.pathLength.Observe(resp.Length)
		logger.Infow("path found", "waypoints", len(resp.Path), "length", resp.Length, "elapsed", time.Since(start))
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, planner.ErrPlanningFailed):
		s.metrics.requests.WithLabelValues(string(req.Algorithm), resultNoPath).Inc()
		logger.Infow("no path found", "elapsed", time.Since(start))
		resp.Message = err.Error()
		writeJSON(w, http.StatusOK, resp)
	case errors.Is(err, planner.ErrInvalidConfig):
		s.metrics.requests.WithLabelValues(string(req.Algorithm), resultInvalid).Inc()
		writeJSON(w, http.StatusBadRequest, PlanResponse{Message: err.Error()})
	default:
		s.metrics.requests.WithLabelValues(string(req.Algorithm), resultError).Inc()
		logger.Warnw("planning aborted", "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		writeJSON(w, status, PlanResponse{Message: err.Error()})
	}
}

// buildProblem turns a request into a planner config and obstacle set.
func (s *Server) buildProblem(req PlanRequest) (planner.Config, []geometry.Obstacle, error) {
	cfg := s.opts.Defaults
	if len(req.Config) > 0 {
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			ErrorUnused:      true,
			Result:           &cfg,
		})
		if err != nil {
			return cfg, nil, err
		}
		if err := dec.Decode(req.Config); err != nil {
			return cfg, nil, errors.Wrap(err, "invalid config")
		}
	}
	cfg.Start = req.Start
	cfg.Goal = req.Goal
	if req.ExploreArea != nil {
		cfg.ExploreArea = *req.ExploreArea
	}

	switch req.Algorithm {
	case planner.AlgorithmRRT, planner.AlgorithmRRTStar:
	default:
		return cfg, nil, errors.Errorf("unknown algorithm %q", req.Algorithm)
	}
	if req.Restarts < 0 || req.Restarts > maxRestarts {
		return cfg, nil, errors.Errorf("restarts must be within [0, %d], got %d", maxRestarts, req.Restarts)
	}
	if req.SmoothIterations < 0 {
		return cfg, nil, errors.Errorf("smooth_iterations must not be negative, got %d", req.SmoothIterations)
	}

	obstacles := make([]geometry.Obstacle, 0, len(req.Obstacles))
	for i, spec := range req.Obstacles {
		o, err := spec.Obstacle()
		if err != nil {
			return cfg, nil, errors.Wrapf(err, "obstacle %d", i)
		}
		obstacles = append(obstacles, o)
	}
	return cfg, obstacles, nil
}

func (s *Server) plan(
	ctx context.Context,
	req PlanRequest,
	cfg planner.Config,
	obstacles []geometry.Obstacle,
	logger *zap.SugaredLogger,
) (PlanResponse, error) {
	var (
		raw   path.Path
		nodes []tree.Node
	)
	if req.Restarts > 1 {
		seeds := make([]int64, req.Restarts)
		for i := range seeds {
			seeds[i] = cfg.Seed + int64(i)
		}
		p, err := planner.PlanRestarts(ctx, seeds, planner.NewFactory(req.Algorithm, cfg, obstacles, logger))
		if err != nil {
			return PlanResponse{}, err
		}
		raw = p
	} else {
		pl, err := planner.New(req.Algorithm, cfg, obstacles, logger)
		if err != nil {
			return PlanResponse{}, err
		}
		p, err := pl.Plan(ctx)
		nodes = planner.TreeNodes(pl)
		s.metrics.treeNodes.Observe(float64(len(nodes)))
		if err != nil {
			return PlanResponse{}, err
		}
		raw = p
	}

	resp := PlanResponse{
		Path:    raw.Reversed(),
		Success: true,
		Length:  raw.Length(),
	}
	if req.IncludeTree {
		resp.Tree = nodes
	}
	var smoothed path.Path
	if req.SmoothIterations > 0 {
		//nolint:gosec
		rng := rand.New(rand.NewSource(cfg.Seed))
		smoothed = path.SmoothObstacle(raw, obstacles, req.SmoothIterations, rng)
	}
	if req.Shortcut {
		if smoothed == nil {
			smoothed = raw
		}
		smoothed = path.ShortcutVisible(smoothed, obstacles)
	}
	if smoothed != nil {
		resp.Smoothed = smoothed.Reversed()
		resp.Length = smoothed.Length()
	}
	return resp, nil
}

// Obstacle builds the obstacle described by spec.
func (spec ObstacleSpec) Obstacle() (geometry.Obstacle, error) {
	switch spec.Type {
	case ObstacleCircle:
		if spec.Radius <= 0 {
			return nil, errors.Errorf("circle needs a positive radius, got %v", spec.Radius)
		}
		return geometry.Circle{Center: spec.Center, Radius: spec.Radius}, nil
	case ObstacleRectangle:
		return geometry.Rectangle{Min: spec.Min, Max: spec.Max}, nil
	case ObstaclePolygon:
		return geometry.NewConvexPolygon(spec.Points)
	default:
		return nil, errors.Errorf("unknown obstacle type %q", spec.Type)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errchkjson
	json.NewEncoder(w).Encode(v)
}
