package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Plan request outcomes.
const (
	resultSuccess = "success"
	resultNoPath  = "no_path"
	resultInvalid = "invalid"
	resultError   = "error"
)

type metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	pathLength prometheus.Histogram
	treeNodes  prometheus.Histogram
}

// newMetrics registers the server metrics on reg. Each server owns its registry so several
// servers can live in one process.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rrt_plan_requests_total",
			Help: "Total plan requests by algorithm and result",
		}, []string{"algorithm", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rrt_plan_duration_seconds",
			Help:    "Planning duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}, []string{"algorithm"}),
		pathLength: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rrt_plan_path_length",
			Help:    "Length of returned paths",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		treeNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rrt_plan_tree_nodes",
			Help:    "Number of tree nodes grown per plan",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
	}
}
