package path

import (
	"container/heap"
	"math"
)

type frontierItem struct {
	idx int
	f   float64
}

// frontier is a min-heap of waypoint indices keyed by estimated total cost. Entries made
// stale by a cheaper push are skipped when popped.
type frontier []frontierItem

func (f frontier) Len() int            { return len(f) }
func (f frontier) Less(i, j int) bool  { return f[i].f < f[j].f }
func (f frontier) Swap(i, j int)       { f[i], f[j] = f[j], f[i] }
func (f *frontier) Push(x interface{}) { *f = append(*f, x.(frontierItem)) }

func (f *frontier) Pop() interface{} {
	old := *f
	it := old[len(old)-1]
	*f = old[:len(old)-1]
	return it
}

// AStar returns the cheapest walk from waypoint from to waypoint to, guided by the straight
// line distance to the target waypoint. ok is false when to is unreachable or either index
// is out of range.
func AStar(g *Graph, from, to int) (Path, bool) {
	if g == nil || !g.has(from) || !g.has(to) {
		return nil, false
	}
	target := g.Points[to]

	cost := make([]float64, len(g.Points))
	prev := make([]int, len(g.Points))
	done := make([]bool, len(g.Points))
	for i := range cost {
		cost[i] = math.Inf(1)
		prev[i] = -1
	}
	cost[from] = 0

	open := &frontier{{idx: from, f: g.Points[from].Distance(target)}}
	for open.Len() > 0 {
		cur := heap.Pop(open).(frontierItem).idx
		if done[cur] {
			continue
		}
		if cur == to {
			return g.walk(prev, to), true
		}
		done[cur] = true

		for _, e := range g.Edges[cur] {
			c := cost[cur] + e.Cost
			if done[e.To] || c >= cost[e.To] {
				continue
			}
			cost[e.To] = c
			prev[e.To] = cur
			heap.Push(open, frontierItem{idx: e.To, f: c + g.Points[e.To].Distance(target)})
		}
	}
	return nil, false
}

// walk follows prev back from to and returns the waypoints in travel order.
func (g *Graph) walk(prev []int, to int) Path {
	var back Path
	for i := to; i != -1; i = prev[i] {
		back = append(back, g.Points[i])
	}
	return back.Reversed()
}
