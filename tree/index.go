package tree

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/pkg/errors"

	"rrt-planner/geometry"
)

// ErrDuplicatePoint is returned when a record's point is already held by another record.
var ErrDuplicatePoint = errors.New("point already present in index")

// pointEntry wraps a node point for R-tree storage
type pointEntry struct {
	id     int
	point  geometry.Point
	bounds rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *pointEntry) Bounds() rtreego.Rect {
	return e.bounds
}

// rtreego never reports a zero sized rect as intersecting, so points are stored as tiny
// boxes scaled to the coordinate magnitude.
func tolerance(p geometry.Point) float64 {
	return 1e-9 * math.Max(1, math.Max(math.Abs(p.X), math.Abs(p.Y)))
}

func newPointEntry(id int, p geometry.Point) *pointEntry {
	return &pointEntry{
		id:     id,
		point:  p,
		bounds: rtreego.Point{p.X, p.Y}.ToRect(tolerance(p)),
	}
}

// PathTree stores CostNode records by id next to an R-tree over their points. Every id in
// the record map has exactly one index entry and the other way round.
type PathTree struct {
	rtree   *rtreego.Rtree
	records map[int]CostNode
	entries map[int]*pointEntry
	ids     []int
}

// NewPathTree creates an empty tree.
func NewPathTree() *PathTree {
	return &PathTree{
		rtree:   rtreego.NewTree(2, 25, 50), // 2D, min 25, max 50 entries per node
		records: map[int]CostNode{},
		entries: map[int]*pointEntry{},
	}
}

// Len is the number of records.
func (pt *PathTree) Len() int {
	return len(pt.ids)
}

// Add registers a new record. Nothing is stored if the id is taken or another record
// already sits on the same point.
func (pt *PathTree) Add(rec CostNode) error {
	if _, ok := pt.records[rec.ID]; ok {
		return errors.Errorf("node id %d already present", rec.ID)
	}
	if err := pt.insertEntry(rec.ID, rec.Point); err != nil {
		return err
	}
	pt.records[rec.ID] = rec
	pt.insertID(rec.ID)
	return nil
}

// Get looks up a record by id.
func (pt *PathTree) Get(id int) (CostNode, bool) {
	rec, ok := pt.records[id]
	return rec, ok
}

// Set replaces the record with the same id, registering it if the id is new. The index
// entry is only rebuilt when the point moved; on failure the previous state is kept.
func (pt *PathTree) Set(rec CostNode) error {
	old, ok := pt.entries[rec.ID]
	if !ok {
		return pt.Add(rec)
	}

	if old.point != rec.Point {
		pt.rtree.Delete(old)
		delete(pt.entries, rec.ID)
		if err := pt.insertEntry(rec.ID, rec.Point); err != nil {
			pt.rtree.Insert(old)
			pt.entries[rec.ID] = old
			return err
		}
	}
	pt.records[rec.ID] = rec
	return nil
}

// Nearest returns the id of the record closest to p. Equal distances resolve to the
// lowest id. ok is false when the tree is empty.
func (pt *PathTree) Nearest(p geometry.Point) (int, bool) {
	found, ok := pt.rtree.NearestNeighbor(rtreego.Point{p.X, p.Y}).(*pointEntry)
	if !ok || found == nil {
		return 0, false
	}

	// the R-tree measures distance to the entry box, refine on the exact points
	ids := pt.Within(p, found.point.Distance(p)+2*tolerance(found.point))
	best, bestDist := found.id, squaredDistance(found.point, p)
	for _, id := range ids {
		d := squaredDistance(pt.entries[id].point, p)
		if d < bestDist || (d == bestDist && id < best) {
			best, bestDist = id, d
		}
	}
	return best, true
}

// Within returns the ids of all records no further than radius from p, in ascending
// order. radius is a plain distance, not a squared one.
func (pt *PathTree) Within(p geometry.Point, radius float64) []int {
	if radius < 0 || math.IsNaN(radius) {
		return nil
	}
	half := radius + tolerance(p)
	box, err := rtreego.NewRect(rtreego.Point{p.X - half, p.Y - half}, []float64{2 * half, 2 * half})
	if err != nil {
		return nil
	}

	r2 := radius * radius
	var ids []int
	for _, item := range pt.rtree.SearchIntersect(box) {
		entry := item.(*pointEntry)
		if squaredDistance(entry.point, p) <= r2 {
			ids = append(ids, entry.id)
		}
	}
	sort.Ints(ids)
	return ids
}

// Nodes returns the records in ascending id order.
func (pt *PathTree) Nodes() []CostNode {
	nodes := make([]CostNode, 0, len(pt.ids))
	for _, id := range pt.ids {
		nodes = append(nodes, pt.records[id])
	}
	return nodes
}

// PathFrom walks parent links from id back to the root and returns the visited points,
// terminal first. It panics on a broken or cyclic parent chain.
func (pt *PathTree) PathFrom(id int) []geometry.Point {
	return walk(pt.Len(), id, func(id int) (Node, bool) {
		rec, ok := pt.records[id]
		return rec.Node, ok
	})
}

func (pt *PathTree) insertEntry(id int, p geometry.Point) error {
	box := rtreego.Point{p.X, p.Y}.ToRect(tolerance(p))
	for _, item := range pt.rtree.SearchIntersect(box) {
		if other := item.(*pointEntry); other.point == p {
			return errors.Wrapf(ErrDuplicatePoint, "node %d at (%g, %g) collides with node %d", id, p.X, p.Y, other.id)
		}
	}

	entry := newPointEntry(id, p)
	pt.rtree.Insert(entry)
	pt.entries[id] = entry
	return nil
}

func (pt *PathTree) insertID(id int) {
	if n := len(pt.ids); n == 0 || pt.ids[n-1] < id {
		pt.ids = append(pt.ids, id)
		return
	}
	i := sort.SearchInts(pt.ids, id)
	pt.ids = append(pt.ids, 0)
	copy(pt.ids[i+1:], pt.ids[i:])
	pt.ids[i] = id
}

func squaredDistance(a, b geometry.Point) float64 {
	d := a.Sub(b)
	return d.X*d.X + d.Y*d.Y
}
