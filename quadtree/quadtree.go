package quadtree

// Quad-Partitioned Point Store
//
// A recursive spatial container holding 2D points, each optionally tagged
// with an owning stroke id. A region starts as a leaf and splits into four
// quadrants once it accumulates Capacity points. The particularities are:
//  - points live only in leaves; an internal node holds nothing but its
//    four children.
//  - a single owner's points may end up scattered across many leaves, so
//    leaves keep a per-owner point list next to the anonymous one.

import (
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cephopod/canvas/geom"
)

// DefaultCapacity is the number of points a leaf holds before it splits.
const DefaultCapacity = 256

// SplitListener is notified when a leaf splits, with the bounds of the four
// new child regions.
type SplitListener func(ne, nw, se, sw geom.Rect)

// OwnerListener is notified when an owner id gets its first point recorded
// in a given leaf.
type OwnerListener func(ownerID string, leaf geom.Rect, p geom.Point)

// Visitor receives a point and its owning id (empty for anonymous points)
// during a search. Returning false stops the scan of the current point list;
// other lists and leaves are still visited.
type Visitor func(p geom.Point, ownerID string) bool

// Tree is a quad-partitioned point store over a fixed root bounds.
type Tree struct {
	root     *node
	capacity int

	splitListener SplitListener
	ownerListener OwnerListener
}

// New returns a tree covering bounds. A capacity lower than 1 falls back to
// DefaultCapacity.
func New(bounds geom.Rect, capacity int) *Tree {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Tree{
		root:     &node{bounds: bounds},
		capacity: capacity,
	}
}

func (t *Tree) Bounds() geom.Rect {
	return t.root.bounds
}

// Len returns the number of points currently stored across all leaves.
func (t *Tree) Len() int {
	return t.root.len()
}

// SetSplitListener registers the hook invoked on every leaf split. The hook
// is diagnostics-only and not required for correctness.
func (t *Tree) SetSplitListener(fn SplitListener) {
	t.splitListener = fn
}

// SetOwnerListener registers the hook invoked when an owner id is first
// recorded in a leaf. The hook is diagnostics-only and not required for
// correctness.
func (t *Tree) SetOwnerListener(fn OwnerListener) {
	t.ownerListener = fn
}

// Insert adds p to the leaf whose bounds contain it, splitting the leaf
// first when it is at capacity. An empty ownerID stores the point as
// anonymous. A point that fits no region is dropped with a warning; this
// signals a boundary or rounding defect upstream, not a fatal condition.
func (t *Tree) Insert(p geom.Point, ownerID string) {
	if !t.root.bounds.ContainsPoint(p) {
		t.drop(p, ownerID)
		return
	}
	t.insert(t.root, p, ownerID)
	instrumentInsert()
}

func (t *Tree) insert(n *node, p geom.Point, ownerID string) {
	if n.children != nil {
		child := n.children.containing(p)
		if child == nil {
			t.drop(p, ownerID)
			return
		}
		t.insert(child, p, ownerID)
		return
	}

	if n.count >= t.capacity {
		t.split(n)
		t.insert(n, p, ownerID)
		return
	}

	if first := n.store(p, ownerID); first && t.ownerListener != nil {
		t.ownerListener(ownerID, n.bounds, p)
	}
}

// split partitions a full leaf into four children tiling its bounds exactly
// and redistributes every stored point by containment. It is a pure
// structural change: no point is dropped or duplicated.
func (t *Tree) split(n *node) {
	hw := n.bounds.W / 2
	hh := n.bounds.H / 2

	// Child offsets are relative to the parent's own origin so nested splits
	// stay correctly positioned.
	q := &quadrants{
		ne: &node{bounds: geom.NewRect(n.bounds.X+hw, n.bounds.Y, hw, hh)},
		nw: &node{bounds: geom.NewRect(n.bounds.X, n.bounds.Y, hw, hh)},
		se: &node{bounds: geom.NewRect(n.bounds.X+hw, n.bounds.Y+hh, hw, hh)},
		sw: &node{bounds: geom.NewRect(n.bounds.X, n.bounds.Y+hh, hw, hh)},
	}

	anonymous := n.anonymous
	owned := n.owned
	n.anonymous = nil
	n.owned = nil
	n.count = 0
	n.children = q

	for _, p := range anonymous {
		t.insert(n, p, "")
	}
	for ownerID, points := range owned {
		for _, p := range points {
			t.insert(n, p, ownerID)
		}
	}

	instrumentSplit()
	if t.splitListener != nil {
		t.splitListener(q.ne.bounds, q.nw.bounds, q.se.bounds, q.sw.bounds)
	}
}

// Search visits every stored point lying within the intersection of box and
// the leaf that holds it. Anonymous points are visited with an empty owner
// id; owned points are visited once per (point, owner) pair.
func (t *Tree) Search(box geom.Rect, visit Visitor) {
	t.search(t.root, box, visit)
}

func (t *Tree) search(n *node, box geom.Rect, visit Visitor) {
	window, ok := n.bounds.Intersection(box)
	if !ok {
		return
	}

	if n.children != nil {
		for _, c := range n.children.all() {
			t.search(c, box, visit)
		}
		return
	}

	scanPoints(n.anonymous, "", window, visit)
	for ownerID, points := range n.owned {
		scanPoints(points, ownerID, window, visit)
	}
}

func scanPoints(points []geom.Point, ownerID string, window geom.Rect, visit Visitor) {
	for _, p := range points {
		if !window.ContainsPoint(p) {
			continue
		}
		if !visit(p, ownerID) {
			return
		}
	}
}

// GatherIntersecting appends, for every leaf intersecting box, the
// intersecting sub-rectangle to out. Internal nodes recurse without
// contributing a rectangle of their own.
func (t *Tree) GatherIntersecting(box geom.Rect, out *[]geom.Rect) {
	t.gather(t.root, box, out)
}

func (t *Tree) gather(n *node, box geom.Rect, out *[]geom.Rect) {
	window, ok := n.bounds.Intersection(box)
	if !ok {
		return
	}

	if n.children != nil {
		for _, c := range n.children.all() {
			t.gather(c, box, out)
		}
		return
	}

	*out = append(*out, window)
}

func (t *Tree) drop(p geom.Point, ownerID string) {
	instrumentDroppedPoint()
	logs.WithTag("x", p.X).
		WithTag("y", p.Y).
		WithTag("owner_id", ownerID).
		Warn("point fits no region, dropping it")
}

// node is a region of the partition. A nil children marks a leaf holding
// points; a non-nil children marks an internal node holding nothing else.
type node struct {
	bounds   geom.Rect
	children *quadrants

	anonymous []geom.Point
	owned     map[string][]geom.Point
	count     int
}

// store records p in the leaf and reports whether this is the first point
// recorded for ownerID in this leaf.
func (n *node) store(p geom.Point, ownerID string) (first bool) {
	if ownerID == "" {
		n.anonymous = append(n.anonymous, p)
	} else {
		if n.owned == nil {
			n.owned = make(map[string][]geom.Point)
		}
		points, ok := n.owned[ownerID]
		n.owned[ownerID] = append(points, p)
		first = !ok
	}

	n.count++
	return first
}

func (n *node) len() int {
	if n.children == nil {
		return n.count
	}

	total := 0
	for _, c := range n.children.all() {
		total += c.len()
	}
	return total
}

type quadrants struct {
	ne *node
	nw *node
	se *node
	sw *node
}

func (q *quadrants) all() [4]*node {
	return [4]*node{q.ne, q.nw, q.se, q.sw}
}

func (q *quadrants) containing(p geom.Point) *node {
	for _, c := range q.all() {
		if c.bounds.ContainsPoint(p) {
			return c
		}
	}
	return nil
}
