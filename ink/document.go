package ink

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cephopod/canvas/geom"
	"github.com/cephopod/canvas/quadtree"
	"github.com/cephopod/canvas/replication"
	"github.com/google/uuid"
)

// Config configures a Document.
type Config struct {
	// The canvas extent. Fixed for the document's lifetime.
	Width  float64
	Height float64

	// The spatial index split threshold. Defaults to
	// quadtree.DefaultCapacity when lower than 1.
	Capacity int

	// The substrate that orders operations across replicas. A nil substrate
	// makes the document standalone: operations still apply locally but are
	// not replicated.
	Substrate replication.Substrate
}

// Document is the authoritative, replicated collection of ink strokes.
//
// Every operation goes through a single apply path used both for locally
// issued operations (applied optimistically, then submitted for ordering)
// and for sequenced copies replayed from other replicas, so that all
// replicas converge to the same state.
type Document struct {
	width     float64
	height    float64
	capacity  int
	substrate replication.Substrate

	mutex   sync.RWMutex
	strokes map[string]*Stroke
	order   []string
	index   *quadtree.Tree

	indexSplitListener quadtree.SplitListener
	indexOwnerListener quadtree.OwnerListener

	listenerIDs     SequentialIDGenerator
	listenerMutex   sync.RWMutex
	createListeners []createListener
	stylusListeners []stylusListener
	eraseListeners  []eraseListener
	clearListeners  []clearListener
}

func New(c Config) *Document {
	if c.Capacity < 1 {
		c.Capacity = quadtree.DefaultCapacity
	}

	d := &Document{
		width:     c.Width,
		height:    c.Height,
		capacity:  c.Capacity,
		substrate: c.Substrate,
		strokes:   make(map[string]*Stroke),
	}
	d.index = d.newIndex()

	if d.substrate != nil {
		d.substrate.SetDeliveryHandler(d.handleSequenced)
	}
	return d
}

func (d *Document) newIndex() *quadtree.Tree {
	index := quadtree.New(geom.NewRect(0, 0, d.width, d.height), d.capacity)
	if d.indexSplitListener != nil {
		index.SetSplitListener(d.indexSplitListener)
	}
	if d.indexOwnerListener != nil {
		index.SetOwnerListener(d.indexOwnerListener)
	}
	return index
}

// CreateStroke allocates a stroke with a fresh unique id and empty points,
// applies it locally and submits it for replication.
func (d *Document) CreateStroke(pen Pen) *Stroke {
	op := Operation{
		Kind:     OpCreateStroke,
		StrokeID: uuid.New().String(),
		Pen:      &pen,
	}

	stroke, _ := d.apply(op)
	instrumentOpApplied(op.Kind, originLocal)
	d.submit(op)
	return stroke
}

// AppendPoint appends p to the named stroke, widens its bounds and indexes
// the point under the stroke id. It returns false without submitting
// anything when the stroke does not exist, which is legitimate under a
// concurrent clear. Appending to an erased stroke succeeds: only deletion
// blocks appends, not the inactive flag.
func (d *Document) AppendPoint(strokeID string, p Point) (*Stroke, bool) {
	op := Operation{
		Kind:     OpStylus,
		StrokeID: strokeID,
		Point:    &p,
	}

	stroke, ok := d.apply(op)
	if !ok {
		return nil, false
	}

	instrumentOpApplied(op.Kind, originLocal)
	d.submit(op)
	return stroke, true
}

// EraseStrokes marks the named strokes inactive. Points, bounds and index
// entries are left untouched so historical queries stay possible.
func (d *Document) EraseStrokes(ids ...string) {
	op := Operation{
		Kind:      OpEraseStrokes,
		StrokeIDs: ids,
	}

	d.apply(op)
	instrumentOpApplied(op.Kind, originLocal)
	d.submit(op)
}

// Clear discards every stroke and rebuilds the spatial index from a fresh
// empty root.
func (d *Document) Clear() {
	op := Operation{Kind: OpClear}

	d.apply(op)
	instrumentOpApplied(op.Kind, originLocal)
	d.submit(op)
}

// apply is the single mutation path shared by locally issued and replayed
// operations. Event listeners are invoked after the mutation completes,
// never mid-mutation.
func (d *Document) apply(op Operation) (*Stroke, bool) {
	switch op.Kind {
	case OpCreateStroke:
		return d.applyCreateStroke(op), true

	case OpStylus:
		return d.applyStylus(op)

	case OpEraseStrokes:
		d.applyEraseStrokes(op)
		return nil, true

	case OpClear:
		d.applyClear()
		return nil, true

	default:
		instrumentOpSkipped(op.Kind, ErrTypeUnknownOperation)
		logs.WithTag("op_kind", op.Kind).
			Warn("skipping operation with unknown kind")
		return nil, false
	}
}

func (d *Document) applyCreateStroke(op Operation) *Stroke {
	var pen Pen
	if op.Pen != nil {
		pen = *op.Pen
	}

	d.mutex.Lock()
	stroke := newStroke(op.StrokeID, pen)
	d.strokes[stroke.ID] = stroke
	d.order = append(d.order, stroke.ID)
	d.mutex.Unlock()

	d.emitCreateStroke(stroke)
	return stroke
}

func (d *Document) applyStylus(op Operation) (*Stroke, bool) {
	if op.Point == nil {
		instrumentOpSkipped(op.Kind, ErrTypeEncodingFailed)
		logs.WithTag("stroke_id", op.StrokeID).
			Warn("skipping stylus operation without a point")
		return nil, false
	}
	p := *op.Point

	d.mutex.Lock()
	stroke, ok := d.strokes[op.StrokeID]
	if !ok {
		d.mutex.Unlock()
		instrumentOpSkipped(op.Kind, ErrTypeStrokeNotFound)
		logs.WithTag("stroke_id", op.StrokeID).
			Debug("skipping point append, stroke not found")
		return nil, false
	}
	stroke.append(p)
	d.index.Insert(p.Position(), stroke.ID)
	d.mutex.Unlock()

	d.emitStylus(stroke, p)
	return stroke, true
}

func (d *Document) applyEraseStrokes(op Operation) {
	d.mutex.Lock()
	for _, id := range op.StrokeIDs {
		if stroke, ok := d.strokes[id]; ok {
			stroke.Inactive = true
		}
	}
	d.mutex.Unlock()

	d.emitEraseStrokes(op.StrokeIDs)
}

func (d *Document) applyClear() {
	d.mutex.Lock()
	d.strokes = make(map[string]*Stroke)
	d.order = nil
	d.index = d.newIndex()
	d.mutex.Unlock()

	d.emitClear()
}

func (d *Document) submit(op Operation) {
	if d.substrate == nil {
		return
	}

	payload, err := EncodeOperation(op)
	if err != nil {
		logs.Warn(errors.New("submitting operation failed").Wrap(err))
		return
	}
	d.substrate.Submit(payload)
}

// handleSequenced receives sequenced operations from the substrate. A
// locally originated operation was already applied optimistically when it
// was issued and is not applied twice.
func (d *Document) handleSequenced(payload []byte, localOrigin bool) {
	if localOrigin {
		return
	}

	op, err := DecodeOperation(payload)
	if err != nil {
		logs.Warn(errors.New("dropping sequenced operation").Wrap(err))
		return
	}

	if _, ok := d.apply(op); ok {
		instrumentOpApplied(op.Kind, originReplayed)
	}
}

// StrokeByID returns the stroke with the given id. Callers must not mutate
// the returned stroke.
func (d *Document) StrokeByID(id string) (*Stroke, bool) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	stroke, ok := d.strokes[id]
	return stroke, ok
}

// Strokes returns every stroke in creation order, including inactive ones.
func (d *Document) Strokes() []*Stroke {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	strokes := make([]*Stroke, 0, len(d.order))
	for _, id := range d.order {
		strokes = append(strokes, d.strokes[id])
	}
	return strokes
}

func (d *Document) StrokeCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	return len(d.strokes)
}

func (d *Document) Width() float64 {
	return d.width
}

func (d *Document) Height() float64 {
	return d.height
}

// SearchPoints visits the indexed points intersecting box. See
// quadtree.Tree.Search for visitor semantics.
func (d *Document) SearchPoints(box geom.Rect, visit quadtree.Visitor) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	d.index.Search(box, visit)
}

// GatherViewportRects appends the index leaf rectangles intersecting the
// viewport to out, for partition visualization.
func (d *Document) GatherViewportRects(viewport geom.Rect, out *[]geom.Rect) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	d.index.GatherIntersecting(viewport, out)
}

// SetIndexSplitListener installs a diagnostics hook on the spatial index
// that survives index rebuilds on clear and load.
func (d *Document) SetIndexSplitListener(fn quadtree.SplitListener) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.indexSplitListener = fn
	d.index.SetSplitListener(fn)
}

// SetIndexOwnerListener installs a diagnostics hook invoked when a stroke
// id gets its first point indexed in a leaf, surviving index rebuilds.
func (d *Document) SetIndexOwnerListener(fn quadtree.OwnerListener) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.indexOwnerListener = fn
	d.index.SetOwnerListener(fn)
}
