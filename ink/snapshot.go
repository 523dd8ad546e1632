package ink

import (
	"math"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/cephopod/canvas/geom"
	"github.com/segmentio/encoding/json"
)

// Snapshot is the serializable shape of a document. The spatial index is
// never persisted; it is derived from the stroke points on load.
type Snapshot struct {
	Width   float64        `json:"width"`
	Height  float64        `json:"height"`
	Strokes []strokeRecord `json:"strokes"`
}

// strokeRecord is the wire shape of a stroke. The inverted-infinite bounds
// of an empty stroke are not representable in JSON, so bounds are omitted
// until the first point is appended.
type strokeRecord struct {
	ID       string      `json:"id"`
	Points   []Point     `json:"points"`
	Pen      Pen         `json:"pen"`
	LoBound  *geom.Point `json:"lo_bound,omitempty"`
	HiBound  *geom.Point `json:"hi_bound,omitempty"`
	Inactive bool        `json:"inactive,omitempty"`
}

func recordFromStroke(s *Stroke) strokeRecord {
	rec := strokeRecord{
		ID:       s.ID,
		Points:   s.Points,
		Pen:      s.Pen,
		Inactive: s.Inactive,
	}
	if len(s.Points) != 0 {
		lo := s.LoBound
		hi := s.HiBound
		rec.LoBound = &lo
		rec.HiBound = &hi
	}
	return rec
}

func (rec strokeRecord) toStroke() *Stroke {
	s := &Stroke{
		ID:       rec.ID,
		Points:   rec.Points,
		Pen:      rec.Pen,
		LoBound:  geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		HiBound:  geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
		Inactive: rec.Inactive,
	}
	if rec.LoBound != nil {
		s.LoBound = *rec.LoBound
	}
	if rec.HiBound != nil {
		s.HiBound = *rec.HiBound
	}
	return s
}

// Snapshot serializes the full stroke collection plus the canvas extent as
// a single blob. Strokes are written in creation order, which makes
// snapshots of converged replicas byte-identical.
func (d *Document) Snapshot() ([]byte, error) {
	d.mutex.RLock()
	snap := Snapshot{
		Width:   d.width,
		Height:  d.height,
		Strokes: make([]strokeRecord, 0, len(d.order)),
	}
	for _, id := range d.order {
		snap.Strokes = append(snap.Strokes, recordFromStroke(d.strokes[id]))
	}
	d.mutex.RUnlock()

	b, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.New("encoding document snapshot failed").
			WithType(ErrTypeEncodingFailed).
			Wrap(err)
	}
	return b, nil
}

// Load deserializes a snapshot into a fresh document and rebuilds the
// spatial index by reinserting every stroke's points. The snapshot's canvas
// extent overrides the one in c.
func Load(data []byte, c Config) (*Document, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, errors.New("decoding document snapshot failed").
			WithType(ErrTypeEncodingFailed).
			Wrap(err)
	}

	c.Width = snap.Width
	c.Height = snap.Height
	d := New(c)

	d.mutex.Lock()
	for _, rec := range snap.Strokes {
		stroke := rec.toStroke()
		d.strokes[stroke.ID] = stroke
		d.order = append(d.order, stroke.ID)

		for _, p := range stroke.Points {
			d.index.Insert(p.Position(), stroke.ID)
		}
	}
	d.mutex.Unlock()

	return d, nil
}
