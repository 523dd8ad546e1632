package ink

import (
	"math"

	"github.com/cephopod/canvas/geom"
)

// Color is an RGBA color with 8-bit channels.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// Pen describes the tool a stroke is drawn with. It is immutable once the
// stroke is created.
type Pen struct {
	Color     Color   `json:"color"`
	Thickness float64 `json:"thickness"`
}

// Point is a position sampled from a stylus gesture. Time is in Unix
// milliseconds and Pressure is normalized to [0, 1].
type Point struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Time     int64   `json:"time"`
	Pressure float64 `json:"pressure"`
}

func (p Point) Position() geom.Point {
	return geom.Point{X: p.X, Y: p.Y}
}

// Stroke is one continuous ink gesture: an ordered list of points sharing
// one pen. Points are strictly append-only. LoBound and HiBound track the
// minimal box enclosing every point ever appended; they only ever widen.
// Inactive is a soft-delete flag: an erased stroke stays in storage and in
// the spatial index.
type Stroke struct {
	ID       string
	Points   []Point
	Pen      Pen
	LoBound  geom.Point
	HiBound  geom.Point
	Inactive bool
}

// newStroke returns a stroke with inverted-infinite bounds so the first
// appended point updates both of them.
func newStroke(id string, pen Pen) *Stroke {
	return &Stroke{
		ID:      id,
		Pen:     pen,
		LoBound: geom.Point{X: math.Inf(1), Y: math.Inf(1)},
		HiBound: geom.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

func (s *Stroke) append(p Point) {
	s.Points = append(s.Points, p)
	s.LoBound.X = math.Min(s.LoBound.X, p.X)
	s.LoBound.Y = math.Min(s.LoBound.Y, p.Y)
	s.HiBound.X = math.Max(s.HiBound.X, p.X)
	s.HiBound.Y = math.Max(s.HiBound.Y, p.Y)
}

// Bounds returns the stroke's bounding rectangle and false when no point
// was ever appended.
func (s *Stroke) Bounds() (geom.Rect, bool) {
	if len(s.Points) == 0 {
		return geom.Rect{}, false
	}
	return geom.Rect{
		X: s.LoBound.X,
		Y: s.LoBound.Y,
		W: s.HiBound.X - s.LoBound.X,
		H: s.HiBound.Y - s.LoBound.Y,
	}, true
}
