package geom

import "math"

// Point is a position on the canvas plane.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func NewRect(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, W: w, H: h}
}

// ContainsPoint reports whether p falls within r. Bounds are half-open on
// both axes so that four equal sub-rectangles own their shared edge points
// exactly once.
func (r Rect) ContainsPoint(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W &&
		p.Y >= r.Y && p.Y < r.Y+r.H
}

// Intersection returns the overlapping sub-rectangle of r and o. The second
// return value is false when there is no overlap; zero-area contact along an
// edge counts as no overlap.
func (r Rect) Intersection(o Rect) (Rect, bool) {
	x0 := math.Max(r.X, o.X)
	y0 := math.Max(r.Y, o.Y)
	x1 := math.Min(r.X+r.W, o.X+o.W)
	y1 := math.Min(r.Y+r.H, o.Y+o.H)

	if x1-x0 <= 0 || y1-y0 <= 0 {
		return Rect{}, false
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}, true
}

// Intersects reports whether r and o share a non-empty overlap.
func (r Rect) Intersects(o Rect) bool {
	_, ok := r.Intersection(o)
	return ok
}

// Area returns the surface of the rectangle.
func (r Rect) Area() float64 {
	return r.W * r.H
}
