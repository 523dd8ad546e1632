package ink

import (
	"testing"

	"github.com/cephopod/canvas/geom"
	"github.com/cephopod/canvas/replication"
	"github.com/stretchr/testify/require"
)

func newTestDocument() *Document {
	return New(Config{Width: 1000, Height: 1000, Capacity: 4})
}

func TestDocumentCreateStroke(t *testing.T) {
	d := newTestDocument()

	pen := Pen{Color: Color{R: 255, A: 255}, Thickness: 3}
	stroke := d.CreateStroke(pen)

	require.NotEmpty(t, stroke.ID)
	require.Empty(t, stroke.Points)
	require.Equal(t, pen, stroke.Pen)
	require.False(t, stroke.Inactive)

	got, ok := d.StrokeByID(stroke.ID)
	require.True(t, ok)
	require.Equal(t, stroke, got)
}

func TestDocumentAppendPoint(t *testing.T) {
	t.Run("points and bounds track appends", func(t *testing.T) {
		d := newTestDocument()
		stroke := d.CreateStroke(Pen{})

		points := []Point{
			{X: 100, Y: 200, Time: 1, Pressure: 0.5},
			{X: 50, Y: 400, Time: 2, Pressure: 0.7},
			{X: 300, Y: 150, Time: 3, Pressure: 0.6},
		}
		for _, p := range points {
			_, ok := d.AppendPoint(stroke.ID, p)
			require.True(t, ok)
		}

		got, ok := d.StrokeByID(stroke.ID)
		require.True(t, ok)
		require.Len(t, got.Points, 3)
		require.Equal(t, points, got.Points)
		require.Equal(t, geom.Point{X: 50, Y: 150}, got.LoBound)
		require.Equal(t, geom.Point{X: 300, Y: 400}, got.HiBound)
	})

	t.Run("appended points are indexed under the stroke id", func(t *testing.T) {
		d := newTestDocument()
		stroke := d.CreateStroke(Pen{})
		d.AppendPoint(stroke.ID, Point{X: 100, Y: 200})

		var owners []string
		d.SearchPoints(geom.NewRect(90, 190, 20, 20), func(p geom.Point, ownerID string) bool {
			owners = append(owners, ownerID)
			return true
		})
		require.Equal(t, []string{stroke.ID}, owners)
	})

	t.Run("appending to an unknown stroke is a no-op", func(t *testing.T) {
		d := newTestDocument()

		stroke, ok := d.AppendPoint("nonexistent", Point{X: 1, Y: 1})
		require.False(t, ok)
		require.Nil(t, stroke)
	})
}

func TestDocumentEraseStrokes(t *testing.T) {
	d := newTestDocument()
	stroke := d.CreateStroke(Pen{})
	d.AppendPoint(stroke.ID, Point{X: 10, Y: 10})
	d.AppendPoint(stroke.ID, Point{X: 20, Y: 20})

	d.EraseStrokes(stroke.ID)

	got, ok := d.StrokeByID(stroke.ID)
	require.True(t, ok)
	require.True(t, got.Inactive)
	require.Len(t, got.Points, 2)
	require.Equal(t, geom.Point{X: 10, Y: 10}, got.LoBound)
	require.Equal(t, geom.Point{X: 20, Y: 20}, got.HiBound)

	t.Run("erased points stay indexed", func(t *testing.T) {
		var visited int
		d.SearchPoints(geom.NewRect(0, 0, 100, 100), func(geom.Point, string) bool {
			visited++
			return true
		})
		require.Equal(t, 2, visited)
	})

	t.Run("erasure does not block appends", func(t *testing.T) {
		_, ok := d.AppendPoint(stroke.ID, Point{X: 30, Y: 30})
		require.True(t, ok)

		got, ok := d.StrokeByID(stroke.ID)
		require.True(t, ok)
		require.True(t, got.Inactive)
		require.Len(t, got.Points, 3)
	})

	t.Run("erasing an unknown id is a no-op", func(t *testing.T) {
		d.EraseStrokes("nonexistent")
	})
}

func TestDocumentClear(t *testing.T) {
	d := newTestDocument()
	stroke := d.CreateStroke(Pen{})
	for i := 0; i < 10; i++ {
		d.AppendPoint(stroke.ID, Point{X: float64(i * 10), Y: float64(i * 10)})
	}

	d.Clear()

	require.Empty(t, d.Strokes())
	require.Zero(t, d.StrokeCount())

	// The index is a fresh empty root sized to the canvas.
	var rects []geom.Rect
	d.GatherViewportRects(geom.NewRect(0, 0, d.Width(), d.Height()), &rects)
	require.Equal(t, []geom.Rect{geom.NewRect(0, 0, 1000, 1000)}, rects)

	t.Run("append after clear is a no-op", func(t *testing.T) {
		_, ok := d.AppendPoint(stroke.ID, Point{X: 1, Y: 1})
		require.False(t, ok)
	})
}

func TestDocumentStrokesOrder(t *testing.T) {
	d := newTestDocument()

	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, d.CreateStroke(Pen{}).ID)
	}

	strokes := d.Strokes()
	require.Len(t, strokes, 5)
	for i, s := range strokes {
		require.Equal(t, ids[i], s.ID)
	}
}

func TestDocumentEvents(t *testing.T) {
	t.Run("events fire in registration order", func(t *testing.T) {
		d := newTestDocument()

		var calls []string
		d.HandleCreateStroke(func(*Stroke) { calls = append(calls, "first") })
		d.HandleCreateStroke(func(*Stroke) { calls = append(calls, "second") })

		d.CreateStroke(Pen{})
		require.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("stylus event carries the appended point", func(t *testing.T) {
		d := newTestDocument()
		stroke := d.CreateStroke(Pen{})

		var gotStroke *Stroke
		var gotPoint Point
		d.HandleStylus(func(s *Stroke, p Point) {
			gotStroke = s
			gotPoint = p
		})

		p := Point{X: 42, Y: 43, Time: 7, Pressure: 0.9}
		d.AppendPoint(stroke.ID, p)
		require.Equal(t, stroke.ID, gotStroke.ID)
		require.Equal(t, p, gotPoint)
	})

	t.Run("erase event carries the id list", func(t *testing.T) {
		d := newTestDocument()
		a := d.CreateStroke(Pen{})
		b := d.CreateStroke(Pen{})

		var gotIDs []string
		d.HandleEraseStrokes(func(ids []string) { gotIDs = ids })

		d.EraseStrokes(a.ID, b.ID)
		require.Equal(t, []string{a.ID, b.ID}, gotIDs)
	})

	t.Run("clear event fires", func(t *testing.T) {
		d := newTestDocument()

		var cleared bool
		d.HandleClear(func() { cleared = true })

		d.Clear()
		require.True(t, cleared)
	})

	t.Run("cancelled listener no longer fires", func(t *testing.T) {
		d := newTestDocument()

		var calls int
		cancel := d.HandleCreateStroke(func(*Stroke) { calls++ })

		d.CreateStroke(Pen{})
		cancel()
		d.CreateStroke(Pen{})
		require.Equal(t, 1, calls)
	})
}

func TestDocumentReplication(t *testing.T) {
	newReplicaPair := func() (*Document, *Document) {
		s := replication.NewSequencer()
		a := New(Config{Width: 1000, Height: 1000, Capacity: 4, Substrate: s.Join("replica-a")})
		b := New(Config{Width: 1000, Height: 1000, Capacity: 4, Substrate: s.Join("replica-b")})
		return a, b
	}

	t.Run("operations replay on the other replica", func(t *testing.T) {
		a, b := newReplicaPair()

		stroke := a.CreateStroke(Pen{Thickness: 2})
		a.AppendPoint(stroke.ID, Point{X: 10, Y: 20, Time: 1, Pressure: 0.5})

		got, ok := b.StrokeByID(stroke.ID)
		require.True(t, ok)
		require.Equal(t, stroke.Pen, got.Pen)
		require.Len(t, got.Points, 1)
	})

	t.Run("replay is deterministic", func(t *testing.T) {
		a, b := newReplicaPair()

		for i := 0; i < 3; i++ {
			d := a
			if i%2 == 1 {
				d = b
			}
			stroke := d.CreateStroke(Pen{Thickness: float64(i + 1)})
			for j := 0; j < 20; j++ {
				d.AppendPoint(stroke.ID, Point{
					X:        float64(i*100 + j),
					Y:        float64(j * 13 % 1000),
					Time:     int64(i*1000 + j),
					Pressure: 0.5,
				})
			}
		}
		a.EraseStrokes(a.Strokes()[0].ID)

		snapA, err := a.Snapshot()
		require.NoError(t, err)
		snapB, err := b.Snapshot()
		require.NoError(t, err)
		require.Equal(t, snapA, snapB)
	})

	t.Run("clear wins over a concurrent append", func(t *testing.T) {
		a, b := newReplicaPair()

		stroke := a.CreateStroke(Pen{})
		b.Clear()

		// The clear already replayed on a, so the append is a no-op on both
		// replicas.
		_, ok := a.AppendPoint(stroke.ID, Point{X: 1, Y: 1})
		require.False(t, ok)

		snapA, err := a.Snapshot()
		require.NoError(t, err)
		snapB, err := b.Snapshot()
		require.NoError(t, err)
		require.Equal(t, snapA, snapB)
	})
}

func TestDocumentIndexListenersSurviveClear(t *testing.T) {
	d := newTestDocument()

	var splits int
	d.SetIndexSplitListener(func(ne, nw, se, sw geom.Rect) { splits++ })

	var registrations int
	d.SetIndexOwnerListener(func(ownerID string, leaf geom.Rect, p geom.Point) { registrations++ })

	fill := func() {
		stroke := d.CreateStroke(Pen{})
		for i := 0; i < 5; i++ {
			d.AppendPoint(stroke.ID, Point{X: float64(i%2)*600 + 100, Y: float64(i)*150 + 50})
		}
	}

	fill()
	require.NotZero(t, splits)
	require.NotZero(t, registrations)

	splits, registrations = 0, 0
	d.Clear()
	fill()
	require.NotZero(t, splits, "split listener must survive the index rebuild")
	require.NotZero(t, registrations, "owner listener must survive the index rebuild")
}

func TestDocumentSearchPointsAcrossManyStrokes(t *testing.T) {
	d := newTestDocument()

	type pair struct {
		p  geom.Point
		id string
	}
	want := make(map[pair]int)

	for i := 0; i < 4; i++ {
		stroke := d.CreateStroke(Pen{})
		for j := 0; j < 25; j++ {
			p := Point{X: float64((i*251 + j*37) % 1000), Y: float64((i*127 + j*53) % 1000)}
			d.AppendPoint(stroke.ID, p)
			want[pair{p: p.Position(), id: stroke.ID}]++
		}
	}

	got := make(map[pair]int)
	d.SearchPoints(geom.NewRect(0, 0, 1000, 1000), func(p geom.Point, ownerID string) bool {
		got[pair{p: p, id: ownerID}]++
		return true
	})
	require.Equal(t, want, got)
}
