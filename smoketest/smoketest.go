// Package smoketest verifies end to end that two replicated documents
// converge when driven through a shared ordering substrate.
package smoketest

import (
	"bytes"
	"context"
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cephopod/canvas/ink"
	"github.com/cephopod/canvas/replication"
)

type Options struct {
	Width           float64
	Height          float64
	Strokes         int
	PointsPerStroke int
}

func (o *Options) normalize() {
	if o.Width <= 0 {
		o.Width = 1000
	}
	if o.Height <= 0 {
		o.Height = 1000
	}
	if o.Strokes <= 0 {
		o.Strokes = 8
	}
	if o.PointsPerStroke <= 0 {
		o.PointsPerStroke = 32
	}
}

// Run drives two fresh document replicas through stroke creation, point
// appends and a partial erase, then checks that their snapshots are byte
// identical.
func Run(ctx context.Context, opts Options) error {
	opts.normalize()

	sequencer := replication.NewSequencer()

	docA := ink.New(ink.Config{
		Width:     opts.Width,
		Height:    opts.Height,
		Substrate: sequencer.Join("smoke-a"),
	})
	docB := ink.New(ink.Config{
		Width:     opts.Width,
		Height:    opts.Height,
		Substrate: sequencer.Join("smoke-b"),
	})

	pen := ink.Pen{
		Color:     ink.Color{R: 30, G: 30, B: 30, A: 255},
		Thickness: 2,
	}

	var strokeIDs []string
	for i := 0; i < opts.Strokes; i++ {
		doc := docA
		if i%2 == 1 {
			doc = docB
		}

		stroke := doc.CreateStroke(pen)
		strokeIDs = append(strokeIDs, stroke.ID)

		for j := 0; j < opts.PointsPerStroke; j++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			x := float64(i*opts.PointsPerStroke+j) * opts.Width /
				float64(opts.Strokes*opts.PointsPerStroke)
			y := float64(j) * opts.Height / float64(opts.PointsPerStroke)

			if _, ok := doc.AppendPoint(stroke.ID, ink.Point{
				X:        x,
				Y:        y,
				Time:     int64(i*opts.PointsPerStroke + j),
				Pressure: 0.5,
			}); !ok {
				return errors.New("appending point during smoke test failed").
					WithTag("stroke_id", stroke.ID)
			}
		}
	}

	docA.EraseStrokes(strokeIDs[:len(strokeIDs)/2]...)

	if docA.StrokeCount() != docB.StrokeCount() {
		return errors.New("replicas diverged on stroke count").
			WithTag("replica_a", docA.StrokeCount()).
			WithTag("replica_b", docB.StrokeCount())
	}

	snapA, err := docA.Snapshot()
	if err != nil {
		return errors.New("serializing first replica failed").Wrap(err)
	}
	snapB, err := docB.Snapshot()
	if err != nil {
		return errors.New("serializing second replica failed").Wrap(err)
	}

	if !bytes.Equal(snapA, snapB) {
		return errors.New("replica snapshots diverged").
			WithTag("strokes", opts.Strokes).
			WithTag("points_per_stroke", opts.PointsPerStroke)
	}
	return nil
}

// HandleSmokeTest runs the convergence check in the background and reports
// acceptance immediately.
func HandleSmokeTest(ctx context.Context, opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := Run(ctx, opts); err != nil {
				logs.Warn(errors.New("smoke test failed").Wrap(err))
				return
			}
			logs.Info("smoke test succeeded")
		}()

		w.WriteHeader(http.StatusOK)
	}
}
