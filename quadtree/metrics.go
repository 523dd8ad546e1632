package quadtree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	quadtreeSplits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_splits_total",
		Help: "The number of leaf region splits.",
	})

	quadtreeInsertedPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_inserted_points_total",
		Help: "The number of points inserted into the spatial index.",
	})

	quadtreeDroppedPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quadtree_dropped_points_total",
		Help: "The number of points that fit no region during distribution.",
	})
)

func instrumentSplit() {
	quadtreeSplits.Inc()
}

func instrumentInsert() {
	quadtreeInsertedPoints.Inc()
}

func instrumentDroppedPoint() {
	quadtreeDroppedPoints.Inc()
}
