package ink

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opKindLabel = "op_kind"
	originLabel = "origin"
	reasonLabel = "reason"

	originLocal    = "local"
	originReplayed = "replayed"
)

var (
	documentOpsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_ops_applied_total",
		Help: "The number of document operations applied.",
	}, []string{
		opKindLabel,
		originLabel,
	})

	documentOpsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "document_ops_skipped_total",
		Help: "The number of document operations skipped as benign no-ops.",
	}, []string{
		opKindLabel,
		reasonLabel,
	})
)

func instrumentOpApplied(opKind, origin string) {
	documentOpsApplied.
		With(prometheus.Labels{opKindLabel: opKind, originLabel: origin}).
		Inc()
}

func instrumentOpSkipped(opKind, reason string) {
	documentOpsSkipped.
		With(prometheus.Labels{opKindLabel: opKind, reasonLabel: reason}).
		Inc()
}
