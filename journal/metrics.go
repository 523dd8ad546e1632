package journal

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	boardIDLabel = "board_id"
	errTypeLabel = "error_type"
)

var (
	journalEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_entries_total",
		Help: "The number of sequenced operations journaled.",
	}, []string{
		boardIDLabel,
	})

	journalSnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_snapshot_writes_total",
		Help: "The number of board snapshots written.",
	}, []string{
		boardIDLabel,
	})

	journalSnapshotLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "journal_snapshot_write_latency",
		Help: "The time to serialize and write a board snapshot.",
	}, []string{
		boardIDLabel,
	})

	journalSnapshotErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "journal_snapshot_write_errors",
		Help: "The errors that occurred while writing a board snapshot.",
	}, []string{
		errTypeLabel,
	})
)

func instrumentEntryRecorded(boardID string) {
	journalEntries.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Inc()
}

func instrumentSnapshotWrite(boardID string, start time.Time) {
	journalSnapshotWrites.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Inc()
	journalSnapshotLatency.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Observe(time.Since(start).Seconds())
}

func instrumentSnapshotError(err error) {
	journalSnapshotErrors.
		With(prometheus.Labels{errTypeLabel: errors.Type(err)}).
		Inc()
}
