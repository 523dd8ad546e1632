package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	boardIDLabel = "board_id"
)

var (
	relayConnectedClients = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_connected_clients",
		Help: "The number of connected relay clients.",
	}, []string{
		boardIDLabel,
	})

	relayFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_frames_total",
		Help: "The number of operation frames sequenced and relayed.",
	}, []string{
		boardIDLabel,
	})

	relayDroppedFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_dropped_frames_total",
		Help: "The number of frames dropped because a client send queue was full.",
	}, []string{
		boardIDLabel,
	})
)

func instrumentClientConnected(boardID string) {
	relayConnectedClients.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Inc()
}

func instrumentClientDisconnected(boardID string) {
	relayConnectedClients.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Dec()
}

func instrumentFrameRelayed(boardID string) {
	relayFrames.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Inc()
}

func instrumentFrameDropped(boardID string) {
	relayDroppedFrames.
		With(prometheus.Labels{boardIDLabel: boardID}).
		Inc()
}
