package main

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/cephopod/canvas/featureflag"
	"github.com/cephopod/canvas/geom"
	"github.com/cephopod/canvas/ink"
	"github.com/cephopod/canvas/journal"
	"github.com/cephopod/canvas/relay"
	"github.com/cephopod/canvas/replication"
)

// boardStore lazily creates one board per identifier. Each board pairs a
// relay server with a server-side document replica that applies every
// sequenced operation, so snapshots can be served and journaled without a
// client connection.
type boardStore struct {
	CanvasWidth   float64
	CanvasHeight  float64
	IndexCapacity int
	EntryChan     chan journal.Entry
	FeatureFlags  featureflag.FeatureFlag

	initOnce sync.Once
	mutex    sync.Mutex
	boards   map[string]*board
}

type board struct {
	ID       string
	Document *ink.Document
	Relay    *relay.Server
}

func (s *boardStore) init() {
	s.boards = make(map[string]*board)
}

func (s *boardStore) Get(id string) *board {
	s.initOnce.Do(s.init)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if b, ok := s.boards[id]; ok {
		return b
	}

	b := s.newBoard(id)
	s.boards[id] = b
	return b
}

// Snapshot serializes the server-side replica of a board.
func (s *boardStore) Snapshot(id string) ([]byte, error) {
	s.initOnce.Do(s.init)

	s.mutex.Lock()
	b, ok := s.boards[id]
	s.mutex.Unlock()

	if !ok {
		return nil, errors.New("board not found").
			WithTag("board_id", id)
	}
	return b.Document.Snapshot()
}

func (s *boardStore) newBoard(id string) *board {
	substrate := &tapSubstrate{}

	doc := ink.New(ink.Config{
		Width:     s.CanvasWidth,
		Height:    s.CanvasHeight,
		Capacity:  s.IndexCapacity,
		Substrate: substrate,
	})

	s.FeatureFlags.IfNotSet(featureflag.FlagDisablePartitionDiagnostics, func() {
		doc.SetIndexSplitListener(func(ne, nw, se, sw geom.Rect) {
			logs.WithTag("board_id", id).
				WithTag("ne", ne).
				WithTag("nw", nw).
				WithTag("se", se).
				WithTag("sw", sw).
				Debug("spatial index region split")
		})
	})

	server := relay.NewServer(id)
	server.SetTap(func(seq uint64, origin string, payload []byte) {
		s.FeatureFlags.IfSet(featureflag.FlagVerboseOpLogs, func() {
			logs.WithTag("board_id", id).
				WithTag("seq", seq).
				WithTag("origin", origin).
				WithTag("payload", string(payload)).
				Debug("sequenced operation")
		})

		substrate.deliver(payload)

		select {
		case s.EntryChan <- journal.Entry{
			BoardID: id,
			Seq:     seq,
			Origin:  origin,
			Payload: payload,
		}:

		default:
			logs.WithTag("board_id", id).
				WithTag("seq", seq).
				Warn("journal queue is full, dropping entry")
		}
	})

	return &board{
		ID:       id,
		Document: doc,
		Relay:    server,
	}
}

// tapSubstrate feeds tapped relay frames into a server-side document. The
// server never originates operations, so Submit is a no-op and every
// delivery is remote.
type tapSubstrate struct {
	mutex   sync.RWMutex
	handler replication.DeliveryHandler
}

func (s *tapSubstrate) Submit(payload []byte) {}

func (s *tapSubstrate) SetDeliveryHandler(fn replication.DeliveryHandler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.handler = fn
}

func (s *tapSubstrate) deliver(payload []byte) {
	s.mutex.RLock()
	handler := s.handler
	s.mutex.RUnlock()

	if handler != nil {
		handler(payload, false)
	}
}
