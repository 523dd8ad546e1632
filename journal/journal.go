// Package journal records the sequenced operations applied to each board
// and periodically persists board snapshots.
package journal

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
)

// Entry is one sequenced operation applied to a board.
type Entry struct {
	BoardID string
	Seq     uint64
	Origin  string
	Payload []byte
}

// Recorder consumes sequenced operations from a buffered channel, keeps a
// replayable per-board log in memory and writes board snapshots at an
// interval. Snapshots are the only persisted artifact; the per-board log
// exists for diagnostics and replay.
type Recorder struct {
	// Directory where board snapshots are written. Empty disables writes.
	SnapshotDir string

	// The duration between each snapshot pass.
	SnapshotInterval time.Duration

	// Channel for incoming entries. Buffered by the caller.
	EntryChan chan Entry

	// Returns the serialized snapshot of a board.
	SnapshotSource func(boardID string) ([]byte, error)

	mutex   sync.RWMutex
	entries map[string][]Entry
}

// HandleEntries consumes entries until ctx is cancelled.
func (r *Recorder) HandleEntries(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return

			case entry := <-r.EntryChan:
				r.record(entry)
			}
		}
	}()
}

// StartSnapshotting writes a snapshot of every journaled board at each
// interval until ctx is cancelled.
func (r *Recorder) StartSnapshotting(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(r.SnapshotInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				if err := r.SnapshotNow(); err != nil {
					logs.Warn(errors.New("snapshot pass failed").Wrap(err))
				}
			}
		}
	}()
}

// SnapshotNow writes a snapshot of every journaled board, returning the
// first error encountered after trying them all.
func (r *Recorder) SnapshotNow() error {
	if r.SnapshotDir == "" || r.SnapshotSource == nil {
		return nil
	}

	var firstErr error
	for _, boardID := range r.boardIDs() {
		if err := r.writeSnapshot(boardID); err != nil {
			instrumentSnapshotError(err)
			logs.Warn(errors.New("writing board snapshot failed").
				WithTag("board_id", boardID).
				Wrap(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Entries returns the journaled entries of a board in sequence order.
func (r *Recorder) Entries(boardID string) []Entry {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	entries := make([]Entry, len(r.entries[boardID]))
	copy(entries, r.entries[boardID])
	return entries
}

func (r *Recorder) record(entry Entry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.entries == nil {
		r.entries = make(map[string][]Entry)
	}
	r.entries[entry.BoardID] = append(r.entries[entry.BoardID], entry)

	instrumentEntryRecorded(entry.BoardID)
}

func (r *Recorder) boardIDs() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

func (r *Recorder) writeSnapshot(boardID string) error {
	start := time.Now()

	data, err := r.SnapshotSource(boardID)
	if err != nil {
		return errors.New("serializing board failed").Wrap(err)
	}

	name := filepath.Join(r.SnapshotDir, boardID+".json")
	if err := os.WriteFile(name, data, 0644); err != nil {
		return errors.New("writing snapshot file failed").
			WithTag("file_name", name).
			Wrap(err)
	}

	instrumentSnapshotWrite(boardID, start)
	return nil
}
