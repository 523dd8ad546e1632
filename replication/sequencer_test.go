package replication

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSequencerDeliversInTotalOrder(t *testing.T) {
	s := NewSequencer()

	a := s.Join("replica-a")
	b := s.Join("replica-b")

	var aSeen, bSeen []string
	a.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		aSeen = append(aSeen, string(payload))
	})
	b.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		bSeen = append(bSeen, string(payload))
	})

	a.Submit([]byte("op-1"))
	b.Submit([]byte("op-2"))
	a.Submit([]byte("op-3"))

	require.Equal(t, []string{"op-1", "op-2", "op-3"}, aSeen)
	require.Equal(t, aSeen, bSeen)
	require.Equal(t, uint64(3), s.Seq())
}

func TestSequencerFlagsLocalOrigin(t *testing.T) {
	s := NewSequencer()

	a := s.Join("replica-a")
	b := s.Join("replica-b")

	var aLocal, bLocal []bool
	a.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		aLocal = append(aLocal, localOrigin)
	})
	b.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		bLocal = append(bLocal, localOrigin)
	})

	a.Submit([]byte("op-1"))
	b.Submit([]byte("op-2"))

	require.Equal(t, []bool{true, false}, aLocal)
	require.Equal(t, []bool{false, true}, bLocal)
}

func TestSequencerSkipsReplicaWithoutHandler(t *testing.T) {
	s := NewSequencer()

	a := s.Join("replica-a")
	s.Join("replica-b")

	var delivered int
	a.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		delivered++
	})

	a.Submit([]byte("op-1"))
	require.Equal(t, 1, delivered)
	require.Equal(t, uint64(1), s.Seq())
}

func TestSequencerConcurrentSubmissions(t *testing.T) {
	s := NewSequencer()

	a := s.Join("replica-a")
	b := s.Join("replica-b")

	var mutex sync.Mutex
	var aSeen, bSeen []string
	a.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		mutex.Lock()
		defer mutex.Unlock()
		aSeen = append(aSeen, string(payload))
	})
	b.SetDeliveryHandler(func(payload []byte, localOrigin bool) {
		mutex.Lock()
		defer mutex.Unlock()
		bSeen = append(bSeen, string(payload))
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			a.Submit([]byte("from-a"))
		}()
		go func() {
			defer wg.Done()
			b.Submit([]byte("from-b"))
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, both replicas observed the same
	// common order.
	require.Equal(t, aSeen, bSeen)
	require.Equal(t, uint64(100), s.Seq())
}
