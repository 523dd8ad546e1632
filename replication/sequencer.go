package replication

import (
	"sync"
)

// Sequencer is an in-process reference substrate. It assigns a total order
// to submitted operations and fans each one out synchronously to every
// joined replica, in join order, flagging the submitting replica as the
// local origin.
//
// Holding a single mutex across sequencing and delivery is what makes the
// order total: two concurrent submissions are delivered to every replica in
// the same relative order.
type Sequencer struct {
	mutex    sync.Mutex
	seq      uint64
	replicas []*Replica
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Join registers a new replica endpoint identified by originID and returns
// its substrate handle.
func (s *Sequencer) Join(originID string) *Replica {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	r := &Replica{
		sequencer: s,
		originID:  originID,
	}
	s.replicas = append(s.replicas, r)
	return r
}

// Seq returns the number of operations sequenced so far.
func (s *Sequencer) Seq() uint64 {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.seq
}

func (s *Sequencer) sequence(origin *Replica, payload []byte) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.seq++
	for _, r := range s.replicas {
		deliver := r.deliveryHandler()
		if deliver == nil {
			continue
		}
		deliver(payload, r == origin)
	}
}

// Replica is one endpoint of a Sequencer. It implements Substrate.
type Replica struct {
	sequencer *Sequencer
	originID  string

	mutex   sync.RWMutex
	deliver DeliveryHandler
}

func (r *Replica) OriginID() string {
	return r.originID
}

func (r *Replica) Submit(payload []byte) {
	r.sequencer.sequence(r, payload)
}

func (r *Replica) SetDeliveryHandler(fn DeliveryHandler) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.deliver = fn
}

func (r *Replica) deliveryHandler() DeliveryHandler {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return r.deliver
}
