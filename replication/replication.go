// Package replication defines the boundary to the substrate that assigns a
// single global order to document operations across replicas.
package replication

// DeliveryHandler receives a sequenced operation payload. localOrigin
// reports whether the receiving replica submitted the operation itself.
type DeliveryHandler func(payload []byte, localOrigin bool)

// Substrate orders operations across replicas.
//
// Submit enqueues an encoded operation for sequencing and returns
// immediately. The handler registered with SetDeliveryHandler is invoked
// exactly once per operation, in the global order. The order is guaranteed
// to be consistent with each origin's submission order, so an operation that
// causally depends on an earlier one from the same origin is never delivered
// first.
type Substrate interface {
	Submit(payload []byte)
	SetDeliveryHandler(fn DeliveryHandler)
}
