package xdp

import (
	"fmt"
	"math/bits"
	"sync/atomic"
)

// Ring is a single-producer single-consumer ring with free-running indexes.
// Producer methods and consumer methods may run on different goroutines without locking.
type Ring[T any] struct {
	mask     uint32
	slots    []T
	producer atomic.Uint32
	consumer atomic.Uint32
}

// NewRing creates a Ring.
// capacity is rounded up to a power of two.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 || capacity > 1<<24 {
		logger.Panic(fmt.Sprintf("ring capacity %d out of range", capacity))
	}
	n := 1 << bits.Len32(uint32(capacity-1))
	return &Ring[T]{
		mask:  uint32(n - 1),
		slots: make([]T, n),
	}
}

// Capacity returns ring capacity.
func (r *Ring[T]) Capacity() int {
	return len(r.slots)
}

// Count returns number of produced and not yet consumed entries.
func (r *Ring[T]) Count() int {
	return int(r.producer.Load() - r.consumer.Load())
}

// Free returns number of free slots.
func (r *Ring[T]) Free() int {
	return r.Capacity() - r.Count()
}

// ProducerIndex returns the free-running producer index.
func (r *Ring[T]) ProducerIndex() uint32 {
	return r.producer.Load()
}

// ConsumerIndex returns the free-running consumer index.
func (r *Ring[T]) ConsumerIndex() uint32 {
	return r.consumer.Load()
}

// At returns the slot of a free-running index.
func (r *Ring[T]) At(index uint32) *T {
	return &r.slots[index&r.mask]
}

// Produce appends an entry.
// Returns false if the ring is full.
// This is a producer function.
func (r *Ring[T]) Produce(item T) bool {
	prod := r.producer.Load()
	if prod-r.consumer.Load() >= uint32(len(r.slots)) {
		return false
	}
	r.slots[prod&r.mask] = item
	r.producer.Store(prod + 1)
	return true
}

// Peek returns the oldest unconsumed entry.
// This is a consumer function.
func (r *Ring[T]) Peek() (item *T, ok bool) {
	cons := r.consumer.Load()
	if cons == r.producer.Load() {
		return nil, false
	}
	return r.At(cons), true
}

// Consume releases up to n oldest entries and returns how many were released.
// This is a consumer function.
func (r *Ring[T]) Consume(n int) int {
	cons := r.consumer.Load()
	avail := int(r.producer.Load() - cons)
	if n > avail {
		n = avail
	}
	var zero T
	for i := 0; i < n; i++ {
		*r.At(cons + uint32(i)) = zero
	}
	r.consumer.Store(cons + uint32(n))
	return n
}

// FrameRing carries frame descriptors.
type FrameRing = Ring[Frame]

// CompletionRing carries tokens of completed TX frames.
type CompletionRing = Ring[uint64]
