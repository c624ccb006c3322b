package xdp

import (
	"bytes"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// RxCounters contains RX queue counters.
type RxCounters struct {
	Inspected  uint64 `json:"inspected"`
	Dropped    uint64 `json:"dropped"`
	Passed     uint64 `json:"passed"`
	Redirected uint64 `json:"redirected"`
	Delivered  uint64 `json:"delivered"`
}

// RxQueue is the platform side of an RX queue.
type RxQueue struct {
	b        *Binding
	queueID  uint32
	state    queueState
	iq       InterfaceRxQueue
	caps     RxCapabilities
	program  Program
	ringSize int
	logger   *zap.Logger
	ring     *FrameRing

	// data path only
	inspected uint32
	batch     [][]byte
	scratch   []byte

	deliverLock sync.Mutex
	delivered   [][]byte

	nInspected, nDropped, nPassed, nRedirected, nDelivered atomic.Uint64
}

// QueueID returns hardware queue ID.
func (q *RxQueue) QueueID() uint32 {
	return q.queueID
}

// State returns lifecycle state.
func (q *RxQueue) State() QueueState {
	return q.state.Load()
}

// Capabilities returns capabilities declared by the interface.
func (q *RxQueue) Capabilities() RxCapabilities {
	return q.caps
}

// Activate allocates the frame ring and activates the interface queue.
// Fails with StatusInvalidDeviceState unless the queue is in Created state.
func (q *RxQueue) Activate() error {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := q.state.expect("activate", QueueStateCreated); e != nil {
		return e
	}

	q.ring = NewRing[Frame](q.ringSize)
	q.iq.Activate(q, &RxQueueConfigActivate{Ring: q.ring, Capabilities: q.caps})
	q.state.Store(QueueStateActivated)
	q.logger.Info("RX queue activated", zap.Int("ring", q.ring.Capacity()))
	reg.platform.emitQueue(reg.ifIndex, q.queueID, DirectionRx, QueueActivated)
	return nil
}

// Delete releases the interface queue.
// Fails with StatusInvalidDeviceState if the queue is already deleted.
func (q *RxQueue) Delete() error {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	return q.deleteLocked()
}

func (q *RxQueue) deleteLocked() error {
	if e := q.state.expect("delete", QueueStateCreated, QueueStateActivated); e != nil {
		return e
	}
	q.iq.Delete()
	q.state.Store(QueueStateDeleted)
	delete(q.b.rxq, q.queueID)
	q.logger.Info("RX queue deleted")
	reg := q.b.reg
	reg.platform.emitQueue(reg.ifIndex, q.queueID, DirectionRx, QueueDeleted)
	return nil
}

// NotifyQueue forwards a notification to the interface.
func (q *RxQueue) NotifyQueue(flags NotifyFlags) error {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := q.state.expect("notify", QueueStateActivated); e != nil {
		return e
	}
	q.iq.NotifyQueue(flags)
	return nil
}

// Receive inspects the next uninspected frame on the ring and returns its action.
// This is a data path function. Panics if no frame awaits inspection.
func (q *RxQueue) Receive() RxAction {
	if q.inspected == q.ring.ProducerIndex() {
		q.logger.Panic("Receive without pending frame")
	}
	frame := q.ring.At(q.inspected)
	q.inspected++
	q.nInspected.Add(1)

	payload := q.payload(frame)
	act := q.program(payload)
	switch act {
	case RxActionRedirect:
		q.batch = append(q.batch, bytes.Clone(payload))
		q.nRedirected.Add(1)
	case RxActionPass:
		q.nPassed.Add(1)
	default:
		act = RxActionDrop
		q.nDropped.Add(1)
	}
	frame.Action = act
	return act
}

func (q *RxQueue) payload(frame *Frame) []byte {
	if len(frame.Buffers) == 1 {
		return frame.Buffers[0].Payload()
	}
	q.scratch = q.scratch[:0]
	for _, b := range frame.Buffers {
		q.scratch = append(q.scratch, b.Payload()...)
	}
	return q.scratch
}

// ReceiveBatch inspects every uninspected frame on the ring, storing actions in Frame.Action.
// This is a data path function.
func (q *RxQueue) ReceiveBatch() {
	for q.inspected != q.ring.ProducerIndex() {
		q.Receive()
	}
}

// FlushReceive publishes frames redirected since the last flush.
// This is a data path function.
func (q *RxQueue) FlushReceive() {
	if len(q.batch) == 0 {
		return
	}
	q.deliverLock.Lock()
	q.delivered = append(q.delivered, q.batch...)
	q.deliverLock.Unlock()
	q.nDelivered.Add(uint64(len(q.batch)))
	clear(q.batch)
	q.batch = q.batch[:0]
}

// Drain returns and removes delivered frames, oldest first.
func (q *RxQueue) Drain() (frames [][]byte) {
	q.deliverLock.Lock()
	defer q.deliverLock.Unlock()
	frames, q.delivered = q.delivered, nil
	return frames
}

// Counters returns counters.
func (q *RxQueue) Counters() RxCounters {
	return RxCounters{
		Inspected:  q.nInspected.Load(),
		Dropped:    q.nDropped.Load(),
		Passed:     q.nPassed.Load(),
		Redirected: q.nRedirected.Load(),
		Delivered:  q.nDelivered.Load(),
	}
}
