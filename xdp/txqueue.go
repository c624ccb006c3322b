package xdp

import (
	"bytes"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// TxCounters contains TX queue counters.
type TxCounters struct {
	Posted    uint64 `json:"posted"`
	Completed uint64 `json:"completed"`
}

// TxQueue is the platform side of a TX queue.
type TxQueue struct {
	b        *Binding
	queueID  uint32
	state    queueState
	iq       InterfaceTxQueue
	caps     TxCapabilities
	ringSize int
	logger   *zap.Logger
	frames   *FrameRing
	comp     *CompletionRing

	nextToken  uint64 // guarded by registration lifecycle lock
	lastToken  atomic.Uint64
	nPosted    atomic.Uint64
	nCompleted atomic.Uint64
}

// QueueID returns hardware queue ID.
func (q *TxQueue) QueueID() uint32 {
	return q.queueID
}

// State returns lifecycle state.
func (q *TxQueue) State() QueueState {
	return q.state.Load()
}

// Capabilities returns capabilities declared by the interface.
func (q *TxQueue) Capabilities() TxCapabilities {
	return q.caps
}

// Activate allocates frame and completion rings and activates the interface queue.
func (q *TxQueue) Activate() error {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := q.state.expect("activate", QueueStateCreated); e != nil {
		return e
	}

	q.frames = NewRing[Frame](q.ringSize)
	q.comp = NewRing[uint64](q.ringSize)
	q.iq.Activate(q, &TxQueueConfigActivate{FrameRing: q.frames, CompletionRing: q.comp, Capabilities: q.caps})
	q.state.Store(QueueStateActivated)
	q.logger.Info("TX queue activated", zap.Int("ring", q.frames.Capacity()))
	reg.platform.emitQueue(reg.ifIndex, q.queueID, DirectionTx, QueueActivated)
	return nil
}

// Delete releases the interface queue.
func (q *TxQueue) Delete() error {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	return q.deleteLocked()
}

func (q *TxQueue) deleteLocked() error {
	if e := q.state.expect("delete", QueueStateCreated, QueueStateActivated); e != nil {
		return e
	}
	q.iq.Delete()
	q.state.Store(QueueStateDeleted)
	delete(q.b.txq, q.queueID)
	q.logger.Info("TX queue deleted", zap.Uint64("posted", q.nPosted.Load()), zap.Uint64("completed", q.nCompleted.Load()))
	reg := q.b.reg
	reg.platform.emitQueue(reg.ifIndex, q.queueID, DirectionTx, QueueDeleted)
	return nil
}

// Transmit posts a frame on the TX ring and notifies the interface.
// Fails with StatusResourceExhausted if the ring is full, or StatusInvalidArgument if the frame
// exceeds declared capabilities.
func (q *TxQueue) Transmit(payload []byte) (token uint64, e error) {
	reg := q.b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := q.state.expect("transmit on", QueueStateActivated); e != nil {
		return 0, e
	}
	if len(payload) == 0 || len(payload) > int(q.caps.MaxFrameSize) {
		return 0, fmt.Errorf("%w: frame length %d outside (0,%d]", StatusInvalidArgument, len(payload), q.caps.MaxFrameSize)
	}

	frame := MakeFrame(bytes.Clone(payload))
	frame.QueueID = q.queueID
	frame.Token = q.nextToken + 1
	if !q.frames.Produce(frame) {
		return 0, fmt.Errorf("%w: TX ring full", StatusResourceExhausted)
	}
	q.nextToken++
	q.nPosted.Add(1)
	q.iq.NotifyQueue(NotifyTx)
	return frame.Token, nil
}

// FlushTransmit reclaims entries the interface placed on the completion ring.
// This is a data path function.
func (q *TxQueue) FlushTransmit() {
	n := 0
	for {
		token, ok := q.comp.Peek()
		if !ok {
			break
		}
		q.lastToken.Store(*token)
		q.comp.Consume(1)
		n++
	}
	q.nCompleted.Add(uint64(n))
}

// LastCompleted returns the token of the most recently reclaimed completion.
func (q *TxQueue) LastCompleted() uint64 {
	return q.lastToken.Load()
}

// Counters returns counters.
func (q *TxQueue) Counters() TxCounters {
	return TxCounters{
		Posted:    q.nPosted.Load(),
		Completed: q.nCompleted.Load(),
	}
}
