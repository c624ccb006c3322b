package fnmp

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/xdp"
)

const maxRxFragments = 16

// nativeRxQueue is the interface side of an XDP RX queue.
type nativeRxQueue struct {
	nat  *Native
	id   uint32
	q    *xdp.RxQueue
	ring *xdp.FrameRing
}

func (nq *nativeRxQueue) Activate(q *xdp.RxQueue, cfg *xdp.RxQueueConfigActivate) {
	nq.q, nq.ring = q, cfg.Ring
	if !nq.nat.rxq[nq.id].CompareAndSwap(nil, nq) {
		nq.nat.logger.Panic("RX queue already on data path", zap.Uint32("queue", nq.id))
	}
	nq.nat.logger.Debug("RX queue on data path", zap.Uint32("queue", nq.id))
}

func (nq *nativeRxQueue) Delete() {
	nat := nq.nat
	if nat.rxq[nq.id].CompareAndSwap(nq, nil) {
		nat.a.poll.Barrier()
	}
	nat.slotLock.Lock()
	if nat.rxSlots[nq.id] == nq {
		nat.rxSlots[nq.id] = nil
	}
	nat.slotLock.Unlock()
	nat.logger.Debug("RX queue deleted", zap.Uint32("queue", nq.id))
}

func (nq *nativeRxQueue) NotifyQueue(flags xdp.NotifyFlags) {
	nq.nat.a.poll.Request()
}

// receive produces consecutive frames of job that target this queue onto the ring, has the
// platform inspect them, and acts on the results.
// This runs in the bounded-latency context.
func (nq *nativeRxQueue) receive(job *rxJob, budget int) (n, absorbed int) {
	a := nq.nat.a
	start := nq.ring.ProducerIndex()
	for n < budget && job.pos < len(job.frames) {
		frame := &job.frames[job.pos]
		if job.opts.target(frame) != nq.id || !nq.ring.Produce(*frame) {
			break
		}
		job.pos++
		n++
	}
	if n == 0 {
		a.logger.Panic("RX ring full", zap.Uint32("queue", nq.id))
	}

	if job.opts.Flags&RxFlushLowResources != 0 {
		for i := 0; i < n; i++ {
			nq.q.Receive()
		}
	} else {
		nq.q.ReceiveBatch()
	}

	for i := 0; i < n; i++ {
		frame := nq.ring.At(start + uint32(i))
		switch frame.Action {
		case xdp.RxActionPass:
			a.indicate(frame)
		case xdp.RxActionRedirect:
			absorbed++
		default:
			a.cnt.rxDropped.Add(1)
		}
	}
	nq.ring.Consume(n)
	nq.q.FlushReceive()
	a.cnt.rxAbsorbed.Add(uint64(absorbed))
	return n, absorbed
}

// nativeTxQueue is the interface side of an XDP TX queue.
type nativeTxQueue struct {
	nat     *Native
	id      uint32
	q       *xdp.TxQueue
	frames  *xdp.FrameRing
	comp    *xdp.CompletionRing
	deleted atomic.Bool

	lock    sync.Mutex
	pending []uint64
}

func (nq *nativeTxQueue) Activate(q *xdp.TxQueue, cfg *xdp.TxQueueConfigActivate) {
	nq.q, nq.frames, nq.comp = q, cfg.FrameRing, cfg.CompletionRing
	if !nq.nat.txq[nq.id].CompareAndSwap(nil, nq) {
		nq.nat.logger.Panic("TX queue already on data path", zap.Uint32("queue", nq.id))
	}
}

func (nq *nativeTxQueue) Delete() {
	nat := nq.nat
	nq.deleted.Store(true)
	if nat.txq[nq.id].CompareAndSwap(nq, nil) {
		nat.a.poll.Barrier()
	}
	nat.slotLock.Lock()
	if nat.txSlots[nq.id] == nq {
		nat.txSlots[nq.id] = nil
	}
	nat.slotLock.Unlock()
	nat.logger.Debug("TX queue deleted", zap.Uint32("queue", nq.id))
}

func (nq *nativeTxQueue) NotifyQueue(flags xdp.NotifyFlags) {
	nq.nat.a.poll.Request()
}

func (nq *nativeTxQueue) addPending(token uint64) {
	nq.lock.Lock()
	defer nq.lock.Unlock()
	nq.pending = append(nq.pending, token)
}

func (nq *nativeTxQueue) takePending() (tokens []uint64) {
	nq.lock.Lock()
	defer nq.lock.Unlock()
	tokens, nq.pending = nq.pending, nil
	return tokens
}

// poll consumes up to budget posted frames and posts completions.
// consumed counts both captured and transmitted frames.
// This runs in the bounded-latency context.
func (nq *nativeTxQueue) poll(budget int) (consumed, completed, transmitted int) {
	nat := nq.nat
	a := nat.a
	for ; consumed < budget; consumed++ {
		frame, ok := nq.frames.Peek()
		if !ok {
			break
		}
		tf := &txFrame{data: frame.Bytes(), token: frame.Token, nq: nq}
		nq.frames.Consume(1)
		a.cnt.txSent.Add(1)
		if nat.tx.offer(tf) {
			a.cnt.txCaptured.Add(1)
			continue
		}
		a.cnt.txTransmitted.Add(1)
		transmitted++
		nq.post(tf.token)
		completed++
	}

	for _, token := range nq.takePending() {
		nq.post(token)
		completed++
	}

	if completed > 0 {
		nq.q.FlushTransmit()
		a.cnt.txCompleted.Add(uint64(completed))
	}
	return consumed, completed, transmitted
}

func (nq *nativeTxQueue) post(token uint64) {
	for !nq.comp.Produce(token) {
		nq.q.FlushTransmit()
	}
}
