package fnmp

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/xdp"
)

// handle contains state common to generic and native handles.
type handle struct {
	a      *Adapter
	kind   string
	nat    *Native
	logger *zap.Logger
	rx     rxBacklog
	tx     txContext
	closed atomic.Bool
}

func (h *handle) init(a *Adapter, kind string, nat *Native) {
	h.a, h.kind, h.nat = a, kind, nat
	h.logger = a.logger.With(zap.String("handle", kind))
}

// Adapter returns the adapter.
func (h *handle) Adapter() *Adapter {
	return h.a
}

func (h *handle) checkOpen() error {
	if h.closed.Load() {
		return fmt.Errorf("%w: %s handle closed", xdp.StatusInvalidDeviceState, h.kind)
	}
	return nil
}

// RxEnqueue appends a frame to the RX backlog.
// Fails with StatusInvalidArgument if the frame has no buffer or a data region exceeds its buffer.
func (h *handle) RxEnqueue(frame xdp.Frame) error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	if !frame.Valid() {
		return fmt.Errorf("%w: malformed RX frame", xdp.StatusInvalidArgument)
	}
	if frame.QueueID >= uint32(h.a.cfg.RxQueues) {
		return fmt.Errorf("%w: RX queue %d of %d", xdp.StatusInvalidArgument, frame.QueueID, h.a.cfg.RxQueues)
	}
	h.rx.add(frame)
	h.a.cnt.rxEnqueued.Add(1)
	return nil
}

// RxFlush indicates every backlog frame and waits for the poll to process them.
func (h *handle) RxFlush(opts RxFlushOptions) error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	frames := h.rx.take()
	h.logger.Debug("RX flush", zap.Int("frames", len(frames)), zap.Uint32("flags", uint32(opts.Flags)))
	h.a.flushRx(frames, opts, h.nat)
	return nil
}

// RxBacklog returns number of frames awaiting flush.
func (h *handle) RxBacklog() int {
	return h.rx.len()
}

// TxSetFilter installs the TX capture filter. Zero length disables capture.
func (h *handle) TxSetFilter(pattern, mask []byte) error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	return h.tx.setFilter(pattern, mask)
}

// TxGetFrame returns a copy of the captured frame at index.
func (h *handle) TxGetFrame(index uint32) (xdp.Frame, error) {
	if e := h.checkOpen(); e != nil {
		return xdp.Frame{}, e
	}
	return h.tx.getFrame(index)
}

// TxDequeueFrame moves the captured frame at index to the completion queue.
func (h *handle) TxDequeueFrame(index uint32) error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	return h.tx.dequeue(index)
}

// TxFlush completes every dequeued frame.
func (h *handle) TxFlush() error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	h.tx.flush()
	return nil
}

// TxCounts returns numbers of captured and dequeued frames.
func (h *handle) TxCounts() (captured, dequeued int) {
	return h.tx.counts()
}

// SetOidFilter installs the adapter OID filter on behalf of this handle.
func (h *handle) SetOidFilter(keys []OidKey) error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	return h.a.setOidFilter(h, keys)
}

// GetPendingOid returns the information buffer of the pending request.
func (h *handle) GetPendingOid(key OidKey, outLen int) ([]byte, error) {
	if e := h.checkOpen(); e != nil {
		return nil, e
	}
	return h.a.GetPendingOid(key, outLen)
}

// CompletePendingOid completes the pending request.
func (h *handle) CompletePendingOid() error {
	if e := h.checkOpen(); e != nil {
		return e
	}
	return h.a.CompletePendingOid()
}

// close releases handle state shared by both kinds.
func (h *handle) close() bool {
	if !h.closed.CompareAndSwap(false, true) {
		return false
	}
	h.tx.release()
	if n := len(h.rx.take()); n > 0 {
		h.logger.Debug("discarding RX backlog", zap.Int("frames", n))
	}
	h.a.clearOidFilter(h)
	return true
}
