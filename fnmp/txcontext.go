package fnmp

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/usnistgov/xdpfn/xdp"
)

// txFrame is a frame submitted for transmission.
type txFrame struct {
	data  []byte
	token uint64
	nq    *nativeTxQueue
}

// txContext holds the TX filter and captured frames of a handle.
type txContext struct {
	lock       sync.Mutex
	pattern    []byte
	mask       []byte
	captured   []*txFrame
	completing []*txFrame

	// complete is invoked with frames released by flush or close.
	complete func(frames []*txFrame)
}

// setFilter installs a pattern and mask. Zero length disables capture.
func (tc *txContext) setFilter(pattern, mask []byte) error {
	if len(pattern) != len(mask) {
		return fmt.Errorf("%w: pattern length %d differs from mask length %d", xdp.StatusInvalidArgument, len(pattern), len(mask))
	}
	tc.lock.Lock()
	defer tc.lock.Unlock()
	if len(pattern) == 0 {
		tc.pattern, tc.mask = nil, nil
		return nil
	}
	tc.pattern, tc.mask = bytes.Clone(pattern), bytes.Clone(mask)
	return nil
}

// offer captures tf if it matches the filter.
func (tc *txContext) offer(tf *txFrame) bool {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	if tc.pattern == nil || !xdp.MaskedMatch(tf.data, tc.pattern, tc.mask) {
		return false
	}
	tc.captured = append(tc.captured, tf)
	return true
}

func (tc *txContext) getFrame(index uint32) (xdp.Frame, error) {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	if int(index) >= len(tc.captured) {
		return xdp.Frame{}, fmt.Errorf("%w: TX frame %d of %d", xdp.StatusNotFound, index, len(tc.captured))
	}
	return xdp.MakeFrame(bytes.Clone(tc.captured[index].data)), nil
}

// dequeue moves a captured frame to the completion queue.
// Later captured frames shift down by one index.
func (tc *txContext) dequeue(index uint32) error {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	i := int(index)
	if i >= len(tc.captured) {
		return fmt.Errorf("%w: TX frame %d of %d", xdp.StatusNotFound, index, len(tc.captured))
	}
	tc.completing = append(tc.completing, tc.captured[i])
	tc.captured = append(tc.captured[:i], tc.captured[i+1:]...)
	return nil
}

// flush releases the completion queue.
func (tc *txContext) flush() {
	tc.lock.Lock()
	frames := tc.completing
	tc.completing = nil
	tc.lock.Unlock()
	if len(frames) > 0 {
		tc.complete(frames)
	}
}

// release releases every captured and dequeued frame.
func (tc *txContext) release() {
	tc.lock.Lock()
	frames := append(tc.completing, tc.captured...)
	tc.completing, tc.captured = nil, nil
	tc.pattern, tc.mask = nil, nil
	tc.lock.Unlock()
	if len(frames) > 0 {
		tc.complete(frames)
	}
}

func (tc *txContext) counts() (captured, completing int) {
	tc.lock.Lock()
	defer tc.lock.Unlock()
	return len(tc.captured), len(tc.completing)
}
