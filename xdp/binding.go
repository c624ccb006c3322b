package xdp

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultRingSize is the default ring capacity of platform queues.
const DefaultRingSize = 256

// Binding is an open session on a registered interface.
// It owns the platform-side queues.
type Binding struct {
	reg    *Registration
	rxq    map[uint32]*RxQueue
	txq    map[uint32]*TxQueue
	closed bool
}

// Registration returns the registration this binding belongs to.
func (b *Binding) Registration() *Registration {
	return b.reg
}

// RxQueueOptions contains RX queue creation arguments.
type RxQueueOptions struct {
	// Program inspects received frames. Default is PassAll.
	Program Program
	// RingSize is frame ring capacity. Default is DefaultRingSize.
	RingSize int
}

func (opts *RxQueueOptions) applyDefaults() {
	if opts.Program == nil {
		opts.Program = PassAll
	}
	if opts.RingSize <= 0 {
		opts.RingSize = DefaultRingSize
	}
}

// TxQueueOptions contains TX queue creation arguments.
type TxQueueOptions struct {
	// RingSize is capacity of frame ring and completion ring. Default is DefaultRingSize.
	RingSize int
}

func (opts *TxQueueOptions) applyDefaults() {
	if opts.RingSize <= 0 {
		opts.RingSize = DefaultRingSize
	}
}

func (b *Binding) checkOpen() error {
	if b.closed {
		return fmt.Errorf("%w: ifindex %d binding closed", StatusInvalidDeviceState, b.reg.ifIndex)
	}
	return nil
}

// CreateRxQueue creates an RX queue on a hardware queue.
// Fails with StatusAlreadyRegistered if a live RX queue exists on queueID.
// The returned queue is in Created state.
func (b *Binding) CreateRxQueue(queueID uint32, opts RxQueueOptions) (*RxQueue, error) {
	opts.applyDefaults()
	reg := b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := b.checkOpen(); e != nil {
		return nil, e
	}
	if b.rxq[queueID] != nil {
		return nil, fmt.Errorf("%w: RX queue %d on ifindex %d", StatusAlreadyRegistered, queueID, reg.ifIndex)
	}

	cfg := &RxQueueConfigCreate{IfIndex: reg.ifIndex, QueueID: queueID, RingSize: opts.RingSize}
	iq, e := reg.dispatch.CreateRxQueue(cfg)
	if e != nil {
		reg.logger.Warn("RX queue create error", zap.Uint32("queue", queueID), zap.Error(e))
		return nil, e
	}
	caps, ok := cfg.Capabilities()
	if !ok {
		e = fmt.Errorf("%w: RX queue %d declared no capabilities", StatusInvalidArgument, queueID)
	} else {
		e = caps.Validate()
	}
	if e != nil {
		iq.Delete()
		reg.logger.Warn("RX queue create aborted", zap.Uint32("queue", queueID), zap.Error(e))
		return nil, e
	}

	q := &RxQueue{
		b:        b,
		queueID:  queueID,
		iq:       iq,
		caps:     caps,
		program:  opts.Program,
		ringSize: opts.RingSize,
		logger:   reg.logger.With(zap.Uint32("rxq", queueID)),
	}
	b.rxq[queueID] = q
	q.logger.Info("RX queue created", zap.Any("caps", caps))
	reg.platform.emitQueue(reg.ifIndex, queueID, DirectionRx, QueueCreated)
	return q, nil
}

// CreateTxQueue creates a TX queue on a hardware queue.
// Fails with StatusAlreadyRegistered if a live TX queue exists on queueID.
func (b *Binding) CreateTxQueue(queueID uint32, opts TxQueueOptions) (*TxQueue, error) {
	opts.applyDefaults()
	reg := b.reg
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if e := b.checkOpen(); e != nil {
		return nil, e
	}
	if b.txq[queueID] != nil {
		return nil, fmt.Errorf("%w: TX queue %d on ifindex %d", StatusAlreadyRegistered, queueID, reg.ifIndex)
	}

	cfg := &TxQueueConfigCreate{IfIndex: reg.ifIndex, QueueID: queueID, RingSize: opts.RingSize}
	iq, e := reg.dispatch.CreateTxQueue(cfg)
	if e != nil {
		reg.logger.Warn("TX queue create error", zap.Uint32("queue", queueID), zap.Error(e))
		return nil, e
	}
	caps, ok := cfg.Capabilities()
	if !ok {
		e = fmt.Errorf("%w: TX queue %d declared no capabilities", StatusInvalidArgument, queueID)
	} else {
		e = caps.Validate()
	}
	if e != nil {
		iq.Delete()
		reg.logger.Warn("TX queue create aborted", zap.Uint32("queue", queueID), zap.Error(e))
		return nil, e
	}

	q := &TxQueue{
		b:        b,
		queueID:  queueID,
		iq:       iq,
		caps:     caps,
		ringSize: opts.RingSize,
		logger:   reg.logger.With(zap.Uint32("txq", queueID)),
	}
	b.txq[queueID] = q
	q.logger.Info("TX queue created", zap.Any("caps", caps))
	reg.platform.emitQueue(reg.ifIndex, queueID, DirectionTx, QueueCreated)
	return q, nil
}

// RxQueue returns the live RX queue on queueID, or nil.
func (b *Binding) RxQueue(queueID uint32) *RxQueue {
	b.reg.ctrl.Lock()
	defer b.reg.ctrl.Unlock()
	return b.rxq[queueID]
}

// TxQueue returns the live TX queue on queueID, or nil.
func (b *Binding) TxQueue(queueID uint32) *TxQueue {
	b.reg.ctrl.Lock()
	defer b.reg.ctrl.Unlock()
	return b.txq[queueID]
}

// Close deletes every live queue and closes the interface.
func (b *Binding) Close() error {
	b.reg.ctrl.Lock()
	defer b.reg.ctrl.Unlock()
	if e := b.checkOpen(); e != nil {
		return e
	}
	return b.closeLocked()
}

func (b *Binding) closeLocked() error {
	reg := b.reg
	var errs []error
	for _, queueID := range sortedKeys(b.rxq) {
		errs = append(errs, b.rxq[queueID].deleteLocked())
	}
	for _, queueID := range sortedKeys(b.txq) {
		errs = append(errs, b.txq[queueID].deleteLocked())
	}

	if closer, ok := reg.dispatch.(InterfaceCloser); ok {
		closer.CloseInterface()
	}
	b.closed = true
	reg.binding = nil
	reg.logger.Info("interface closed")
	reg.platform.emitInterface(reg.ifIndex, InterfaceClosed)
	return multierr.Combine(errs...)
}

func sortedKeys[V any](m map[uint32]V) (keys []uint32) {
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
