package fnmp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/xdp"
)

// Native is a handle that serves XDP queues.
// It implements xdp.InterfaceDispatch on behalf of the adapter.
type Native struct {
	handle
	caps xdp.Capabilities

	regLock sync.Mutex
	reg     *xdp.Registration

	// slotLock guards queue slot reservation.
	slotLock sync.Mutex
	rxSlots  []*nativeRxQueue
	txSlots  []*nativeTxQueue
	opened   atomic.Bool

	// active queues read by the data path
	rxq []atomic.Pointer[nativeRxQueue]
	txq []atomic.Pointer[nativeTxQueue]
}

var (
	_ xdp.InterfaceDispatch = (*Native)(nil)
	_ xdp.InterfaceOpener   = (*Native)(nil)
	_ xdp.InterfaceCloser   = (*Native)(nil)
)

func newNative(a *Adapter) *Native {
	n := a.cfg.RxQueues
	nat := &Native{
		rxSlots: make([]*nativeRxQueue, n),
		txSlots: make([]*nativeTxQueue, n),
		rxq:     make([]atomic.Pointer[nativeRxQueue], n),
		txq:     make([]atomic.Pointer[nativeTxQueue], n),
	}
	nat.handle.init(a, "native", nat)
	nat.tx.complete = nat.completeTx
	return nat
}

// Registration returns the live XDP registration, or nil.
func (nat *Native) Registration() *xdp.Registration {
	nat.regLock.Lock()
	defer nat.regLock.Unlock()
	return nat.reg
}

// Capabilities returns the capabilities presented at the most recent registration.
func (nat *Native) Capabilities() xdp.Capabilities {
	nat.regLock.Lock()
	defer nat.regLock.Unlock()
	return nat.caps
}

// XdpRegister registers the adapter with the XDP platform.
func (nat *Native) XdpRegister() error {
	if e := nat.checkOpen(); e != nil {
		return e
	}
	nat.regLock.Lock()
	defer nat.regLock.Unlock()
	if nat.reg != nil {
		return fmt.Errorf("%w: ifindex %d", xdp.StatusAlreadyRegistered, nat.a.ifIndex)
	}
	return nat.registerLocked()
}

func (nat *Native) registerLocked() (e error) {
	platform := nat.a.mp.Platform()
	if platform == nil {
		return fmt.Errorf("%w: no XDP platform", xdp.StatusInvalidDeviceState)
	}
	if nat.caps, e = xdp.InitializeCapabilities(xdp.APIVersion1); e != nil {
		return e
	}
	if nat.reg, e = platform.Register(nat.a.ifIndex, nat.caps, nat); e != nil {
		return e
	}
	nat.logger.Info("XDP registered", zap.Stringer("instance", nat.caps.InstanceID))
	return nil
}

// XdpDeregister deregisters the adapter from the XDP platform.
// Returns after every XDP queue has been deleted.
func (nat *Native) XdpDeregister() error {
	if e := nat.checkOpen(); e != nil {
		return e
	}
	nat.regLock.Lock()
	defer nat.regLock.Unlock()
	return nat.deregisterLocked()
}

func (nat *Native) deregisterLocked() error {
	if nat.reg == nil {
		return fmt.Errorf("%w: not registered", xdp.StatusNotFound)
	}
	e := nat.a.mp.Platform().Deregister(nat.reg)
	nat.reg = nil
	nat.logger.Info("XDP deregistered", zap.Error(e))
	return e
}

// reattach deregisters and registers again, if registered.
func (nat *Native) reattach() error {
	nat.regLock.Lock()
	defer nat.regLock.Unlock()
	if nat.reg == nil {
		return nil
	}
	if e := nat.deregisterLocked(); e != nil {
		return e
	}
	return nat.registerLocked()
}

// Close deregisters from the platform and closes the handle.
func (nat *Native) Close() (e error) {
	if nat.closed.Load() {
		return nil
	}
	nat.regLock.Lock()
	if nat.reg != nil {
		e = nat.deregisterLocked()
	}
	nat.regLock.Unlock()

	if !nat.close() {
		return e
	}
	nat.a.detachNative(nat)
	nat.logger.Info("native handle closed")
	return e
}

// queryCapabilities answers OidXdpQueryCapabilities.
func (nat *Native) queryCapabilities(req *OidRequest) error {
	req.BytesWritten = 0
	if nat.Registration() == nil {
		return fmt.Errorf("%w: XDP not registered", xdp.StatusNotSupported)
	}
	wire, _ := nat.Capabilities().MarshalBinary()
	if len(req.InformationBuffer) < len(wire) {
		req.BytesNeeded = len(wire)
		return xdp.BufferTooShortError{Needed: len(wire)}
	}
	req.BytesWritten = copy(req.InformationBuffer, wire)
	return nil
}

// OpenInterface implements xdp.InterfaceOpener.
func (nat *Native) OpenInterface(cfg xdp.InterfaceConfig) error {
	if nat.closed.Load() {
		return fmt.Errorf("%w: native handle closed", xdp.StatusInvalidDeviceState)
	}
	nat.opened.Store(true)
	nat.logger.Debug("XDP interface opened", zap.Uint32("api-version", cfg.APIVersion))
	return nil
}

// CloseInterface implements xdp.InterfaceCloser.
func (nat *Native) CloseInterface() {
	nat.opened.Store(false)
	nat.logger.Debug("XDP interface closed")
}

func (nat *Native) frameSize() uint32 {
	return uint32(nat.a.MTU() + EthHdrLen)
}

// CreateRxQueue implements xdp.InterfaceDispatch.
func (nat *Native) CreateRxQueue(cfg *xdp.RxQueueConfigCreate) (xdp.InterfaceRxQueue, error) {
	if int(cfg.QueueID) >= len(nat.rxSlots) {
		return nil, fmt.Errorf("%w: RX queue %d of %d", xdp.StatusUnsupported, cfg.QueueID, len(nat.rxSlots))
	}
	nat.slotLock.Lock()
	defer nat.slotLock.Unlock()
	if nat.rxSlots[cfg.QueueID] != nil {
		return nil, fmt.Errorf("%w: RX queue %d in use", xdp.StatusResourceExhausted, cfg.QueueID)
	}

	nq := &nativeRxQueue{nat: nat, id: cfg.QueueID}
	nat.rxSlots[cfg.QueueID] = nq
	size := nat.frameSize()
	cfg.SetCapabilities(xdp.RxCapabilities{
		MaxBufferSize:  size,
		MaxFrameSize:   size,
		MaxFragments:   maxRxFragments,
		VirtualAddress: true,
	})
	return nq, nil
}

// CreateTxQueue implements xdp.InterfaceDispatch.
func (nat *Native) CreateTxQueue(cfg *xdp.TxQueueConfigCreate) (xdp.InterfaceTxQueue, error) {
	if int(cfg.QueueID) >= len(nat.txSlots) {
		return nil, fmt.Errorf("%w: TX queue %d of %d", xdp.StatusUnsupported, cfg.QueueID, len(nat.txSlots))
	}
	nat.slotLock.Lock()
	defer nat.slotLock.Unlock()
	if nat.txSlots[cfg.QueueID] != nil {
		return nil, fmt.Errorf("%w: TX queue %d in use", xdp.StatusResourceExhausted, cfg.QueueID)
	}

	nq := &nativeTxQueue{nat: nat, id: cfg.QueueID}
	nat.txSlots[cfg.QueueID] = nq
	size := nat.frameSize()
	cfg.SetCapabilities(xdp.TxCapabilities{
		MaxBufferSize: size,
		MaxFrameSize:  size,
	})
	return nq, nil
}

func (nat *Native) activeRxQueue(id uint32) *nativeRxQueue {
	if int(id) >= len(nat.rxq) {
		return nil
	}
	return nat.rxq[id].Load()
}

// pollTx runs in the bounded-latency context.
func (nat *Native) pollTx(budget int) (consumed, completed, transmitted int) {
	for i := range nat.txq {
		nq := nat.txq[i].Load()
		if nq == nil {
			continue
		}
		n, c, t := nq.poll(budget)
		consumed += n
		completed += c
		transmitted += t
	}
	return consumed, completed, transmitted
}

// completeTx queues completions of released TX frames and waits for the poll to post them.
func (nat *Native) completeTx(frames []*txFrame) {
	for _, tf := range frames {
		if tf.nq == nil || tf.nq.deleted.Load() {
			nat.logger.Debug("TX completion dropped, queue deleted", zap.Uint64("token", tf.token))
			continue
		}
		tf.nq.addPending(tf.token)
	}
	nat.a.poll.Barrier()
}
