package fnmp

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/core/events"
	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/fndis"
	"github.com/usnistgov/xdpfn/xdp"
)

// Limits and defaults.
const (
	DefaultMTU       = 1500
	MinMTU           = 576
	MaxMTU           = 9000
	DefaultRxQueues  = 4
	MaxRxQueues      = 64
	DefaultLinkSpeed = 10_000_000_000
)

// AdapterConfig contains Adapter creation arguments.
type AdapterConfig struct {
	IfIndex uint32       `json:"ifindex" yaml:"ifindex"`
	MAC     macaddr.Flag `json:"mac,omitempty" yaml:"mac,omitempty"`
	MTU     int          `json:"mtu,omitempty" yaml:"mtu,omitempty"`

	// RxQueues is the number of hardware RX queues, which bounds native queue IDs.
	RxQueues int `json:"rxQueues,omitempty" yaml:"rxQueues,omitempty"`

	// LinkSpeed is reported link speed in bits per second.
	LinkSpeed uint64 `json:"linkSpeed,omitempty" yaml:"linkSpeed,omitempty"`

	// Netif names a kernel network interface whose ifindex, MAC, MTU, RX channels, and speed seed unset fields.
	Netif string `json:"netif,omitempty" yaml:"netif,omitempty"`
}

func (cfg *AdapterConfig) applyDefaults() {
	if cfg.MAC.Empty() {
		cfg.MAC.HardwareAddr = macaddr.MakeRandom(false)
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.RxQueues == 0 {
		cfg.RxQueues = DefaultRxQueues
	}
	if cfg.LinkSpeed == 0 {
		cfg.LinkSpeed = DefaultLinkSpeed
	}
}

// Validate checks adapter configuration.
func (cfg AdapterConfig) Validate() error {
	switch {
	case cfg.IfIndex == 0:
		return fmt.Errorf("%w: ifindex must be positive", xdp.StatusInvalidArgument)
	case !macaddr.IsUnicast(cfg.MAC.HardwareAddr):
		return fmt.Errorf("%w: MAC %s is not unicast", xdp.StatusInvalidArgument, cfg.MAC)
	case cfg.MTU < MinMTU || cfg.MTU > MaxMTU:
		return fmt.Errorf("%w: MTU %d outside [%d,%d]", xdp.StatusInvalidArgument, cfg.MTU, MinMTU, MaxMTU)
	case cfg.RxQueues < 1 || cfg.RxQueues > MaxRxQueues:
		return fmt.Errorf("%w: RxQueues %d outside [1,%d]", xdp.StatusInvalidArgument, cfg.RxQueues, MaxRxQueues)
	}
	return nil
}

// Counters contains adapter counters.
type Counters struct {
	RxEnqueued    uint64 `json:"rxEnqueued"`
	RxIndicated   uint64 `json:"rxIndicated"`
	RxAbsorbed    uint64 `json:"rxAbsorbed"`
	RxDropped     uint64 `json:"rxDropped"`
	TxSent        uint64 `json:"txSent"`
	TxCaptured    uint64 `json:"txCaptured"`
	TxCompleted   uint64 `json:"txCompleted"`
	TxTransmitted uint64 `json:"txTransmitted"`
}

type adapterCounters struct {
	rxEnqueued, rxIndicated, rxAbsorbed, rxDropped atomic.Uint64
	txSent, txCaptured, txCompleted, txTransmitted atomic.Uint64
}

// Adapter is an emulated network adapter.
type Adapter struct {
	mp        *Miniport
	cfg       AdapterConfig
	ifIndex   uint32
	permanent net.HardwareAddr
	logger    *zap.Logger
	emitter   *events.Emitter
	poll      *fndis.Poll

	// lock guards shared state below.
	lock           sync.RWMutex
	closed         bool
	mtu            int
	mac            net.HardwareAddr
	packetFilter   uint32
	lookahead      uint32
	multicast      []net.HardwareAddr
	rssParams      []byte
	powerState     uint32
	oidFilter      []OidKey
	oidFilterOwner *handle
	pending        *OidRequest
	pauseTime      time.Time
	generic        *Generic
	native         *Native

	nativeDP  atomic.Pointer[Native]
	rxJobs    jobQueue
	indicated frameList
	cnt       adapterCounters
}

func newAdapter(mp *Miniport, cfg AdapterConfig) *Adapter {
	a := &Adapter{
		mp:        mp,
		cfg:       cfg,
		ifIndex:   cfg.IfIndex,
		permanent: bytes.Clone(cfg.MAC.HardwareAddr),
		logger:    logger.With(zap.Uint32("ifindex", cfg.IfIndex)),
		emitter:   events.NewEmitter(),
		mtu:       cfg.MTU,
		mac:       bytes.Clone(cfg.MAC.HardwareAddr),
		lookahead: uint32(cfg.MTU),
	}
	a.poll = fndis.RegisterPoll("fnmp"+strconv.FormatUint(uint64(cfg.IfIndex), 10), fndis.PollerFunc(a.pollIteration))
	a.logger.Info("adapter created",
		zap.Stringer("mac", a.mac),
		zap.Int("mtu", a.mtu),
		zap.Int("rx-queues", cfg.RxQueues),
	)
	return a
}

// IfIndex returns interface index.
func (a *Adapter) IfIndex() uint32 {
	return a.ifIndex
}

// MTU returns current MTU.
func (a *Adapter) MTU() int {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.mtu
}

// MAC returns current MAC address.
func (a *Adapter) MAC() net.HardwareAddr {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return bytes.Clone(a.mac)
}

// RxQueues returns number of hardware RX queues.
func (a *Adapter) RxQueues() int {
	return a.cfg.RxQueues
}

// Poll returns the poll context.
func (a *Adapter) Poll() *fndis.Poll {
	return a.poll
}

// Counters returns counters.
func (a *Adapter) Counters() Counters {
	return Counters{
		RxEnqueued:    a.cnt.rxEnqueued.Load(),
		RxIndicated:   a.cnt.rxIndicated.Load(),
		RxAbsorbed:    a.cnt.rxAbsorbed.Load(),
		RxDropped:     a.cnt.rxDropped.Load(),
		TxSent:        a.cnt.txSent.Load(),
		TxCaptured:    a.cnt.txCaptured.Load(),
		TxCompleted:   a.cnt.txCompleted.Load(),
		TxTransmitted: a.cnt.txTransmitted.Load(),
	}
}

// PauseTimestamp returns when the data path was last paused, zero if never.
func (a *Adapter) PauseTimestamp() time.Time {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.pauseTime
}

// OidFilter returns installed OID filter keys, nil if none.
func (a *Adapter) OidFilter() []OidKey {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return append([]OidKey(nil), a.oidFilter...)
}

// PendingOid returns the key of the pending OID request.
func (a *Adapter) PendingOid() (key OidKey, ok bool) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	if a.pending == nil {
		return OidKey{}, false
	}
	return a.pending.Key, true
}

// HasGeneric determines whether a generic handle is open.
func (a *Adapter) HasGeneric() bool {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.generic != nil
}

// HasNative determines whether a native handle is open.
func (a *Adapter) HasNative() bool {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.native != nil
}

// Registration returns the XDP registration of the native handle, or nil.
func (a *Adapter) Registration() *xdp.Registration {
	a.lock.RLock()
	nat := a.native
	a.lock.RUnlock()
	if nat == nil {
		return nil
	}
	return nat.Registration()
}

// OpenGeneric opens a generic handle.
// Fails with StatusInvalidDeviceState if a generic handle is already open.
func (a *Adapter) OpenGeneric() (*Generic, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if e := a.checkOpenLocked(); e != nil {
		return nil, e
	}
	if a.generic != nil {
		return nil, fmt.Errorf("%w: generic handle already open", xdp.StatusInvalidDeviceState)
	}
	g := &Generic{}
	g.handle.init(a, "generic", nil)
	g.tx.complete = a.completeGenericTx
	a.generic = g
	a.logger.Info("generic handle opened")
	return g, nil
}

// OpenNative opens a native handle.
// Fails with StatusInvalidDeviceState if a native handle is already open.
func (a *Adapter) OpenNative() (*Native, error) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if e := a.checkOpenLocked(); e != nil {
		return nil, e
	}
	if a.native != nil {
		return nil, fmt.Errorf("%w: native handle already open", xdp.StatusInvalidDeviceState)
	}
	nat := newNative(a)
	a.native = nat
	a.nativeDP.Store(nat)
	a.logger.Info("native handle opened")
	return nat, nil
}

func (a *Adapter) checkOpenLocked() error {
	if a.closed {
		return fmt.Errorf("%w: adapter closed", xdp.StatusInvalidDeviceState)
	}
	return nil
}

func (a *Adapter) detachGeneric(g *Generic) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.generic == g {
		a.generic = nil
	}
}

func (a *Adapter) detachNative(nat *Native) {
	a.lock.Lock()
	defer a.lock.Unlock()
	if a.native == nat {
		a.native = nil
		a.nativeDP.Store(nil)
	}
}

// Send submits a frame from the upper layer for transmission.
// If the generic handle's TX filter matches, the frame is captured until the harness releases it.
// Otherwise it completes immediately.
func (a *Adapter) Send(frame []byte) error {
	if len(frame) == 0 {
		return fmt.Errorf("%w: empty frame", xdp.StatusInvalidArgument)
	}
	a.cnt.txSent.Add(1)
	tf := &txFrame{data: bytes.Clone(frame)}

	a.lock.RLock()
	g := a.generic
	a.lock.RUnlock()
	if g != nil && g.tx.offer(tf) {
		a.cnt.txCaptured.Add(1)
		return nil
	}
	a.cnt.txTransmitted.Add(1)
	a.completeGenericTx([]*txFrame{tf})
	return nil
}

func (a *Adapter) completeGenericTx(frames []*txFrame) {
	for _, tf := range frames {
		a.cnt.txCompleted.Add(1)
		a.emitter.Emit(evtSendComplete, tf.data)
	}
}

// TakeIndicated returns and removes frames indicated to the upper layer, oldest first.
func (a *Adapter) TakeIndicated() [][]byte {
	return a.indicated.take()
}

func (a *Adapter) indicate(frame *xdp.Frame) {
	a.indicated.add(frame.Bytes())
	a.cnt.rxIndicated.Add(1)
}

// pause stops the data path and records the pause timestamp.
func (a *Adapter) pause() {
	now := time.Now()
	a.lock.Lock()
	a.pauseTime = now
	a.lock.Unlock()
	a.poll.Barrier()
	a.logger.Info("adapter paused")
	a.emitter.Emit(evtPause, now)
}

// restart pauses the data path and rebuilds the XDP registration, if any, so that queues are
// recreated against current settings.
func (a *Adapter) restart() error {
	a.pause()

	a.lock.RLock()
	nat := a.native
	a.lock.RUnlock()
	var e error
	if nat != nil {
		e = nat.reattach()
	}

	a.logger.Info("adapter restarted", zap.Error(e))
	a.emitter.Emit(evtRestart)
	return e
}

// Close closes every handle and releases the adapter.
func (a *Adapter) Close() error {
	a.lock.Lock()
	if a.closed {
		a.lock.Unlock()
		return nil
	}
	a.closed = true
	g, nat := a.generic, a.native
	a.lock.Unlock()

	errs := []error{}
	if nat != nil {
		errs = append(errs, nat.Close())
	}
	if g != nil {
		errs = append(errs, g.Close())
	}

	a.lock.Lock()
	req := a.pending
	a.pending = nil
	a.oidFilter, a.oidFilterOwner = nil, nil
	a.lock.Unlock()
	if req != nil {
		a.logger.Warn("aborting pending OID request", zap.Stringer("key", req.Key))
		a.completeOid(req, xdp.StatusInvalidDeviceState)
	}

	a.poll.Deregister()
	a.mp.remove(a)

	e := multierr.Combine(errs...)
	if e != nil {
		a.logger.Error("adapter closed", zap.Error(e))
	} else {
		a.logger.Info("adapter closed")
	}
	return e
}
