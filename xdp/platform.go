package xdp

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/core/events"
)

// PlatformConfig contains Platform creation arguments.
type PlatformConfig struct {
	// MaxAPIVersion is the highest Capabilities.APIVersion accepted at registration.
	MaxAPIVersion uint32 `json:"maxApiVersion,omitempty" yaml:"maxApiVersion,omitempty"`
}

func (cfg *PlatformConfig) applyDefaults() {
	if cfg.MaxAPIVersion == 0 {
		cfg.MaxAPIVersion = APIVersionLatest
	}
}

// Platform is the registration authority and queue lifecycle manager.
type Platform struct {
	cfg     PlatformConfig
	emitter *events.Emitter

	lock sync.RWMutex
	regs map[uint32]*Registration
}

// NewPlatform creates a Platform.
func NewPlatform(cfg PlatformConfig) *Platform {
	cfg.applyDefaults()
	return &Platform{
		cfg:     cfg,
		emitter: events.NewEmitter(),
		regs:    map[uint32]*Registration{},
	}
}

// Register records an interface's capabilities and dispatch table.
// Fails with StatusInvalidArgument on unusable input, or StatusAlreadyRegistered if ifIndex has a
// live registration.
func (p *Platform) Register(ifIndex uint32, caps Capabilities, dispatch InterfaceDispatch) (*Registration, error) {
	if dispatch == nil {
		return nil, fmt.Errorf("%w: nil dispatch", StatusInvalidArgument)
	}
	if e := caps.Validate(p.cfg.MaxAPIVersion); e != nil {
		return nil, e
	}

	p.lock.Lock()
	defer p.lock.Unlock()
	if p.regs[ifIndex] != nil {
		return nil, fmt.Errorf("%w: ifindex %d", StatusAlreadyRegistered, ifIndex)
	}

	reg := &Registration{
		platform: p,
		ifIndex:  ifIndex,
		caps:     caps,
		dispatch: dispatch,
		logger:   logger.With(zap.Uint32("ifindex", ifIndex)),
	}
	p.regs[ifIndex] = reg
	reg.logger.Info("interface registered",
		zap.Uint32("api-version", caps.APIVersion),
		zap.Stringer("instance", caps.InstanceID),
	)
	p.emitInterface(ifIndex, InterfaceRegistered)
	return reg, nil
}

// Deregister releases a registration.
// Queues still owned by the interface are deleted and the interface is closed if it was opened.
// Returns after teardown is complete. A second call on the same registration fails with StatusNotFound.
func (p *Platform) Deregister(reg *Registration) error {
	if reg == nil || reg.platform != p {
		return fmt.Errorf("%w: unknown registration", StatusNotFound)
	}

	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	if reg.deregistered {
		return fmt.Errorf("%w: ifindex %d already deregistered", StatusNotFound, reg.ifIndex)
	}
	reg.deregistered = true

	var e error
	if reg.binding != nil {
		e = reg.binding.closeLocked()
	}

	p.lock.Lock()
	delete(p.regs, reg.ifIndex)
	p.lock.Unlock()

	if e != nil {
		reg.logger.Warn("interface deregistered", zap.Error(e))
	} else {
		reg.logger.Info("interface deregistered")
	}
	p.emitInterface(reg.ifIndex, InterfaceDeregistered)
	return e
}

// Lookup returns the live registration of ifIndex, or nil.
func (p *Platform) Lookup(ifIndex uint32) *Registration {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.regs[ifIndex]
}

// List returns live registrations, sorted by ifindex.
func (p *Platform) List() (list []*Registration) {
	p.lock.RLock()
	for _, reg := range p.regs {
		list = append(list, reg)
	}
	p.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ifIndex < list[j].ifIndex })
	return list
}

// Open opens a registered interface for queue management.
// Fails with StatusNotFound if ifIndex is not registered, or StatusInvalidDeviceState if it is
// already open.
func (p *Platform) Open(ifIndex uint32) (*Binding, error) {
	reg := p.Lookup(ifIndex)
	if reg == nil {
		return nil, fmt.Errorf("%w: ifindex %d not registered", StatusNotFound, ifIndex)
	}
	return reg.open()
}

// Close deregisters every remaining interface.
func (p *Platform) Close() error {
	var errs []error
	for _, reg := range p.List() {
		reg.logger.Warn("interface still registered at platform close")
		errs = append(errs, p.Deregister(reg))
	}
	return multierr.Combine(errs...)
}

// Registration is a live interface registration.
type Registration struct {
	platform *Platform
	ifIndex  uint32
	caps     Capabilities
	dispatch InterfaceDispatch
	logger   *zap.Logger

	// ctrl serializes lifecycle operations of this interface.
	ctrl         sync.Mutex
	deregistered bool
	binding      *Binding
}

// IfIndex returns interface index.
func (reg *Registration) IfIndex() uint32 {
	return reg.ifIndex
}

// Capabilities returns the capabilities presented at registration.
func (reg *Registration) Capabilities() Capabilities {
	return reg.caps
}

// Binding returns the open session, or nil if the interface is not open.
func (reg *Registration) Binding() *Binding {
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	return reg.binding
}

func (reg *Registration) open() (*Binding, error) {
	reg.ctrl.Lock()
	defer reg.ctrl.Unlock()
	switch {
	case reg.deregistered:
		return nil, fmt.Errorf("%w: ifindex %d deregistered", StatusNotFound, reg.ifIndex)
	case reg.binding != nil:
		return nil, fmt.Errorf("%w: ifindex %d already open", StatusInvalidDeviceState, reg.ifIndex)
	}

	if opener, ok := reg.dispatch.(InterfaceOpener); ok {
		if e := opener.OpenInterface(InterfaceConfig{IfIndex: reg.ifIndex, APIVersion: reg.caps.APIVersion}); e != nil {
			reg.logger.Warn("interface open error", zap.Error(e))
			return nil, e
		}
	}

	reg.binding = &Binding{
		reg: reg,
		rxq: map[uint32]*RxQueue{},
		txq: map[uint32]*TxQueue{},
	}
	reg.logger.Info("interface opened")
	reg.platform.emitInterface(reg.ifIndex, InterfaceOpened)
	return reg.binding, nil
}
