// Package fnmp implements the functional-test miniport, a software network adapter.
//
// Each Adapter models hardware RX and TX and answers control requests (OIDs).
// A test harness drives an adapter through handles opened over the control channel:
// a generic handle emulates the normal NIC data path, and a native handle registers the adapter
// with an xdp.Platform and serves XDP queues.
package fnmp

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/multierr"

	"github.com/usnistgov/xdpfn/core/logging"
	"github.com/usnistgov/xdpfn/xdp"
)

var logger = logging.New("fnmp")

// Config contains Miniport creation arguments.
type Config struct {
	// Platform receives native XDP registrations.
	// If nil, native handles cannot register.
	Platform *xdp.Platform
}

// Miniport is a collection of adapters.
type Miniport struct {
	cfg Config

	lock     sync.RWMutex
	adapters map[uint32]*Adapter
}

// New creates a Miniport.
func New(cfg Config) *Miniport {
	return &Miniport{
		cfg:      cfg,
		adapters: map[uint32]*Adapter{},
	}
}

// Platform returns the XDP platform, may be nil.
func (mp *Miniport) Platform() *xdp.Platform {
	return mp.cfg.Platform
}

// AddAdapter creates an adapter.
func (mp *Miniport) AddAdapter(cfg AdapterConfig) (*Adapter, error) {
	if e := cfg.resolveNetif(); e != nil {
		return nil, e
	}
	cfg.applyDefaults()
	if e := cfg.Validate(); e != nil {
		return nil, e
	}

	mp.lock.Lock()
	defer mp.lock.Unlock()
	if mp.adapters[cfg.IfIndex] != nil {
		return nil, fmt.Errorf("%w: adapter ifindex %d exists", xdp.StatusAlreadyRegistered, cfg.IfIndex)
	}

	a := newAdapter(mp, cfg)
	mp.adapters[cfg.IfIndex] = a
	return a, nil
}

// Adapter returns the adapter of ifIndex, or nil.
func (mp *Miniport) Adapter(ifIndex uint32) *Adapter {
	mp.lock.RLock()
	defer mp.lock.RUnlock()
	return mp.adapters[ifIndex]
}

// Adapters returns all adapters sorted by ifindex.
func (mp *Miniport) Adapters() (list []*Adapter) {
	mp.lock.RLock()
	for _, a := range mp.adapters {
		list = append(list, a)
	}
	mp.lock.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].ifIndex < list[j].ifIndex })
	return list
}

// Close closes all adapters.
func (mp *Miniport) Close() error {
	errs := []error{}
	for _, a := range mp.Adapters() {
		errs = append(errs, a.Close())
	}
	return multierr.Combine(errs...)
}

func (mp *Miniport) remove(a *Adapter) {
	mp.lock.Lock()
	defer mp.lock.Unlock()
	if mp.adapters[a.ifIndex] == a {
		delete(mp.adapters, a.ifIndex)
	}
}
