// Package fndis emulates the NDIS poll facility used by the functional-test miniport.
//
// A Poll owns one goroutine that plays the bounded-latency context of an adapter.
// Blocking-context code requests a poll and may wait until a full pass has run.
package fndis

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/core/logging"
)

var logger = logging.New("fndis")

// ReceiveData describes RX work of one poll iteration.
type ReceiveData struct {
	// MaxIndicate is the most frames the poller may indicate in one iteration.
	MaxIndicate int
	// Indicated is set by the poller.
	Indicated int
}

// TransmitData describes TX work of one poll iteration.
type TransmitData struct {
	MaxComplete int
	Completed   int
}

// XDPData holds counters an XDP-capable poller reports in the reserved slots.
type XDPData struct {
	RxFramesAbsorbed    uint64 `json:"rxFramesAbsorbed"`
	TxFramesCompleted   uint64 `json:"txFramesCompleted"`
	TxFramesTransmitted uint64 `json:"txFramesTransmitted"`
}

// PollData is passed to Poller.Poll.
type PollData struct {
	Receive  ReceiveData
	Transmit TransmitData
	XDP      XDPData
}

// CompletePoll copies XDP counters into the reserved slots of data.
func CompletePoll(data *PollData, xdp XDPData) {
	data.XDP.RxFramesAbsorbed += xdp.RxFramesAbsorbed
	data.XDP.TxFramesCompleted += xdp.TxFramesCompleted
	data.XDP.TxFramesTransmitted += xdp.TxFramesTransmitted
}

// Poller does work in the poll context.
type Poller interface {
	// Poll runs one iteration and reports whether it made progress.
	// The poll repeats iterations until no progress is made.
	Poll(data *PollData) (progress bool)
}

// PollerFunc adapts a function to Poller.
type PollerFunc func(data *PollData) bool

// Poll implements Poller.
func (f PollerFunc) Poll(data *PollData) bool {
	return f(data)
}

// Default batch limits.
const (
	DefaultMaxIndicate = 64
	DefaultMaxComplete = 64
)

// Counters contains poll counters.
type Counters struct {
	XDPData
	Passes     uint64 `json:"passes"`
	Iterations uint64 `json:"iterations"`
}

// Poll is a registered poll context.
type Poll struct {
	name   string
	poller Poller
	logger *zap.Logger

	request chan struct{}
	stop    chan struct{}
	done    chan struct{}

	lock    sync.Mutex
	waiters []chan struct{}
	stopped bool

	affinity                     atomic.Int32
	nPasses, nIterations         atomic.Uint64
	nAbsorbed, nCompleted, nSent atomic.Uint64
}

// RegisterPoll starts a poll context.
func RegisterPoll(name string, poller Poller) *Poll {
	p := &Poll{
		name:    name,
		poller:  poller,
		logger:  logger.With(zap.String("poll", name)),
		request: make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	p.affinity.Store(-1)
	go p.loop()
	p.logger.Debug("poll registered")
	return p
}

// Name returns the poll name.
func (p *Poll) Name() string {
	return p.name
}

// SetAffinity records a CPU hint. -1 means no preference.
func (p *Poll) SetAffinity(cpu int) {
	p.affinity.Store(int32(cpu))
	p.logger.Debug("poll affinity", zap.Int("cpu", cpu))
}

// Affinity returns the CPU hint.
func (p *Poll) Affinity() int {
	return int(p.affinity.Load())
}

// Request asks for a poll.
// The returned channel is closed after a complete pass that started after this call.
// After Deregister, the returned channel is already closed.
func (p *Poll) Request() <-chan struct{} {
	ch := make(chan struct{})
	p.lock.Lock()
	if p.stopped {
		p.lock.Unlock()
		close(ch)
		return ch
	}
	p.waiters = append(p.waiters, ch)
	p.lock.Unlock()

	select {
	case p.request <- struct{}{}:
	default:
	}
	return ch
}

// Barrier waits until a complete pass has run.
// Afterwards, the poller no longer uses state it unpublished before the call.
func (p *Poll) Barrier() {
	<-p.Request()
}

// Deregister stops the poll context.
func (p *Poll) Deregister() {
	p.lock.Lock()
	if p.stopped {
		p.lock.Unlock()
		return
	}
	p.stopped = true
	p.lock.Unlock()

	close(p.stop)
	<-p.done
	p.logger.Debug("poll deregistered", zap.Uint64("passes", p.nPasses.Load()))
}

// Counters returns counters.
func (p *Poll) Counters() Counters {
	return Counters{
		XDPData: XDPData{
			RxFramesAbsorbed:    p.nAbsorbed.Load(),
			TxFramesCompleted:   p.nCompleted.Load(),
			TxFramesTransmitted: p.nSent.Load(),
		},
		Passes:     p.nPasses.Load(),
		Iterations: p.nIterations.Load(),
	}
}

func (p *Poll) loop() {
	defer close(p.done)
	for {
		select {
		case <-p.stop:
			p.releaseWaiters()
			return
		case <-p.request:
		}

		p.lock.Lock()
		waiters := p.waiters
		p.waiters = nil
		p.lock.Unlock()

		p.pass()
		for _, ch := range waiters {
			close(ch)
		}
	}
}

func (p *Poll) pass() {
	for {
		data := PollData{
			Receive:  ReceiveData{MaxIndicate: DefaultMaxIndicate},
			Transmit: TransmitData{MaxComplete: DefaultMaxComplete},
		}
		progress := p.poller.Poll(&data)
		p.nIterations.Add(1)
		p.nAbsorbed.Add(data.XDP.RxFramesAbsorbed)
		p.nCompleted.Add(data.XDP.TxFramesCompleted)
		p.nSent.Add(data.XDP.TxFramesTransmitted)
		if !progress {
			break
		}
	}
	p.nPasses.Add(1)
}

func (p *Poll) releaseWaiters() {
	p.lock.Lock()
	defer p.lock.Unlock()
	for _, ch := range p.waiters {
		close(ch)
	}
	p.waiters = nil
}
