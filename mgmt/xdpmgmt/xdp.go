// Package xdpmgmt exposes XDP platform registrations and queues over management RPC.
package xdpmgmt

import (
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/core/logging"
	"github.com/usnistgov/xdpfn/xdp"
)

var logger = logging.New("xdpmgmt")

type XdpMgmt struct {
	Platform *xdp.Platform

	// lock serializes binding creation.
	lock *sync.Mutex
}

// New creates XdpMgmt.
func New(p *xdp.Platform) XdpMgmt {
	return XdpMgmt{Platform: p, lock: &sync.Mutex{}}
}

func (mg XdpMgmt) List(args struct{}, reply *[]RegistrationInfo) error {
	result := make([]RegistrationInfo, 0)
	for _, reg := range mg.Platform.List() {
		result = append(result, RegistrationInfo{
			IfIndex:      reg.IfIndex(),
			Capabilities: reg.Capabilities(),
			Open:         reg.Binding() != nil,
		})
	}
	*reply = result
	return nil
}

func (mg XdpMgmt) binding(ifIndex uint32, create bool) (*xdp.Binding, error) {
	reg := mg.Platform.Lookup(ifIndex)
	if reg == nil {
		return nil, fmt.Errorf("%w: ifindex %d not registered", xdp.StatusNotFound, ifIndex)
	}
	if b := reg.Binding(); b != nil || !create {
		if b == nil {
			return nil, fmt.Errorf("%w: ifindex %d not open", xdp.StatusNotFound, ifIndex)
		}
		return b, nil
	}

	mg.lock.Lock()
	defer mg.lock.Unlock()
	if b := reg.Binding(); b != nil {
		return b, nil
	}
	return mg.Platform.Open(ifIndex)
}

func (mg XdpMgmt) rxQueue(arg QueueArg) (*xdp.RxQueue, error) {
	b, e := mg.binding(arg.IfIndex, false)
	if e != nil {
		return nil, e
	}
	q := b.RxQueue(arg.QueueID)
	if q == nil {
		return nil, fmt.Errorf("%w: RX queue %d", xdp.StatusNotFound, arg.QueueID)
	}
	return q, nil
}

func makeRxQueueInfo(q *xdp.RxQueue) RxQueueInfo {
	return RxQueueInfo{
		QueueID:  q.QueueID(),
		State:    q.State().String(),
		Counters: q.Counters(),
	}
}

// Bind creates and activates an RX queue, opening the interface if needed.
func (mg XdpMgmt) Bind(args BindArg, reply *RxQueueInfo) error {
	prog, e := args.Program.Program()
	if e != nil {
		return e
	}
	b, e := mg.binding(args.IfIndex, true)
	if e != nil {
		return e
	}

	q, e := b.CreateRxQueue(args.QueueID, xdp.RxQueueOptions{Program: prog, RingSize: args.RingSize})
	if e != nil {
		return e
	}
	if e := q.Activate(); e != nil {
		q.Delete()
		return e
	}
	logger.Info("RX queue bound", zap.Uint32("ifindex", args.IfIndex), zap.Uint32("queue", args.QueueID))
	*reply = makeRxQueueInfo(q)
	return nil
}

// Drain returns frames redirected on an RX queue.
func (mg XdpMgmt) Drain(args QueueArg, reply *[][]byte) error {
	q, e := mg.rxQueue(args)
	if e != nil {
		return e
	}
	frames := q.Drain()
	if frames == nil {
		frames = [][]byte{}
	}
	*reply = frames
	return nil
}

// Unbind deletes an RX queue.
func (mg XdpMgmt) Unbind(args QueueArg, reply *RxQueueInfo) error {
	q, e := mg.rxQueue(args)
	if e != nil {
		return e
	}
	if e := q.Delete(); e != nil {
		return e
	}
	*reply = makeRxQueueInfo(q)
	return nil
}

// Transmit posts a frame on a TX queue, creating and activating the queue on first use.
func (mg XdpMgmt) Transmit(args TransmitArg, reply *TransmitReply) error {
	b, e := mg.binding(args.IfIndex, true)
	if e != nil {
		return e
	}

	q := b.TxQueue(args.QueueID)
	if q == nil {
		if q, e = mg.createTxQueue(b, args.QueueID); e != nil {
			return e
		}
	}

	if reply.Token, e = q.Transmit(args.Frame); e != nil {
		return e
	}
	reply.Counters = q.Counters()
	return nil
}

func (mg XdpMgmt) createTxQueue(b *xdp.Binding, queueID uint32) (*xdp.TxQueue, error) {
	mg.lock.Lock()
	defer mg.lock.Unlock()
	if q := b.TxQueue(queueID); q != nil {
		return q, nil
	}

	q, e := b.CreateTxQueue(queueID, xdp.TxQueueOptions{})
	if e != nil {
		return nil, e
	}
	if e := q.Activate(); e != nil {
		return nil, multierr.Append(e, q.Delete())
	}
	logger.Info("TX queue created", zap.Uint32("ifindex", b.Registration().IfIndex()), zap.Uint32("queue", queueID))
	return q, nil
}
