package xdp_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/xdp"
)

var makeAR = testenv.MakeAR

func makeCaps() xdp.Capabilities {
	caps, e := xdp.InitializeCapabilities(xdp.APIVersion1)
	if e != nil {
		panic(e)
	}
	return caps
}

// fakeInterface is an InterfaceDispatch that records every callback.
type fakeInterface struct {
	mu        sync.Mutex
	calls     []string
	noCaps    bool
	createErr error
	openErr   error
	rxq       map[uint32]*fakeRxQueue
	txq       map[uint32]*fakeTxQueue
}

var (
	_ xdp.InterfaceDispatch = (*fakeInterface)(nil)
	_ xdp.InterfaceOpener   = (*fakeInterface)(nil)
	_ xdp.InterfaceCloser   = (*fakeInterface)(nil)
)

func newFakeInterface() *fakeInterface {
	return &fakeInterface{
		rxq: map[uint32]*fakeRxQueue{},
		txq: map[uint32]*fakeTxQueue{},
	}
}

func (fi *fakeInterface) record(format string, args ...any) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	fi.calls = append(fi.calls, fmt.Sprintf(format, args...))
}

func (fi *fakeInterface) Calls() []string {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	return append([]string{}, fi.calls...)
}

// QueueCalls returns lifecycle verbs recorded for one queue, such as "rx0".
func (fi *fakeInterface) QueueCalls(queue string) (verbs []string) {
	for _, call := range fi.Calls() {
		if q, verb, ok := strings.Cut(call, " "); ok && q == queue {
			verbs = append(verbs, verb)
		}
	}
	return verbs
}

func (fi *fakeInterface) OpenInterface(cfg xdp.InterfaceConfig) error {
	fi.record("open %d", cfg.IfIndex)
	return fi.openErr
}

func (fi *fakeInterface) CloseInterface() {
	fi.record("close")
}

func (fi *fakeInterface) CreateRxQueue(cfg *xdp.RxQueueConfigCreate) (xdp.InterfaceRxQueue, error) {
	fi.record("rx%d create", cfg.QueueID)
	if fi.createErr != nil {
		return nil, fi.createErr
	}
	if !fi.noCaps {
		cfg.SetCapabilities(xdp.RxCapabilities{MaxBufferSize: 2048, MaxFrameSize: 9000, MaxFragments: 4, VirtualAddress: true})
	}
	fq := &fakeRxQueue{fi: fi, id: cfg.QueueID}
	fi.rxq[cfg.QueueID] = fq
	return fq, nil
}

func (fi *fakeInterface) CreateTxQueue(cfg *xdp.TxQueueConfigCreate) (xdp.InterfaceTxQueue, error) {
	fi.record("tx%d create", cfg.QueueID)
	if fi.createErr != nil {
		return nil, fi.createErr
	}
	if !fi.noCaps {
		cfg.SetCapabilities(xdp.TxCapabilities{MaxBufferSize: 2048, MaxFrameSize: 1514})
	}
	fq := &fakeTxQueue{fi: fi, id: cfg.QueueID}
	fi.txq[cfg.QueueID] = fq
	return fq, nil
}

type fakeRxQueue struct {
	fi       *fakeInterface
	id       uint32
	q        *xdp.RxQueue
	ring     *xdp.FrameRing
	notified int
}

func (fq *fakeRxQueue) Activate(q *xdp.RxQueue, cfg *xdp.RxQueueConfigActivate) {
	fq.fi.record("rx%d activate", fq.id)
	fq.q, fq.ring = q, cfg.Ring
}

func (fq *fakeRxQueue) Delete() {
	fq.fi.record("rx%d delete", fq.id)
}

func (fq *fakeRxQueue) NotifyQueue(flags xdp.NotifyFlags) {
	fq.notified++
}

type fakeTxQueue struct {
	fi       *fakeInterface
	id       uint32
	q        *xdp.TxQueue
	frames   *xdp.FrameRing
	comp     *xdp.CompletionRing
	notified int
}

func (fq *fakeTxQueue) Activate(q *xdp.TxQueue, cfg *xdp.TxQueueConfigActivate) {
	fq.fi.record("tx%d activate", fq.id)
	fq.q, fq.frames, fq.comp = q, cfg.FrameRing, cfg.CompletionRing
}

func (fq *fakeTxQueue) Delete() {
	fq.fi.record("tx%d delete", fq.id)
}

func (fq *fakeTxQueue) NotifyQueue(flags xdp.NotifyFlags) {
	fq.notified++
}

// complete moves every posted frame to the completion ring and returns their payloads.
func (fq *fakeTxQueue) complete() (sent [][]byte) {
	for {
		frame, ok := fq.frames.Peek()
		if !ok {
			break
		}
		sent = append(sent, frame.Bytes())
		fq.comp.Produce(frame.Token)
		fq.frames.Consume(1)
	}
	fq.q.FlushTransmit()
	return sent
}
