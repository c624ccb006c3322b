// Package xdp implements the platform side of the XDP interface framework.
//
// A network interface advertises Capabilities and registers with a Platform, passing its
// InterfaceDispatch. The Platform later opens the interface and drives the queue lifecycle
// (create, activate, delete) for RX and TX queues. Once a queue is activated, the interface data
// path calls the platform dispatch methods on RxQueue and TxQueue.
//
// Methods documented as data path functions run in the bounded-latency context: they never block on
// locks held by lifecycle code and never call back into the interface.
package xdp

import (
	"github.com/usnistgov/xdpfn/core/logging"
)

var logger = logging.New("xdp")

// Direction indicates queue direction.
type Direction uint8

// Direction values.
const (
	DirectionRx Direction = iota
	DirectionTx
)

func (dir Direction) String() string {
	switch dir {
	case DirectionRx:
		return "RX"
	case DirectionTx:
		return "TX"
	}
	return "?"
}

// NotifyFlags indicates what the platform wants the interface to look at.
type NotifyFlags uint32

// NotifyFlags bits.
const (
	NotifyRx NotifyFlags = 1 << iota
	NotifyTx
)
