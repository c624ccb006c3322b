package fnmpmgmt

import (
	"time"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/core/nnduration"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

type IfIndexArg struct {
	IfIndex uint32
}

type BasicInfo struct {
	IfIndex uint32
	MAC     macaddr.Flag
	MTU     int
}

func newBasicInfo(a *fnmp.Adapter) BasicInfo {
	return BasicInfo{
		IfIndex: a.IfIndex(),
		MAC:     macaddr.Flag{HardwareAddr: a.MAC()},
		MTU:     a.MTU(),
	}
}

type AdapterInfo struct {
	BasicInfo
	RxQueues       int
	Counters       fnmp.Counters
	PauseTimestamp time.Time
	HasGeneric     bool
	HasNative      bool
	Registered     bool
	OidFilter      []fnmp.OidKey
	PendingOid     *fnmp.OidKey `json:",omitempty"`
}

type OidRequestArg struct {
	IfIndex     uint32
	Oid         fnmp.Oid
	RequestType fnmp.RequestType

	// Buffer is the information buffer of a set request.
	Buffer []byte `json:",omitempty"`
	// Length is the information buffer length of a query request.
	Length int `json:",omitempty"`
	// Timeout is how long to wait for a pended request. Default is DefaultOidTimeout.
	Timeout nnduration.Milliseconds `json:",omitempty"`
}

type OidRequestReply struct {
	Status       xdp.Status
	Pended       bool
	BytesWritten int
	BytesRead    int
	BytesNeeded  int
	Buffer       []byte `json:",omitempty"`
}

type SendArg struct {
	IfIndex uint32
	Frame   []byte
}
