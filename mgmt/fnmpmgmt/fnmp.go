// Package fnmpmgmt exposes functional-test miniport adapters over management RPC.
package fnmpmgmt

import (
	"errors"
	"fmt"
	"time"

	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

// DefaultOidTimeout is the default wait for a pended OID request.
const DefaultOidTimeout = 10000

type FnmpMgmt struct {
	Miniport *fnmp.Miniport
}

func (mg FnmpMgmt) adapter(ifIndex uint32) (*fnmp.Adapter, error) {
	a := mg.Miniport.Adapter(ifIndex)
	if a == nil {
		return nil, fmt.Errorf("%w: adapter ifindex %d", xdp.StatusNotFound, ifIndex)
	}
	return a, nil
}

func (mg FnmpMgmt) List(args struct{}, reply *[]BasicInfo) error {
	result := make([]BasicInfo, 0)
	for _, a := range mg.Miniport.Adapters() {
		result = append(result, newBasicInfo(a))
	}
	*reply = result
	return nil
}

func (mg FnmpMgmt) Get(args IfIndexArg, reply *AdapterInfo) error {
	a, e := mg.adapter(args.IfIndex)
	if e != nil {
		return e
	}

	reply.BasicInfo = newBasicInfo(a)
	reply.RxQueues = a.RxQueues()
	reply.Counters = a.Counters()
	reply.PauseTimestamp = a.PauseTimestamp()
	reply.HasGeneric = a.HasGeneric()
	reply.HasNative = a.HasNative()
	reply.Registered = a.Registration() != nil
	reply.OidFilter = a.OidFilter()
	if key, ok := a.PendingOid(); ok {
		reply.PendingOid = &key
	}
	return nil
}

// TakeIndicated returns and clears frames indicated to the upper layer.
func (mg FnmpMgmt) TakeIndicated(args IfIndexArg, reply *[][]byte) error {
	a, e := mg.adapter(args.IfIndex)
	if e != nil {
		return e
	}
	frames := a.TakeIndicated()
	if frames == nil {
		frames = [][]byte{}
	}
	*reply = frames
	return nil
}

// OidRequest submits a control request on behalf of the upper layer.
// If the request is pended by the OID filter, it waits for completion up to a timeout.
func (mg FnmpMgmt) OidRequest(args OidRequestArg, reply *OidRequestReply) error {
	a, e := mg.adapter(args.IfIndex)
	if e != nil {
		return e
	}

	*reply = OidRequestReply{}
	info := args.Buffer
	if args.RequestType != fnmp.RequestSet {
		info = make([]byte, args.Length)
	}
	req := fnmp.NewOidRequest(fnmp.OidKey{Oid: args.Oid, RequestType: args.RequestType}, info)
	if e := a.OidRequest(req); errors.Is(e, xdp.StatusPending) {
		reply.Pended = true
		select {
		case <-req.Done():
		case <-time.After(args.Timeout.DurationOr(DefaultOidTimeout)):
			return fmt.Errorf("OID %s still pending", req.Key)
		}
	}

	reply.Status = xdp.StatusOf(req.Err())
	reply.BytesWritten, reply.BytesRead, reply.BytesNeeded = req.BytesWritten, req.BytesRead, req.BytesNeeded
	if args.RequestType != fnmp.RequestSet && reply.Status == xdp.StatusSuccess {
		reply.Buffer = info[:req.BytesWritten]
	}
	return nil
}

// Send passes a frame from the upper layer to the adapter TX path.
func (mg FnmpMgmt) Send(args SendArg, reply *struct{}) error {
	a, e := mg.adapter(args.IfIndex)
	if e != nil {
		return e
	}
	return a.Send(args.Frame)
}
