package fnmp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/xdp"
)

var le = binary.LittleEndian

func u32(v uint32) []byte {
	return le.AppendUint32(nil, v)
}

func objectHeader(objType, revision uint8, size uint16) []byte {
	return le.AppendUint16([]byte{objType, revision}, size)
}

func (a *Adapter) processQuery(req *OidRequest, shouldFilter bool) error {
	if req.Key.Oid == OidXdpQueryCapabilities {
		a.lock.RLock()
		nat := a.native
		a.lock.RUnlock()
		if nat == nil {
			return fmt.Errorf("%w: no native handle", xdp.StatusNotSupported)
		}
		return nat.queryCapabilities(req)
	}

	req.BytesWritten = 0
	if shouldFilter && a.filterOid(req) {
		return xdp.StatusPending
	}

	data, e := a.queryData(req)
	if e != nil {
		return e
	}
	if len(req.InformationBuffer) < len(data) {
		req.BytesNeeded = len(data)
		return xdp.BufferTooShortError{Needed: len(data)}
	}
	req.BytesWritten = copy(req.InformationBuffer, data)
	return nil
}

// queryData returns the answer of a query.
func (a *Adapter) queryData(req *OidRequest) ([]byte, error) {
	a.lock.RLock()
	defer a.lock.RUnlock()
	linkSpeed := a.cfg.LinkSpeed

	switch req.Key.Oid {
	case OidGenSupportedList:
		data := make([]byte, 0, 4*len(SupportedOids))
		for _, oid := range SupportedOids {
			data = le.AppendUint32(data, uint32(oid))
		}
		return data, nil
	case OidGenHardwareStatus:
		return u32(hardwareStatusReady), nil
	case OidGenMediaSupported, OidGenMediaInUse:
		return u32(medium8023), nil
	case OidGenMaximumLookahead, OidGenMaximumFrameSize:
		return u32(uint32(a.mtu)), nil
	case OidGenCurrentLookahead:
		return u32(a.lookahead), nil
	case OidGenLinkSpeed:
		// in 100 bps units
		return u32(uint32(linkSpeed / 100)), nil
	case OidGenTransmitBufferSpace, OidGenReceiveBufferSpace, OidGenMaximumTotalSize,
		OidGenTransmitBlockSize, OidGenReceiveBlockSize:
		return u32(uint32(a.mtu + EthHdrLen)), nil
	case OidGenVendorID:
		return u32(VendorID), nil
	case OidGenVendorDescription:
		return bytes.Clone(VendorDescription), nil
	case OidGenCurrentPacketFilter:
		return u32(a.packetFilter), nil
	case OidGenDriverVersion:
		return le.AppendUint16(nil, DriverVersion), nil
	case OidGenMacOptions:
		return u32(macOptionNoLoopback | macOptionCopyLookahead | macOptionTransfersNoPnd), nil
	case OidGenLinkState:
		data := objectHeader(objectTypeDefault, objectRevision1, SizeofLinkState)
		data = le.AppendUint32(data, mediaConnectStateUp)
		data = le.AppendUint32(data, mediaDuplexStateFull)
		data = le.AppendUint64(data, linkSpeed)
		data = le.AppendUint64(data, linkSpeed)
		data = le.AppendUint32(data, 0)
		data = le.AppendUint32(data, 0)
		return data, nil
	case OidGenMediaConnectStatus:
		return u32(mediaStateConnected), nil
	case Oid8023PermanentAddress:
		return bytes.Clone(a.permanent), nil
	case Oid8023CurrentAddress:
		return bytes.Clone(a.mac), nil
	case Oid8023MaximumListSize:
		return u32(MaxMulticastAddresses), nil
	case Oid8023MulticastList:
		if len(req.InformationBuffer)%macaddr.Len != 0 {
			return nil, fmt.Errorf("%w: buffer length %d", xdp.StatusInvalidLength, len(req.InformationBuffer))
		}
		return macaddr.EncodeList(a.multicast), nil
	case OidPnpQueryPower:
		return u32(0), nil
	case OidGenLinkSpeedEx, OidGenMaxLinkSpeed:
		return le.AppendUint64(le.AppendUint64(nil, linkSpeed), linkSpeed), nil
	case OidGenMediaConnectStatusEx:
		return u32(mediaConnectStateUp), nil
	case OidGenMediaDuplexState:
		return u32(mediaDuplexStateFull), nil
	case OidGenStatistics:
		data := objectHeader(objectTypeDefault, objectRevision1, SizeofStatistics)
		data = le.AppendUint32(data, supportedStatistics)
		for _, v := range []uint64{
			a.cnt.rxDropped.Load(),
			0,
			a.cnt.rxIndicated.Load(),
			0,
			0,
			a.cnt.txCompleted.Load(),
			0,
			0,
		} {
			data = le.AppendUint64(data, v)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%w: %s", xdp.StatusNotSupported, req.Key)
}

func (a *Adapter) processSet(req *OidRequest, shouldFilter bool) error {
	if shouldFilter && a.filterOid(req) {
		return xdp.StatusPending
	}

	info := req.InformationBuffer
	invalidLength := func() error {
		return fmt.Errorf("%w: %s with %d octets", xdp.StatusInvalidLength, req.Key, len(info))
	}

	switch req.Key.Oid {
	case OidOffloadEncapsulation:
		if len(info) < SizeofOffloadEncapsulation {
			return invalidLength()
		}
		if info[0] != objectTypeOffloadEncapsulation || info[1] < objectRevision1 ||
			le.Uint16(info[2:]) < SizeofOffloadEncapsulation {
			return fmt.Errorf("%w: offload encapsulation header", xdp.StatusInvalidArgument)
		}
		// IPv4 and IPv6 sections: {Enabled, EncapsulationType, HeaderSize}
		for _, section := range [][]byte{info[4:16], info[16:28]} {
			if le.Uint32(section) == offloadSetOn &&
				(le.Uint32(section[4:]) != encapsulationIEEE8023 || le.Uint32(section[8:]) != EthHdrLen) {
				return fmt.Errorf("%w: offload encapsulation", xdp.StatusNotSupported)
			}
		}
		return nil

	case OidGenCurrentPacketFilter:
		if len(info) < 4 {
			return invalidLength()
		}
		a.lock.Lock()
		a.packetFilter = le.Uint32(info)
		a.lock.Unlock()
		req.BytesRead = len(info)
		return nil

	case OidGenCurrentLookahead:
		if len(info) < 4 {
			return invalidLength()
		}
		lookahead := le.Uint32(info)
		a.lock.Lock()
		defer a.lock.Unlock()
		if lookahead > uint32(a.mtu) {
			return fmt.Errorf("%w: lookahead %d exceeds MTU %d", xdp.StatusInvalidLength, lookahead, a.mtu)
		}
		if lookahead >= a.lookahead {
			a.lookahead = lookahead
			req.BytesRead = 4
		}
		return nil

	case Oid8023MulticastList:
		if len(info)%macaddr.Len != 0 || len(info) > MaxMulticastAddresses*macaddr.Len {
			return invalidLength()
		}
		list, _ := macaddr.DecodeList(info)
		a.lock.Lock()
		a.multicast = list
		a.lock.Unlock()
		req.BytesRead = len(info)
		return nil

	case OidPnpSetPower:
		if len(info) < 4 {
			return invalidLength()
		}
		a.lock.Lock()
		a.powerState = le.Uint32(info)
		a.lock.Unlock()
		req.BytesRead = 4
		return nil

	case OidGenReceiveScaleParameters:
		if len(info) < SizeofReceiveScaleParameters {
			return invalidLength()
		}
		a.lock.Lock()
		a.rssParams = bytes.Clone(info)
		a.lock.Unlock()
		req.BytesRead = len(info)
		return nil
	}
	return fmt.Errorf("%w: %s", xdp.StatusNotSupported, req.Key)
}

// Multicast returns the multicast address list.
func (a *Adapter) Multicast() []net.HardwareAddr {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return append([]net.HardwareAddr(nil), a.multicast...)
}

// PacketFilter returns the current packet filter.
func (a *Adapter) PacketFilter() uint32 {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.packetFilter
}

// Lookahead returns the current lookahead.
func (a *Adapter) Lookahead() uint32 {
	a.lock.RLock()
	defer a.lock.RUnlock()
	return a.lookahead
}
