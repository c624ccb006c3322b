package fnmp

import (
	"fmt"
)

// Oid identifies a control request.
type Oid uint32

// Oid values.
const (
	OidGenSupportedList          Oid = 0x00010101
	OidGenHardwareStatus         Oid = 0x00010102
	OidGenMediaSupported         Oid = 0x00010103
	OidGenMediaInUse             Oid = 0x00010104
	OidGenMaximumLookahead       Oid = 0x00010105
	OidGenMaximumFrameSize       Oid = 0x00010106
	OidGenLinkSpeed              Oid = 0x00010107
	OidGenTransmitBufferSpace    Oid = 0x00010108
	OidGenReceiveBufferSpace     Oid = 0x00010109
	OidGenTransmitBlockSize      Oid = 0x0001010A
	OidGenReceiveBlockSize       Oid = 0x0001010B
	OidGenVendorID               Oid = 0x0001010C
	OidGenVendorDescription      Oid = 0x0001010D
	OidGenCurrentPacketFilter    Oid = 0x0001010E
	OidGenCurrentLookahead       Oid = 0x0001010F
	OidGenDriverVersion          Oid = 0x00010110
	OidGenMaximumTotalSize       Oid = 0x00010111
	OidGenMacOptions             Oid = 0x00010113
	OidGenMediaConnectStatus     Oid = 0x00010114
	OidGenReceiveScaleParameters Oid = 0x00010204
	OidGenMaxLinkSpeed           Oid = 0x00010206
	OidGenLinkState              Oid = 0x00010207
	OidGenMediaDuplexState       Oid = 0x0001028C
	OidGenLinkSpeedEx            Oid = 0x0001028D
	OidGenMediaConnectStatusEx   Oid = 0x0001028E
	OidGenStatistics             Oid = 0x00020106
	Oid8023PermanentAddress      Oid = 0x01010101
	Oid8023CurrentAddress        Oid = 0x01010102
	Oid8023MulticastList         Oid = 0x01010103
	Oid8023MaximumListSize       Oid = 0x01010104
	OidOffloadEncapsulation      Oid = 0x0101010A
	OidPnpSetPower               Oid = 0xFD010101
	OidPnpQueryPower             Oid = 0xFD010102
	OidXdpQueryCapabilities      Oid = 0xFF00C901
)

// SupportedOids lists OIDs answered by the adapter, in the order reported by OidGenSupportedList.
var SupportedOids = []Oid{
	OidGenSupportedList,
	OidGenHardwareStatus,
	OidGenMediaSupported,
	OidGenMediaInUse,
	OidGenMaximumLookahead,
	OidGenMaximumFrameSize,
	OidGenLinkSpeed,
	OidGenTransmitBufferSpace,
	OidGenReceiveBufferSpace,
	OidGenTransmitBlockSize,
	OidGenReceiveBlockSize,
	OidGenVendorID,
	OidGenVendorDescription,
	OidGenCurrentPacketFilter,
	OidGenCurrentLookahead,
	OidGenDriverVersion,
	OidGenMaximumTotalSize,
	OidGenMacOptions,
	OidGenMediaConnectStatus,
	OidGenLinkSpeedEx,
	OidGenMaxLinkSpeed,
	OidGenMediaConnectStatusEx,
	OidGenMediaDuplexState,
	OidGenLinkState,
	OidGenStatistics,
	Oid8023PermanentAddress,
	Oid8023CurrentAddress,
	Oid8023MulticastList,
	Oid8023MaximumListSize,
	OidPnpSetPower,
	OidPnpQueryPower,
	OidOffloadEncapsulation,
	OidGenReceiveScaleParameters,
	OidXdpQueryCapabilities,
}

func (oid Oid) String() string {
	return fmt.Sprintf("OID(0x%08X)", uint32(oid))
}

// RequestType indicates the kind of a control request.
type RequestType uint32

// RequestType values.
const (
	RequestQuery           RequestType = 0
	RequestSet             RequestType = 1
	RequestQueryStatistics RequestType = 2
)

func (t RequestType) String() string {
	switch t {
	case RequestQuery:
		return "query"
	case RequestSet:
		return "set"
	case RequestQueryStatistics:
		return "query-statistics"
	}
	return fmt.Sprintf("RequestType(%d)", uint32(t))
}

// isQuery determines whether t is answered by the query path.
func (t RequestType) isQuery() bool {
	return t == RequestQuery || t == RequestQueryStatistics
}

// OidKey identifies a control request for filtering.
type OidKey struct {
	Oid         Oid         `json:"oid"`
	RequestType RequestType `json:"requestType"`
}

func (key OidKey) String() string {
	return fmt.Sprintf("%s %s", key.RequestType, key.Oid)
}

// Protocol constants reported by OID queries.
const (
	EthHdrLen             = 14
	MaxMulticastAddresses = 32
	VendorID              = 0x00FFFFFF
	DriverVersion         = 0x0650

	hardwareStatusReady     = 0
	medium8023              = 0
	mediaStateConnected     = 0
	mediaConnectStateUp     = 1
	mediaDuplexStateFull    = 2
	macOptionCopyLookahead  = 0x00000001
	macOptionTransfersNoPnd = 0x00000002
	macOptionNoLoopback     = 0x00000008

	objectTypeDefault              = 0x80
	objectTypeOffloadEncapsulation = 0xA8
	objectRevision1                = 1
	encapsulationIEEE8023          = 2
	offloadSetOn                   = 1

	// SizeofOffloadEncapsulation is the minimum set length of OidOffloadEncapsulation.
	SizeofOffloadEncapsulation = 4 + 2*12
	// SizeofReceiveScaleParameters is the minimum set length of OidGenReceiveScaleParameters.
	SizeofReceiveScaleParameters = 28
	// SizeofLinkState is the length of the OidGenLinkState answer.
	SizeofLinkState = 4 + 4 + 4 + 8 + 8 + 4 + 4
	// SizeofStatistics is the length of the OidGenStatistics answer.
	SizeofStatistics = 4 + 4 + 8*8
)

// VendorDescription is answered to OidGenVendorDescription.
var VendorDescription = []byte("XDPFNMP\x00")

const supportedStatistics = 0x00000001 | 0x00000002 | 0x00000004 | 0x00000008 |
	0x00000010 | 0x00000020 | 0x00000040 | 0x00000080
