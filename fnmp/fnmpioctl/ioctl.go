// Package fnmpioctl defines the control channel wire protocol of the functional-test miniport.
//
// A client opens a channel with an OpenPacket, then sends requests and reads one response per
// request. All integers are little endian.
package fnmpioctl

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/usnistgov/xdpfn/xdp"
)

var le = binary.LittleEndian

// MaxPayload limits input and output lengths on the wire.
const MaxPayload = 1 << 20

// OpenPacketMagic starts every OpenPacket.
const OpenPacketMagic = "XdpFnOpenPacket0"

// FileType selects the kind of handle opened on the channel.
type FileType uint32

// FileType values.
const (
	FileGeneric FileType = 0
	FileNative  FileType = 1
)

func (t FileType) String() string {
	switch t {
	case FileGeneric:
		return "generic"
	case FileNative:
		return "native"
	}
	return fmt.Sprintf("FileType(%d)", uint32(t))
}

// OpenPacket is the first message on a channel.
type OpenPacket struct {
	FileType FileType
	IfIndex  uint32
}

// SizeofOpenPacket is the encoded length of OpenPacket.
const SizeofOpenPacket = len(OpenPacketMagic) + 8

// MarshalBinary encodes to wire format.
func (p OpenPacket) MarshalBinary() (wire []byte, e error) {
	wire = append(make([]byte, 0, SizeofOpenPacket), OpenPacketMagic...)
	wire = le.AppendUint32(wire, uint32(p.FileType))
	wire = le.AppendUint32(wire, p.IfIndex)
	return wire, nil
}

// UnmarshalBinary decodes from wire format.
func (p *OpenPacket) UnmarshalBinary(wire []byte) error {
	if len(wire) != SizeofOpenPacket || string(wire[:len(OpenPacketMagic)]) != OpenPacketMagic {
		return fmt.Errorf("%w: bad open packet", xdp.StatusInvalidArgument)
	}
	wire = wire[len(OpenPacketMagic):]
	p.FileType = FileType(le.Uint32(wire))
	p.IfIndex = le.Uint32(wire[4:])
	return nil
}

// ReadOpenPacket reads an OpenPacket.
func ReadOpenPacket(r io.Reader) (p OpenPacket, e error) {
	wire := make([]byte, SizeofOpenPacket)
	if _, e = io.ReadFull(r, wire); e != nil {
		return p, e
	}
	e = p.UnmarshalBinary(wire)
	return p, e
}

// Opcode identifies a request.
type Opcode uint32

// Opcode values.
const (
	OpRxEnqueue Opcode = iota
	OpRxFlush
	OpXdpRegister
	OpXdpDeregister
	OpTxFilter
	OpTxGetFrame
	OpTxDequeueFrame
	OpTxFlush
	OpMiniportPauseTimestamp
	OpMiniportSetMTU
	OpOidSetFilter
	OpOidGetRequest
	OpOidCompleteRequest
)

var opcodeStrings = map[Opcode]string{
	OpRxEnqueue:              "RX_ENQUEUE",
	OpRxFlush:                "RX_FLUSH",
	OpXdpRegister:            "XDP_REGISTER",
	OpXdpDeregister:          "XDP_DEREGISTER",
	OpTxFilter:               "TX_FILTER",
	OpTxGetFrame:             "TX_GET_FRAME",
	OpTxDequeueFrame:         "TX_DEQUEUE_FRAME",
	OpTxFlush:                "TX_FLUSH",
	OpMiniportPauseTimestamp: "MINIPORT_PAUSE_TIMESTAMP",
	OpMiniportSetMTU:         "MINIPORT_SET_MTU",
	OpOidSetFilter:           "OID_SET_FILTER",
	OpOidGetRequest:          "OID_GET_REQUEST",
	OpOidCompleteRequest:     "OID_COMPLETE_REQUEST",
}

func (op Opcode) String() string {
	if s, ok := opcodeStrings[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", uint32(op))
}

// RequestHeader precedes request input.
type RequestHeader struct {
	Opcode       Opcode
	InputLength  uint32
	OutputLength uint32
}

// ResponseHeader precedes response output.
// Information carries bytes written on success, or bytes needed with StatusBufferTooShort.
type ResponseHeader struct {
	Status       xdp.Status
	Information  uint32
	OutputLength uint32
}

func readPayload(r io.Reader, n uint32) ([]byte, error) {
	if n > MaxPayload {
		return nil, fmt.Errorf("%w: payload length %d", xdp.StatusInvalidLength, n)
	}
	payload := make([]byte, n)
	if _, e := io.ReadFull(r, payload); e != nil {
		return nil, e
	}
	return payload, nil
}

// WriteRequest writes a request in a single Write call.
func WriteRequest(w io.Writer, op Opcode, input []byte, outLen int) error {
	wire := le.AppendUint32(make([]byte, 0, 12+len(input)), uint32(op))
	wire = le.AppendUint32(wire, uint32(len(input)))
	wire = le.AppendUint32(wire, uint32(outLen))
	_, e := w.Write(append(wire, input...))
	return e
}

// ReadRequest reads a request.
func ReadRequest(r io.Reader) (hdr RequestHeader, input []byte, e error) {
	if e = binary.Read(r, le, &hdr); e != nil {
		return hdr, nil, e
	}
	input, e = readPayload(r, hdr.InputLength)
	return hdr, input, e
}

// WriteResponse writes a response in a single Write call.
func WriteResponse(w io.Writer, st xdp.Status, information uint32, output []byte) error {
	wire := le.AppendUint32(make([]byte, 0, 12+len(output)), uint32(st))
	wire = le.AppendUint32(wire, information)
	wire = le.AppendUint32(wire, uint32(len(output)))
	_, e := w.Write(append(wire, output...))
	return e
}

// ReadResponse reads a response.
func ReadResponse(r io.Reader) (hdr ResponseHeader, output []byte, e error) {
	if e = binary.Read(r, le, &hdr); e != nil {
		return hdr, nil, e
	}
	output, e = readPayload(r, hdr.OutputLength)
	return hdr, output, e
}

// ResponseError converts a response header to an error.
// StatusBufferTooShort becomes xdp.BufferTooShortError with the needed size.
func ResponseError(hdr ResponseHeader) error {
	switch hdr.Status {
	case xdp.StatusSuccess:
		return nil
	case xdp.StatusBufferTooShort:
		return xdp.BufferTooShortError{Needed: int(hdr.Information)}
	}
	return hdr.Status
}
