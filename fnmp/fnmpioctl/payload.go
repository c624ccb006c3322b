package fnmpioctl

import (
	"fmt"
	"time"

	"github.com/usnistgov/xdpfn/xdp"
)

// decoder consumes little endian fields.
type decoder []byte

func (d *decoder) u32() (v uint32, ok bool) {
	if len(*d) < 4 {
		return 0, false
	}
	v = le.Uint32(*d)
	*d = (*d)[4:]
	return v, true
}

func (d *decoder) bytes(n uint32) (b []byte, ok bool) {
	if uint64(len(*d)) < uint64(n) {
		return nil, false
	}
	b, *d = (*d)[:n:n], (*d)[n:]
	return b, true
}

func errTruncated(what string) error {
	return fmt.Errorf("%w: truncated %s", xdp.StatusInvalidArgument, what)
}

// EncodeUint32 encodes a single integer, such as a TX frame index or MTU.
func EncodeUint32(v uint32) []byte {
	return le.AppendUint32(nil, v)
}

// DecodeUint32 decodes a single integer.
func DecodeUint32(wire []byte) (uint32, error) {
	if len(wire) < 4 {
		return 0, errTruncated("integer")
	}
	return le.Uint32(wire), nil
}

// EncodeTimestamp encodes a timestamp as nanoseconds since the Unix epoch, zero if unset.
func EncodeTimestamp(t time.Time) []byte {
	var ns uint64
	if !t.IsZero() {
		ns = uint64(t.UnixNano())
	}
	return le.AppendUint64(nil, ns)
}

// DecodeTimestamp decodes a timestamp.
func DecodeTimestamp(wire []byte) (time.Time, error) {
	if len(wire) < 8 {
		return time.Time{}, errTruncated("timestamp")
	}
	ns := le.Uint64(wire)
	if ns == 0 {
		return time.Time{}, nil
	}
	return time.Unix(0, int64(ns)), nil
}

// EncodeRxFrame encodes an RX_ENQUEUE input.
// Layout: {QueueID, BufferCount} then per buffer {BufferLength, DataOffset, DataLength} and bytes.
func EncodeRxFrame(frame xdp.Frame) []byte {
	wire := le.AppendUint32(nil, frame.QueueID)
	wire = le.AppendUint32(wire, uint32(len(frame.Buffers)))
	for _, b := range frame.Buffers {
		wire = le.AppendUint32(wire, uint32(len(b.Data)))
		wire = le.AppendUint32(wire, b.DataOffset)
		wire = le.AppendUint32(wire, b.DataLength)
		wire = append(wire, b.Data...)
	}
	return wire
}

// DecodeRxFrame decodes an RX_ENQUEUE input.
// Buffers reference wire. Data regions are not validated.
func DecodeRxFrame(wire []byte) (frame xdp.Frame, e error) {
	d := decoder(wire)
	queueID, ok1 := d.u32()
	count, ok2 := d.u32()
	if !ok1 || !ok2 {
		return frame, errTruncated("RX frame header")
	}
	if uint64(count)*12 > uint64(len(d)) {
		return frame, errTruncated("RX frame buffers")
	}
	frame.QueueID = queueID
	frame.Buffers = make([]xdp.Buffer, count)
	for i := range frame.Buffers {
		bufLen, _ := d.u32()
		dataOffset, _ := d.u32()
		dataLength, ok := d.u32()
		data, ok3 := d.bytes(bufLen)
		if !ok || !ok3 {
			return xdp.Frame{}, errTruncated("RX frame buffer")
		}
		frame.Buffers[i] = xdp.Buffer{Data: data, DataOffset: dataOffset, DataLength: dataLength}
	}
	if len(d) != 0 {
		return xdp.Frame{}, fmt.Errorf("%w: junk after RX frame", xdp.StatusInvalidArgument)
	}
	return frame, nil
}

// RxFlushOptions is the RX_FLUSH input.
type RxFlushOptions struct {
	Flags   uint32
	QueueID uint32
}

// MarshalBinary encodes to wire format.
func (opts RxFlushOptions) MarshalBinary() (wire []byte, e error) {
	return le.AppendUint32(le.AppendUint32(nil, opts.Flags), opts.QueueID), nil
}

// UnmarshalBinary decodes from wire format. Empty input means zero options.
func (opts *RxFlushOptions) UnmarshalBinary(wire []byte) error {
	*opts = RxFlushOptions{}
	if len(wire) == 0 {
		return nil
	}
	d := decoder(wire)
	flags, ok1 := d.u32()
	queueID, ok2 := d.u32()
	if !ok1 || !ok2 {
		return errTruncated("RX flush options")
	}
	opts.Flags, opts.QueueID = flags, queueID
	return nil
}

// EncodeTxFilter encodes a TX_FILTER input: {Length} then pattern and mask.
func EncodeTxFilter(pattern, mask []byte) []byte {
	wire := le.AppendUint32(nil, uint32(len(pattern)))
	wire = append(wire, pattern...)
	return append(wire, mask...)
}

// DecodeTxFilter decodes a TX_FILTER input.
func DecodeTxFilter(wire []byte) (pattern, mask []byte, e error) {
	d := decoder(wire)
	n, ok := d.u32()
	if !ok {
		return nil, nil, errTruncated("TX filter")
	}
	pattern, ok1 := d.bytes(n)
	mask, ok2 := d.bytes(n)
	if !ok1 || !ok2 || len(d) != 0 {
		return nil, nil, fmt.Errorf("%w: TX filter length mismatch", xdp.StatusInvalidArgument)
	}
	return pattern, mask, nil
}

// OidKey is an OID filter key on the wire.
type OidKey struct {
	Oid         uint32
	RequestType uint32
}

// SizeofOidKey is the encoded length of OidKey.
const SizeofOidKey = 8

// EncodeOidKeys encodes an OID_SET_FILTER input, or an OID_GET_REQUEST input with one key.
func EncodeOidKeys(keys ...OidKey) []byte {
	wire := make([]byte, 0, SizeofOidKey*len(keys))
	for _, key := range keys {
		wire = le.AppendUint32(wire, key.Oid)
		wire = le.AppendUint32(wire, key.RequestType)
	}
	return wire
}

// DecodeOidKeys decodes a list of OID keys.
// Fails with StatusInvalidArgument if wire is empty or not a multiple of SizeofOidKey.
func DecodeOidKeys(wire []byte) (keys []OidKey, e error) {
	if len(wire) == 0 || len(wire)%SizeofOidKey != 0 {
		return nil, fmt.Errorf("%w: OID key list length %d", xdp.StatusInvalidArgument, len(wire))
	}
	for d := decoder(wire); len(d) > 0; {
		oid, _ := d.u32()
		rt, _ := d.u32()
		keys = append(keys, OidKey{Oid: oid, RequestType: rt})
	}
	return keys, nil
}
