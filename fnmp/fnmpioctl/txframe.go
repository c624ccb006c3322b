package fnmpioctl

import (
	"fmt"

	"github.com/usnistgov/xdpfn/xdp"
)

// Self-relative TX frame layout:
// {BufferCount, BuffersOffset}, buffer table of {BufferLength, DataOffset, DataLength, AddressOffset},
// then buffer data. Offsets are relative to the start of the frame.
const (
	sizeofTxFrameHeader = 8
	sizeofTxFrameBuffer = 16
)

// TxFrameSize returns the encoded length of a TX_GET_FRAME output.
func TxFrameSize(frame xdp.Frame) int {
	n := sizeofTxFrameHeader + sizeofTxFrameBuffer*len(frame.Buffers)
	for _, b := range frame.Buffers {
		n += len(b.Data)
	}
	return n
}

// EncodeTxFrame encodes a TX_GET_FRAME output.
// Fails with xdp.BufferTooShortError if the encoding exceeds outLen.
func EncodeTxFrame(frame xdp.Frame, outLen int) ([]byte, error) {
	size := TxFrameSize(frame)
	if size > outLen {
		return nil, xdp.BufferTooShortError{Needed: size}
	}

	wire := make([]byte, 0, size)
	wire = le.AppendUint32(wire, uint32(len(frame.Buffers)))
	wire = le.AppendUint32(wire, sizeofTxFrameHeader)
	addr := sizeofTxFrameHeader + sizeofTxFrameBuffer*len(frame.Buffers)
	for _, b := range frame.Buffers {
		wire = le.AppendUint32(wire, uint32(len(b.Data)))
		wire = le.AppendUint32(wire, b.DataOffset)
		wire = le.AppendUint32(wire, b.DataLength)
		wire = le.AppendUint32(wire, uint32(addr))
		addr += len(b.Data)
	}
	for _, b := range frame.Buffers {
		wire = append(wire, b.Data...)
	}
	return wire, nil
}

// DecodeTxFrame decodes a TX_GET_FRAME output, rebasing buffer addresses into slices of wire.
func DecodeTxFrame(wire []byte) (frame xdp.Frame, e error) {
	d := decoder(wire)
	count, ok1 := d.u32()
	tableOffset, ok2 := d.u32()
	if !ok1 || !ok2 {
		return frame, errTruncated("TX frame header")
	}
	tableEnd := uint64(tableOffset) + uint64(count)*sizeofTxFrameBuffer
	if tableEnd > uint64(len(wire)) {
		return frame, errTruncated("TX frame buffer table")
	}

	table := decoder(wire[tableOffset:tableEnd])
	frame.Buffers = make([]xdp.Buffer, count)
	for i := range frame.Buffers {
		bufLen, _ := table.u32()
		dataOffset, _ := table.u32()
		dataLength, _ := table.u32()
		addr, _ := table.u32()
		if end := uint64(addr) + uint64(bufLen); end > uint64(len(wire)) {
			return xdp.Frame{}, fmt.Errorf("%w: TX frame buffer %d outside frame", xdp.StatusInvalidArgument, i)
		}
		b := xdp.Buffer{Data: wire[addr : addr+bufLen : addr+bufLen], DataOffset: dataOffset, DataLength: dataLength}
		if !b.Valid() {
			return xdp.Frame{}, fmt.Errorf("%w: TX frame buffer %d data region", xdp.StatusInvalidArgument, i)
		}
		frame.Buffers[i] = b
	}
	return frame, nil
}
