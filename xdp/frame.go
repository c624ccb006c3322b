package xdp

// Buffer is one data region of a frame.
// The payload is Data[DataOffset : DataOffset+DataLength].
type Buffer struct {
	Data       []byte
	DataOffset uint32
	DataLength uint32
}

// Valid determines whether the data region lies within Data.
func (b Buffer) Valid() bool {
	return uint64(b.DataOffset)+uint64(b.DataLength) <= uint64(len(b.Data))
}

// Payload returns the data region.
func (b Buffer) Payload() []byte {
	return b.Data[b.DataOffset : b.DataOffset+b.DataLength]
}

// Frame is a frame descriptor.
type Frame struct {
	Buffers []Buffer
	// QueueID is the hardware queue that received the frame.
	QueueID uint32
	// Token identifies a TX frame on the completion ring.
	Token uint64
	// Action is set by RX inspection.
	Action RxAction
}

// MakeFrame creates a single-buffer Frame whose payload is the whole slice.
func MakeFrame(payload []byte) Frame {
	return Frame{Buffers: []Buffer{{Data: payload, DataLength: uint32(len(payload))}}}
}

// Valid determines whether the frame has at least one buffer and every buffer is valid.
func (f Frame) Valid() bool {
	if len(f.Buffers) == 0 {
		return false
	}
	for _, b := range f.Buffers {
		if !b.Valid() {
			return false
		}
	}
	return true
}

// Len returns total payload length.
func (f Frame) Len() (n int) {
	for _, b := range f.Buffers {
		n += int(b.DataLength)
	}
	return n
}

// Bytes returns a copy of the payload across all buffers.
func (f Frame) Bytes() []byte {
	wire := make([]byte, 0, f.Len())
	for _, b := range f.Buffers {
		wire = append(wire, b.Payload()...)
	}
	return wire
}
