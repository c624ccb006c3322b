// Package fnmpapi is a test harness client of the functional-test miniport control channel.
package fnmpapi

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/math"

	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/fnmp/fnmpioctl"
	"github.com/usnistgov/xdpfn/xdp"
)

// DefaultDevice is the default control socket of the miniport service.
const DefaultDevice = "/run/xdpfnmp.sock"

// Handle is an open control channel.
// Methods are safe for concurrent use; requests are serialized.
type Handle struct {
	conn     io.ReadWriteCloser
	fileType fnmpioctl.FileType
	ifIndex  uint32

	lock sync.Mutex
}

// Open opens a handle on an established connection.
// On failure, conn is closed.
func Open(conn io.ReadWriteCloser, fileType fnmpioctl.FileType, ifIndex uint32) (*Handle, error) {
	wire, _ := fnmpioctl.OpenPacket{FileType: fileType, IfIndex: ifIndex}.MarshalBinary()
	if _, e := conn.Write(wire); e != nil {
		conn.Close()
		return nil, e
	}
	hdr, _, e := fnmpioctl.ReadResponse(conn)
	if e == nil {
		e = fnmpioctl.ResponseError(hdr)
	}
	if e != nil {
		conn.Close()
		return nil, fmt.Errorf("open %s ifindex %d: %w", fileType, ifIndex, e)
	}
	return &Handle{conn: conn, fileType: fileType, ifIndex: ifIndex}, nil
}

// Dial connects to the control socket and opens a handle.
func Dial(device string, fileType fnmpioctl.FileType, ifIndex uint32) (*Handle, error) {
	if device == "" {
		device = DefaultDevice
	}
	conn, e := net.Dial("unix", device)
	if e != nil {
		return nil, e
	}
	return Open(conn, fileType, ifIndex)
}

// FileType returns the handle kind.
func (h *Handle) FileType() fnmpioctl.FileType {
	return h.fileType
}

// IfIndex returns the adapter ifindex.
func (h *Handle) IfIndex() uint32 {
	return h.ifIndex
}

// Close closes the channel.
// The miniport closes the handle, completing captured TX frames and clearing its OID filter.
func (h *Handle) Close() error {
	return h.conn.Close()
}

// Do sends a raw request and returns the response output.
// On StatusBufferTooShort, the error is xdp.BufferTooShortError carrying the needed size.
func (h *Handle) Do(op fnmpioctl.Opcode, input []byte, outLen int) (output []byte, e error) {
	h.lock.Lock()
	defer h.lock.Unlock()
	if e = fnmpioctl.WriteRequest(h.conn, op, input, outLen); e != nil {
		return nil, e
	}
	hdr, output, e := fnmpioctl.ReadResponse(h.conn)
	if e != nil {
		return nil, e
	}
	if e = fnmpioctl.ResponseError(hdr); e != nil {
		return nil, fmt.Errorf("%s: %w", op, e)
	}
	return output, nil
}

// RxEnqueue appends a frame to the RX backlog.
func (h *Handle) RxEnqueue(frame xdp.Frame) error {
	_, e := h.Do(fnmpioctl.OpRxEnqueue, fnmpioctl.EncodeRxFrame(frame), 0)
	return e
}

// RxFlush indicates the RX backlog.
func (h *Handle) RxFlush(opts fnmp.RxFlushOptions) error {
	input, _ := fnmpioctl.RxFlushOptions{Flags: uint32(opts.Flags), QueueID: opts.QueueID}.MarshalBinary()
	_, e := h.Do(fnmpioctl.OpRxFlush, input, 0)
	return e
}

// TxFilter installs the TX capture filter. Zero length disables capture.
func (h *Handle) TxFilter(pattern, mask []byte) error {
	_, e := h.Do(fnmpioctl.OpTxFilter, fnmpioctl.EncodeTxFilter(pattern, mask), 0)
	return e
}

// TxGetFrame retrieves a captured TX frame into a buffer of outLen octets.
// Buffers of the returned frame are rebased into the response.
func (h *Handle) TxGetFrame(index uint32, outLen int) (xdp.Frame, error) {
	output, e := h.Do(fnmpioctl.OpTxGetFrame, fnmpioctl.EncodeUint32(index), outLen)
	if e != nil {
		return xdp.Frame{}, e
	}
	return fnmpioctl.DecodeTxFrame(output)
}

// TxReadFrame retrieves a captured TX frame, retrying once with the needed buffer size.
func (h *Handle) TxReadFrame(index uint32) (xdp.Frame, error) {
	frame, e := h.TxGetFrame(index, 0)
	if needed, ok := xdp.BytesNeeded(e); ok {
		return h.TxGetFrame(index, needed)
	}
	return frame, e
}

// TxDequeueFrame moves a captured frame to the completion queue.
func (h *Handle) TxDequeueFrame(index uint32) error {
	_, e := h.Do(fnmpioctl.OpTxDequeueFrame, fnmpioctl.EncodeUint32(index), 0)
	return e
}

// TxFlush completes dequeued frames.
func (h *Handle) TxFlush() error {
	_, e := h.Do(fnmpioctl.OpTxFlush, nil, 0)
	return e
}

func toWireKeys(keys []fnmp.OidKey) (wire []fnmpioctl.OidKey) {
	for _, key := range keys {
		wire = append(wire, fnmpioctl.OidKey{Oid: uint32(key.Oid), RequestType: uint32(key.RequestType)})
	}
	return wire
}

// OidSetFilter installs the adapter OID filter.
func (h *Handle) OidSetFilter(keys ...fnmp.OidKey) error {
	_, e := h.Do(fnmpioctl.OpOidSetFilter, fnmpioctl.EncodeOidKeys(toWireKeys(keys)...), 0)
	return e
}

// OidGetRequest retrieves the information buffer of the pending request into outLen octets.
func (h *Handle) OidGetRequest(key fnmp.OidKey, outLen int) ([]byte, error) {
	return h.Do(fnmpioctl.OpOidGetRequest, fnmpioctl.EncodeOidKeys(toWireKeys([]fnmp.OidKey{key})...), outLen)
}

// OidCompleteRequest completes the pending request.
func (h *Handle) OidCompleteRequest() error {
	_, e := h.Do(fnmpioctl.OpOidCompleteRequest, nil, 0)
	return e
}

const maxWaitBackoff = 50 * time.Millisecond

// WaitOid polls until a request matching key is pending, and returns its information buffer.
func (h *Handle) WaitOid(key fnmp.OidKey, timeout time.Duration) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	outLen, backoff := 0, time.Millisecond
	for {
		info, e := h.OidGetRequest(key, outLen)
		if needed, ok := xdp.BytesNeeded(e); ok {
			outLen = needed
			continue
		}
		if !errors.Is(e, xdp.StatusNotFound) || time.Now().After(deadline) {
			return info, e
		}
		time.Sleep(backoff)
		backoff = time.Duration(math.MinInt64(int64(backoff*2), int64(maxWaitBackoff)))
	}
}

// Generic is a generic handle.
type Generic struct {
	*Handle
}

// OpenGeneric opens a generic handle on an established connection.
func OpenGeneric(conn io.ReadWriteCloser, ifIndex uint32) (*Generic, error) {
	h, e := Open(conn, fnmpioctl.FileGeneric, ifIndex)
	if e != nil {
		return nil, e
	}
	return &Generic{h}, nil
}

// PauseTimestamp returns when the adapter data path last paused.
func (g *Generic) PauseTimestamp() (time.Time, error) {
	output, e := g.Do(fnmpioctl.OpMiniportPauseTimestamp, nil, 8)
	if e != nil {
		return time.Time{}, e
	}
	return fnmpioctl.DecodeTimestamp(output)
}

// SetMTU changes adapter MTU, restarting its data path.
func (g *Generic) SetMTU(mtu int) error {
	_, e := g.Do(fnmpioctl.OpMiniportSetMTU, fnmpioctl.EncodeUint32(uint32(mtu)), 0)
	return e
}

// Native is a native handle.
type Native struct {
	*Handle
}

// OpenNative opens a native handle on an established connection.
func OpenNative(conn io.ReadWriteCloser, ifIndex uint32) (*Native, error) {
	h, e := Open(conn, fnmpioctl.FileNative, ifIndex)
	if e != nil {
		return nil, e
	}
	return &Native{h}, nil
}

// XdpRegister registers the adapter with the XDP platform.
func (nat *Native) XdpRegister() error {
	_, e := nat.Do(fnmpioctl.OpXdpRegister, nil, 0)
	return e
}

// XdpDeregister deregisters the adapter from the XDP platform.
func (nat *Native) XdpDeregister() error {
	_, e := nat.Do(fnmpioctl.OpXdpDeregister, nil, 0)
	return e
}
