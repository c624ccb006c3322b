package fnmp

import (
	"errors"
	"fmt"
	"io"
	"net"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/fnmp/fnmpioctl"
	"github.com/usnistgov/xdpfn/xdp"
)

// Serve accepts control channels on a listener.
// It returns when the listener fails or is closed.
func (mp *Miniport) Serve(l net.Listener) error {
	for {
		conn, e := l.Accept()
		if e != nil {
			return e
		}
		go func() {
			if e := mp.ServeConn(conn); e != nil {
				logger.Warn("control channel error", zap.Error(e))
			}
		}()
	}
}

// ServeConn serves one control channel.
// The first message must be an OpenPacket. The handle it opens is closed when the channel ends.
func (mp *Miniport) ServeConn(conn io.ReadWriteCloser) error {
	defer conn.Close()
	p, e := fnmpioctl.ReadOpenPacket(conn)
	if e != nil {
		return e
	}

	ch, e := mp.openChannel(p)
	if we := fnmpioctl.WriteResponse(conn, xdp.StatusOf(e), 0, nil); we != nil || e != nil {
		if ch != nil {
			ch.close()
		}
		if e != nil {
			logger.Info("control channel rejected", zap.Stringer("type", p.FileType), zap.Uint32("ifindex", p.IfIndex), zap.Error(e))
		}
		return we
	}
	defer ch.close()

	for {
		hdr, input, e := fnmpioctl.ReadRequest(conn)
		switch {
		case errors.Is(e, io.EOF), errors.Is(e, net.ErrClosed), errors.Is(e, io.ErrClosedPipe):
			return nil
		case e != nil:
			return e
		}

		output, e := ch.dispatch(hdr, input)
		st, info := xdp.StatusOf(e), uint32(len(output))
		if needed, ok := xdp.BytesNeeded(e); ok {
			info = uint32(needed)
		}
		ch.h.logger.Debug("control request",
			zap.Stringer("op", hdr.Opcode),
			zap.Uint32("input", hdr.InputLength),
			zap.Stringer("status", st),
		)
		if e = fnmpioctl.WriteResponse(conn, st, info, output); e != nil {
			return e
		}
	}
}

// channel is a control channel bound to a handle.
type channel struct {
	h   *handle
	g   *Generic
	nat *Native
}

func (mp *Miniport) openChannel(p fnmpioctl.OpenPacket) (ch *channel, e error) {
	a := mp.Adapter(p.IfIndex)
	if a == nil {
		return nil, fmt.Errorf("%w: adapter ifindex %d", xdp.StatusNotFound, p.IfIndex)
	}

	ch = &channel{}
	switch p.FileType {
	case fnmpioctl.FileGeneric:
		if ch.g, e = a.OpenGeneric(); e != nil {
			return nil, e
		}
		ch.h = &ch.g.handle
	case fnmpioctl.FileNative:
		if ch.nat, e = a.OpenNative(); e != nil {
			return nil, e
		}
		ch.h = &ch.nat.handle
	default:
		return nil, fmt.Errorf("%w: file type %s", xdp.StatusInvalidArgument, p.FileType)
	}
	return ch, nil
}

func (ch *channel) close() {
	var e error
	if ch.g != nil {
		e = ch.g.Close()
	}
	if ch.nat != nil {
		e = ch.nat.Close()
	}
	if e != nil {
		ch.h.logger.Warn("handle close error", zap.Error(e))
	}
}

func (ch *channel) requireGeneric(op fnmpioctl.Opcode) error {
	if ch.g == nil {
		return fmt.Errorf("%w: %s on %s handle", xdp.StatusUnsupported, op, ch.h.kind)
	}
	return nil
}

func (ch *channel) requireNative(op fnmpioctl.Opcode) error {
	if ch.nat == nil {
		return fmt.Errorf("%w: %s on %s handle", xdp.StatusUnsupported, op, ch.h.kind)
	}
	return nil
}

func (ch *channel) dispatch(hdr fnmpioctl.RequestHeader, input []byte) (output []byte, e error) {
	h, outLen := ch.h, int(hdr.OutputLength)
	switch hdr.Opcode {
	case fnmpioctl.OpRxEnqueue:
		frame, e := fnmpioctl.DecodeRxFrame(input)
		if e != nil {
			return nil, e
		}
		return nil, h.RxEnqueue(frame)

	case fnmpioctl.OpRxFlush:
		var opts fnmpioctl.RxFlushOptions
		if e := opts.UnmarshalBinary(input); e != nil {
			return nil, e
		}
		return nil, h.RxFlush(RxFlushOptions{Flags: RxFlushFlags(opts.Flags), QueueID: opts.QueueID})

	case fnmpioctl.OpXdpRegister:
		if e := ch.requireNative(hdr.Opcode); e != nil {
			return nil, e
		}
		return nil, ch.nat.XdpRegister()

	case fnmpioctl.OpXdpDeregister:
		if e := ch.requireNative(hdr.Opcode); e != nil {
			return nil, e
		}
		return nil, ch.nat.XdpDeregister()

	case fnmpioctl.OpTxFilter:
		pattern, mask, e := fnmpioctl.DecodeTxFilter(input)
		if e != nil {
			return nil, e
		}
		return nil, h.TxSetFilter(pattern, mask)

	case fnmpioctl.OpTxGetFrame:
		index, e := fnmpioctl.DecodeUint32(input)
		if e != nil {
			return nil, e
		}
		frame, e := h.TxGetFrame(index)
		if e != nil {
			return nil, e
		}
		return fnmpioctl.EncodeTxFrame(frame, outLen)

	case fnmpioctl.OpTxDequeueFrame:
		index, e := fnmpioctl.DecodeUint32(input)
		if e != nil {
			return nil, e
		}
		return nil, h.TxDequeueFrame(index)

	case fnmpioctl.OpTxFlush:
		return nil, h.TxFlush()

	case fnmpioctl.OpMiniportPauseTimestamp:
		if e := ch.requireGeneric(hdr.Opcode); e != nil {
			return nil, e
		}
		t, e := ch.g.PauseTimestamp()
		if e != nil {
			return nil, e
		}
		output = fnmpioctl.EncodeTimestamp(t)
		if outLen < len(output) {
			return nil, xdp.BufferTooShortError{Needed: len(output)}
		}
		return output, nil

	case fnmpioctl.OpMiniportSetMTU:
		if e := ch.requireGeneric(hdr.Opcode); e != nil {
			return nil, e
		}
		mtu, e := fnmpioctl.DecodeUint32(input)
		if e != nil {
			return nil, e
		}
		return nil, ch.g.SetMTU(int(mtu))

	case fnmpioctl.OpOidSetFilter:
		wireKeys, e := fnmpioctl.DecodeOidKeys(input)
		if e != nil {
			return nil, e
		}
		keys := make([]OidKey, len(wireKeys))
		for i, k := range wireKeys {
			keys[i] = OidKey{Oid: Oid(k.Oid), RequestType: RequestType(k.RequestType)}
		}
		return nil, h.SetOidFilter(keys)

	case fnmpioctl.OpOidGetRequest:
		wireKeys, e := fnmpioctl.DecodeOidKeys(input)
		if e != nil {
			return nil, e
		}
		if len(wireKeys) != 1 {
			return nil, fmt.Errorf("%w: %s expects one key", xdp.StatusInvalidArgument, hdr.Opcode)
		}
		key := OidKey{Oid: Oid(wireKeys[0].Oid), RequestType: RequestType(wireKeys[0].RequestType)}
		return h.GetPendingOid(key, outLen)

	case fnmpioctl.OpOidCompleteRequest:
		return nil, h.CompletePendingOid()
	}
	return nil, fmt.Errorf("%w: %s", xdp.StatusNotSupported, hdr.Opcode)
}
