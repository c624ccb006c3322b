package fnmpioctl_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp/fnmpioctl"
	"github.com/usnistgov/xdpfn/xdp"
)

func TestOpenPacket(t *testing.T) {
	assert, require := makeAR(t)

	p := fnmpioctl.OpenPacket{FileType: fnmpioctl.FileNative, IfIndex: 0x0102}
	wire, e := p.MarshalBinary()
	require.NoError(e)
	require.Len(wire, fnmpioctl.SizeofOpenPacket)
	testenv.BytesEqual(assert, append([]byte("XdpFnOpenPacket0"), testenv.BytesFromHex("01000000 02010000")...), wire)

	decoded, e := fnmpioctl.ReadOpenPacket(bytes.NewReader(wire))
	require.NoError(e)
	assert.Equal(p, decoded)

	wire[0] = 'x'
	_, e = fnmpioctl.ReadOpenPacket(bytes.NewReader(wire))
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
}

func TestRequestResponse(t *testing.T) {
	assert, require := makeAR(t)

	var buf bytes.Buffer
	require.NoError(fnmpioctl.WriteRequest(&buf, fnmpioctl.OpTxGetFrame, fnmpioctl.EncodeUint32(3), 64))
	testenv.BytesEqual(assert, testenv.BytesFromHex("05000000 04000000 40000000 03000000"), buf.Bytes())

	hdr, input, e := fnmpioctl.ReadRequest(&buf)
	require.NoError(e)
	assert.Equal(fnmpioctl.OpTxGetFrame, hdr.Opcode)
	assert.EqualValues(64, hdr.OutputLength)
	index, e := fnmpioctl.DecodeUint32(input)
	require.NoError(e)
	assert.EqualValues(3, index)

	require.NoError(fnmpioctl.WriteResponse(&buf, xdp.StatusBufferTooShort, 90, nil))
	rhdr, output, e := fnmpioctl.ReadResponse(&buf)
	require.NoError(e)
	assert.Len(output, 0)
	e = fnmpioctl.ResponseError(rhdr)
	assert.ErrorIs(e, xdp.StatusBufferTooShort)
	needed, ok := xdp.BytesNeeded(e)
	assert.True(ok)
	assert.Equal(90, needed)

	require.NoError(fnmpioctl.WriteResponse(&buf, xdp.StatusSuccess, 2, []byte{0xA0, 0xA1}))
	rhdr, output, e = fnmpioctl.ReadResponse(&buf)
	require.NoError(e)
	assert.NoError(fnmpioctl.ResponseError(rhdr))
	assert.Equal([]byte{0xA0, 0xA1}, output)

	assert.Equal("OID_COMPLETE_REQUEST", fnmpioctl.OpOidCompleteRequest.String())
	assert.Equal("Opcode(99)", fnmpioctl.Opcode(99).String())
}

func TestRequestOversize(t *testing.T) {
	assert, _ := makeAR(t)

	wire := testenv.BytesFromHex("00000000 00002000 00000000")
	_, _, e := fnmpioctl.ReadRequest(bytes.NewReader(wire))
	assert.ErrorIs(e, xdp.StatusInvalidLength)

	_, _, e = fnmpioctl.ReadRequest(bytes.NewReader(wire[:6]))
	assert.Error(e)
	assert.False(errors.Is(e, xdp.StatusInvalidLength))
}
