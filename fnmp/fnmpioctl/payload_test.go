package fnmpioctl_test

import (
	"testing"
	"time"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp/fnmpioctl"
	"github.com/usnistgov/xdpfn/xdp"
)

func TestRxFrame(t *testing.T) {
	assert, require := makeAR(t)

	frame := xdp.Frame{
		QueueID: 2,
		Buffers: []xdp.Buffer{
			{Data: []byte{0xB0, 0xB1, 0xB2, 0xB3}, DataOffset: 1, DataLength: 2},
			{Data: []byte{0xC0}, DataLength: 1},
		},
	}
	wire := fnmpioctl.EncodeRxFrame(frame)
	testenv.BytesEqual(assert, testenv.BytesFromHex(`
		02000000 02000000
		04000000 01000000 02000000 B0B1B2B3
		01000000 00000000 01000000 C0
	`), wire)

	decoded, e := fnmpioctl.DecodeRxFrame(wire)
	require.NoError(e)
	assert.EqualValues(2, decoded.QueueID)
	assert.Equal([]byte{0xB1, 0xB2, 0xC0}, decoded.Bytes())

	_, e = fnmpioctl.DecodeRxFrame(wire[:len(wire)-1])
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = fnmpioctl.DecodeRxFrame(append(wire, 0xFF))
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = fnmpioctl.DecodeRxFrame(testenv.BytesFromHex("00000000 FFFFFFFF"))
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
}

func TestRxFlushOptions(t *testing.T) {
	assert, require := makeAR(t)

	var opts fnmpioctl.RxFlushOptions
	require.NoError(opts.UnmarshalBinary(nil))
	assert.Zero(opts)

	wire, _ := fnmpioctl.RxFlushOptions{Flags: 4, QueueID: 1}.MarshalBinary()
	require.NoError(opts.UnmarshalBinary(wire))
	assert.EqualValues(4, opts.Flags)
	assert.EqualValues(1, opts.QueueID)

	assert.ErrorIs(opts.UnmarshalBinary(wire[:5]), xdp.StatusInvalidArgument)
}

func TestTxFilter(t *testing.T) {
	assert, require := makeAR(t)

	wire := fnmpioctl.EncodeTxFilter([]byte{0x01, 0x02}, []byte{0xFF, 0x0F})
	testenv.BytesEqual(assert, testenv.BytesFromHex("02000000 0102 FF0F"), wire)
	pattern, mask, e := fnmpioctl.DecodeTxFilter(wire)
	require.NoError(e)
	assert.Equal([]byte{0x01, 0x02}, pattern)
	assert.Equal([]byte{0xFF, 0x0F}, mask)

	_, _, e = fnmpioctl.DecodeTxFilter(wire[:5])
	assert.ErrorIs(e, xdp.StatusInvalidArgument)

	pattern, mask, e = fnmpioctl.DecodeTxFilter(fnmpioctl.EncodeTxFilter(nil, nil))
	require.NoError(e)
	assert.Len(pattern, 0)
	assert.Len(mask, 0)
}

func TestOidKeys(t *testing.T) {
	assert, require := makeAR(t)

	keys := []fnmpioctl.OidKey{{Oid: 0x0001010E, RequestType: 1}, {Oid: 0xFF00C901, RequestType: 0}}
	wire := fnmpioctl.EncodeOidKeys(keys...)
	assert.Len(wire, 2*fnmpioctl.SizeofOidKey)
	decoded, e := fnmpioctl.DecodeOidKeys(wire)
	require.NoError(e)
	assert.Equal(keys, decoded)

	_, e = fnmpioctl.DecodeOidKeys(nil)
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = fnmpioctl.DecodeOidKeys(wire[:7])
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
}

func TestTimestamp(t *testing.T) {
	assert, require := makeAR(t)

	ts, e := fnmpioctl.DecodeTimestamp(fnmpioctl.EncodeTimestamp(time.Time{}))
	require.NoError(e)
	assert.True(ts.IsZero())

	now := time.Now()
	ts, e = fnmpioctl.DecodeTimestamp(fnmpioctl.EncodeTimestamp(now))
	require.NoError(e)
	assert.True(now.Equal(ts))
}
