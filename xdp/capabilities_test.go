package xdp_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/usnistgov/xdpfn/xdp"
)

func TestCapabilities(t *testing.T) {
	assert, require := makeAR(t)

	caps, e := xdp.InitializeCapabilities(xdp.APIVersion1)
	require.NoError(e)
	assert.EqualValues(xdp.CapabilitiesSize, caps.Size)
	assert.Equal(uint32(0x00010000), caps.APIVersion)
	assert.NotEqual(uuid.Nil, caps.InstanceID)
	assert.NoError(caps.Validate(xdp.APIVersionLatest))

	caps2 := makeCaps()
	assert.NotEqual(caps.InstanceID, caps2.InstanceID)

	wire, e := caps.MarshalBinary()
	require.NoError(e)
	assert.Len(wire, xdp.CapabilitiesSize)
	var decoded xdp.Capabilities
	require.NoError(decoded.UnmarshalBinary(wire))
	assert.Equal(caps, decoded)
	e = decoded.UnmarshalBinary(wire[:10])
	assert.ErrorIs(e, xdp.StatusBufferTooShort)

	bad := caps
	bad.Size--
	assert.ErrorIs(bad.Validate(xdp.APIVersionLatest), xdp.StatusInvalidArgument)
	bad = caps
	bad.APIVersion = 2 << 16
	assert.ErrorIs(bad.Validate(xdp.APIVersionLatest), xdp.StatusInvalidArgument)
	bad = caps
	bad.InstanceID = uuid.Nil
	assert.ErrorIs(bad.Validate(xdp.APIVersionLatest), xdp.StatusInvalidArgument)
	assert.ErrorIs(xdp.Capabilities{}.Validate(xdp.APIVersionLatest), xdp.StatusInvalidArgument)
}

func TestStatus(t *testing.T) {
	assert, _ := makeAR(t)

	assert.Equal(xdp.StatusSuccess, xdp.StatusOf(nil))
	assert.NoError(xdp.StatusSuccess.Err())
	assert.Equal(xdp.StatusNotFound, xdp.StatusOf(fmt.Errorf("wrapped: %w", xdp.StatusNotFound)))
	assert.Equal(xdp.StatusInternalError, xdp.StatusOf(errors.New("other")))
	assert.Equal("invalid device state", xdp.StatusInvalidDeviceState.Error())
	assert.Contains(xdp.Status(0xC0001234).String(), "C0001234")

	e := fmt.Errorf("query: %w", xdp.BufferTooShortError{Needed: 24})
	assert.ErrorIs(e, xdp.StatusBufferTooShort)
	assert.Equal(xdp.StatusBufferTooShort, xdp.StatusOf(e))
	n, ok := xdp.BytesNeeded(e)
	assert.True(ok)
	assert.Equal(24, n)
	_, ok = xdp.BytesNeeded(xdp.StatusBufferTooShort)
	assert.False(ok)
}
