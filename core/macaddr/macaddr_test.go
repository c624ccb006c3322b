package macaddr_test

import (
	"encoding/json"
	"flag"
	"net"
	"testing"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/core/testenv"
)

var makeAR = testenv.MakeAR

func TestMacAddr(t *testing.T) {
	assert, _ := makeAR(t)

	macZero, _ := net.ParseMAC("00:00:00:00:00:00")
	uA1, _ := net.ParseMAC("02:00:00:00:00:A1")
	uA2, _ := net.ParseMAC("02:00:00:00:00:A2")
	mA1, _ := net.ParseMAC("03:00:00:00:00:A1")
	mac64, _ := net.ParseMAC("02:00:00:00:00:00:00:64")

	assert.True(macaddr.Equal(uA1, uA1))
	assert.False(macaddr.Equal(uA1, uA2))
	assert.False(macaddr.Equal(uA1, mA1))

	assert.True(macaddr.IsValid(macZero))
	assert.True(macaddr.IsValid(uA1))
	assert.True(macaddr.IsValid(mA1))
	assert.False(macaddr.IsValid(mac64))

	assert.False(macaddr.IsUnicast(macZero))
	assert.True(macaddr.IsUnicast(uA1))
	assert.False(macaddr.IsUnicast(mA1))
	assert.False(macaddr.IsUnicast(mac64))

	assert.False(macaddr.IsMulticast(macZero))
	assert.False(macaddr.IsMulticast(uA1))
	assert.True(macaddr.IsMulticast(mA1))
	assert.False(macaddr.IsMulticast(mac64))
}

func TestFlag(t *testing.T) {
	assert, require := makeAR(t)

	var f flag.FlagSet
	var m macaddr.Flag
	f.Var(&m, "m", "")

	assert.Error(f.Parse([]string{"-m", "x"}))
	assert.Error(f.Parse([]string{"-m", "02:00:00:00:00:00:00:64"}))
	assert.NoError(f.Parse([]string{"-m", "02:00:00:00:00:A0"}))
	assert.Equal("02:00:00:00:00:a0", m.String())

	var j struct {
		MAC macaddr.Flag `json:"mac"`
	}
	require.NoError(json.Unmarshal([]byte(`{"mac":"02:00:00:00:00:B0"}`), &j))
	assert.Equal("02:00:00:00:00:b0", j.MAC.String())
	require.NoError(json.Unmarshal([]byte(`{"mac":""}`), &j))
	assert.True(j.MAC.Empty())
}

func TestList(t *testing.T) {
	assert, require := makeAR(t)

	mA1, _ := net.ParseMAC("03:00:00:00:00:A1")
	mA2, _ := net.ParseMAC("03:00:00:00:00:A2")
	mac64, _ := net.ParseMAC("02:00:00:00:00:00:00:64")

	wire := macaddr.EncodeList([]net.HardwareAddr{mA1, mac64, mA2})
	assert.Len(wire, 12)

	list, e := macaddr.DecodeList(wire)
	require.NoError(e)
	require.Len(list, 2)
	assert.True(macaddr.Equal(mA1, list[0]))
	assert.True(macaddr.Equal(mA2, list[1]))

	wire[0] = 0x05
	assert.True(macaddr.Equal(mA1, list[0]))

	_, e = macaddr.DecodeList(wire[:7])
	assert.ErrorIs(e, macaddr.ErrListLength)

	list, e = macaddr.DecodeList(nil)
	assert.NoError(e)
	assert.Len(list, 0)
}
