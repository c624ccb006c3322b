package fnmpmgmt_test

import (
	"net"
	"net/rpc"
	"testing"
	"time"

	"github.com/powerman/rpc-codec/jsonrpc2"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/mgmt/fnmpmgmt"
	"github.com/usnistgov/xdpfn/xdp"
)

var makeAR = testenv.MakeAR

var testMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x05}

func TestFnmp(t *testing.T) {
	assert, require := makeAR(t)

	mp := fnmp.New(fnmp.Config{})
	defer mp.Close()
	a, e := mp.AddAdapter(fnmp.AdapterConfig{IfIndex: 5, MAC: macaddr.Flag{HardwareAddr: testMAC}})
	require.NoError(e)
	mg := fnmpmgmt.FnmpMgmt{Miniport: mp}

	var list []fnmpmgmt.BasicInfo
	require.NoError(mg.List(struct{}{}, &list))
	require.Len(list, 1)
	assert.EqualValues(5, list[0].IfIndex)
	assert.Equal(testMAC, list[0].MAC.HardwareAddr)

	var info fnmpmgmt.AdapterInfo
	assert.ErrorIs(mg.Get(fnmpmgmt.IfIndexArg{IfIndex: 6}, &info), xdp.StatusNotFound)

	g, e := a.OpenGeneric()
	require.NoError(e)
	require.NoError(g.RxEnqueue(xdp.MakeFrame([]byte{0xA0, 0xA1})))
	require.NoError(g.RxFlush(fnmp.RxFlushOptions{}))

	require.NoError(mg.Get(fnmpmgmt.IfIndexArg{IfIndex: 5}, &info))
	assert.Equal(fnmp.DefaultMTU, info.MTU)
	assert.True(info.HasGeneric)
	assert.False(info.HasNative)
	assert.False(info.Registered)
	assert.Nil(info.PendingOid)
	assert.EqualValues(1, info.Counters.RxIndicated)

	// JSON-RPC round trip
	srv := rpc.NewServer()
	require.NoError(srv.RegisterName("Fnmp", mg))
	c0, c1 := net.Pipe()
	go srv.ServeCodec(jsonrpc2.NewServerCodec(c0, srv))
	client := jsonrpc2.NewClient(c1)
	defer client.Close()

	var frames [][]byte
	require.NoError(client.Call("Fnmp.TakeIndicated", fnmpmgmt.IfIndexArg{IfIndex: 5}, &frames))
	assert.Equal([][]byte{{0xA0, 0xA1}}, frames)
	require.NoError(client.Call("Fnmp.TakeIndicated", fnmpmgmt.IfIndexArg{IfIndex: 5}, &frames))
	assert.Len(frames, 0)

	var remote fnmpmgmt.AdapterInfo
	require.NoError(client.Call("Fnmp.Get", fnmpmgmt.IfIndexArg{IfIndex: 5}, &remote))
	assert.Equal(testMAC, remote.MAC.HardwareAddr)
	assert.True(remote.HasGeneric)
	assert.Error(client.Call("Fnmp.Get", fnmpmgmt.IfIndexArg{IfIndex: 6}, &remote))
}

func TestOidRequest(t *testing.T) {
	assert, require := makeAR(t)

	mp := fnmp.New(fnmp.Config{})
	defer mp.Close()
	a, e := mp.AddAdapter(fnmp.AdapterConfig{IfIndex: 5})
	require.NoError(e)
	mg := fnmpmgmt.FnmpMgmt{Miniport: mp}

	var reply fnmpmgmt.OidRequestReply
	require.NoError(mg.OidRequest(fnmpmgmt.OidRequestArg{
		IfIndex: 5,
		Oid:     fnmp.OidGenMaximumFrameSize,
		Length:  4,
	}, &reply))
	assert.Equal(xdp.StatusSuccess, reply.Status)
	assert.False(reply.Pended)
	assert.Equal([]byte{0xDC, 0x05, 0x00, 0x00}, reply.Buffer)

	require.NoError(mg.OidRequest(fnmpmgmt.OidRequestArg{
		IfIndex: 5,
		Oid:     fnmp.OidGenMaximumFrameSize,
		Length:  2,
	}, &reply))
	assert.Equal(xdp.StatusBufferTooShort, reply.Status)
	assert.Equal(4, reply.BytesNeeded)
	assert.Nil(reply.Buffer)

	g, e := a.OpenGeneric()
	require.NoError(e)
	key := fnmp.OidKey{Oid: fnmp.OidGenCurrentPacketFilter, RequestType: fnmp.RequestSet}
	require.NoError(g.SetOidFilter([]fnmp.OidKey{key}))

	done := make(chan error)
	var pended fnmpmgmt.OidRequestReply
	go func() {
		done <- mg.OidRequest(fnmpmgmt.OidRequestArg{
			IfIndex:     5,
			Oid:         fnmp.OidGenCurrentPacketFilter,
			RequestType: fnmp.RequestSet,
			Buffer:      []byte{0x0B, 0x00, 0x00, 0x00},
		}, &pended)
	}()
	assert.Eventually(func() bool {
		_, ok := a.PendingOid()
		return ok
	}, time.Second, time.Millisecond)

	var info fnmpmgmt.AdapterInfo
	require.NoError(mg.Get(fnmpmgmt.IfIndexArg{IfIndex: 5}, &info))
	require.NotNil(info.PendingOid)
	assert.Equal(key, *info.PendingOid)
	assert.Equal([]fnmp.OidKey{key}, info.OidFilter)

	require.NoError(g.CompletePendingOid())
	require.NoError(<-done)
	assert.True(pended.Pended)
	assert.Equal(xdp.StatusSuccess, pended.Status)
	assert.Equal(4, pended.BytesRead)
	assert.EqualValues(0x0B, a.PacketFilter())

	require.NoError(mg.Send(fnmpmgmt.SendArg{IfIndex: 5, Frame: []byte{0xD0}}, &struct{}{}))
	assert.EqualValues(1, a.Counters().TxTransmitted)
}
