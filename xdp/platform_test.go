package xdp_test

import (
	"testing"

	"github.com/usnistgov/xdpfn/xdp"
)

func TestRegisterNoQueues(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	var evts []xdp.InterfaceEvent
	cancel := p.OnInterfaceEvent(func(evt xdp.InterfaceEvent) { evts = append(evts, evt) })
	defer cancel()

	fi := newFakeInterface()
	reg, e := p.Register(5, makeCaps(), fi)
	require.NoError(e)
	assert.EqualValues(5, reg.IfIndex())
	assert.Same(reg, p.Lookup(5))
	assert.Nil(reg.Binding())

	_, e = p.Register(5, makeCaps(), newFakeInterface())
	assert.ErrorIs(e, xdp.StatusAlreadyRegistered)
	_, e = p.Register(6, xdp.Capabilities{}, newFakeInterface())
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = p.Register(6, makeCaps(), nil)
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	assert.Len(p.List(), 1)

	require.NoError(p.Deregister(reg))
	assert.Empty(fi.Calls())
	assert.Nil(p.Lookup(5))
	assert.ErrorIs(p.Deregister(reg), xdp.StatusNotFound)

	_, e = p.Open(5)
	assert.ErrorIs(e, xdp.StatusNotFound)

	reg2, e := p.Register(5, makeCaps(), fi)
	require.NoError(e)
	assert.NotSame(reg, reg2)
	assert.NoError(p.Close())
	assert.Empty(p.List())

	assert.Equal([]xdp.InterfaceEvent{
		{IfIndex: 5, Kind: xdp.InterfaceRegistered},
		{IfIndex: 5, Kind: xdp.InterfaceDeregistered},
		{IfIndex: 5, Kind: xdp.InterfaceRegistered},
		{IfIndex: 5, Kind: xdp.InterfaceDeregistered},
	}, evts)
}

func TestRegisterVersion(t *testing.T) {
	assert, _ := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{MaxAPIVersion: xdp.APIVersion1})
	caps := makeCaps()
	caps.APIVersion = 1<<16 | 1
	_, e := p.Register(1, caps, newFakeInterface())
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
}

func TestLifecycle(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	var qevts []xdp.QueueEvent
	defer p.OnQueueEvent(func(evt xdp.QueueEvent) { qevts = append(qevts, evt) })()

	fi := newFakeInterface()
	reg, e := p.Register(7, makeCaps(), fi)
	require.NoError(e)

	b, e := p.Open(7)
	require.NoError(e)
	assert.Same(b, reg.Binding())
	_, e = p.Open(7)
	assert.ErrorIs(e, xdp.StatusInvalidDeviceState)

	rx0, e := b.CreateRxQueue(0, xdp.RxQueueOptions{})
	require.NoError(e)
	assert.Equal(xdp.QueueStateCreated, rx0.State())
	assert.EqualValues(9000, rx0.Capabilities().MaxFrameSize)
	_, e = b.CreateRxQueue(0, xdp.RxQueueOptions{})
	assert.ErrorIs(e, xdp.StatusAlreadyRegistered)

	assert.ErrorIs(rx0.NotifyQueue(xdp.NotifyRx), xdp.StatusInvalidDeviceState)
	require.NoError(rx0.Activate())
	assert.Equal(xdp.QueueStateActivated, rx0.State())
	assert.ErrorIs(rx0.Activate(), xdp.StatusInvalidDeviceState)
	assert.NoError(rx0.NotifyQueue(xdp.NotifyRx))
	assert.Equal(1, fi.rxq[0].notified)

	rx1, e := b.CreateRxQueue(1, xdp.RxQueueOptions{})
	require.NoError(e)
	require.NoError(rx1.Delete())
	assert.ErrorIs(rx1.Delete(), xdp.StatusInvalidDeviceState)
	assert.ErrorIs(rx1.Activate(), xdp.StatusInvalidDeviceState)
	assert.Nil(b.RxQueue(1))

	tx0, e := b.CreateTxQueue(0, xdp.TxQueueOptions{})
	require.NoError(e)
	require.NoError(tx0.Activate())
	_, e = b.CreateTxQueue(2, xdp.TxQueueOptions{})
	require.NoError(e)

	require.NoError(p.Deregister(reg))
	assert.Equal(xdp.QueueStateDeleted, rx0.State())
	assert.Equal(xdp.QueueStateDeleted, tx0.State())
	assert.ErrorIs(rx0.Delete(), xdp.StatusInvalidDeviceState)

	assert.Equal([]string{"create", "activate", "delete"}, fi.QueueCalls("rx0"))
	assert.Equal([]string{"create", "delete"}, fi.QueueCalls("rx1"))
	assert.Equal([]string{"create", "activate", "delete"}, fi.QueueCalls("tx0"))
	assert.Equal([]string{"create", "delete"}, fi.QueueCalls("tx2"))

	calls := fi.Calls()
	require.NotEmpty(calls)
	assert.Equal("open 7", calls[0])
	assert.Equal("close", calls[len(calls)-1])

	nDeleted := 0
	for _, evt := range qevts {
		if evt.Kind == xdp.QueueDeleted {
			nDeleted++
		}
	}
	assert.Equal(4, nDeleted)
}

func TestCreateAbort(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	fi := newFakeInterface()
	fi.noCaps = true
	reg, e := p.Register(3, makeCaps(), fi)
	require.NoError(e)
	b, e := p.Open(3)
	require.NoError(e)

	_, e = b.CreateRxQueue(0, xdp.RxQueueOptions{})
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = b.CreateTxQueue(0, xdp.TxQueueOptions{})
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	assert.Equal([]string{"create", "delete"}, fi.QueueCalls("rx0"))
	assert.Equal([]string{"create", "delete"}, fi.QueueCalls("tx0"))

	fi.noCaps = false
	fi.createErr = xdp.StatusUnsupported
	_, e = b.CreateRxQueue(1, xdp.RxQueueOptions{})
	assert.ErrorIs(e, xdp.StatusUnsupported)
	assert.Equal([]string{"create"}, fi.QueueCalls("rx1"))

	require.NoError(b.Close())
	assert.ErrorIs(b.Close(), xdp.StatusInvalidDeviceState)
	_, e = b.CreateRxQueue(2, xdp.RxQueueOptions{})
	assert.ErrorIs(e, xdp.StatusInvalidDeviceState)

	b2, e := p.Open(3)
	require.NoError(e)
	assert.NotSame(b, b2)
	require.NoError(p.Deregister(reg))
	assert.Equal([]string{"open 3", "close", "open 3", "close"}, filterOpenClose(fi.Calls()))
}

func TestOpenError(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	fi := newFakeInterface()
	fi.openErr = xdp.StatusResourceExhausted
	reg, e := p.Register(4, makeCaps(), fi)
	require.NoError(e)

	_, e = p.Open(4)
	assert.ErrorIs(e, xdp.StatusResourceExhausted)
	assert.Nil(reg.Binding())

	require.NoError(p.Deregister(reg))
	assert.Equal([]string{"open 4"}, fi.Calls())
}

func filterOpenClose(calls []string) (list []string) {
	for _, call := range calls {
		if call == "close" || len(call) > 5 && call[:5] == "open " {
			list = append(list, call)
		}
	}
	return list
}
