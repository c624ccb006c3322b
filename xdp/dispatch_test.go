package xdp_test

import (
	"testing"

	"github.com/usnistgov/xdpfn/xdp"
)

func TestRxDispatch(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	fi := newFakeInterface()
	reg, e := p.Register(1, makeCaps(), fi)
	require.NoError(e)
	defer p.Deregister(reg)
	b, e := p.Open(1)
	require.NoError(e)

	program := xdp.MatchProgram([]byte{0xA0, 0x00}, []byte{0xF0, 0x00}, xdp.RxActionRedirect, xdp.RxActionPass)
	q, e := b.CreateRxQueue(0, xdp.RxQueueOptions{Program: program, RingSize: 8})
	require.NoError(e)
	require.NoError(q.Activate())
	fq := fi.rxq[0]
	require.NotNil(fq.ring)
	assert.Equal(8, fq.ring.Capacity())

	fq.ring.Produce(xdp.MakeFrame([]byte{0xA1, 0x01}))
	fq.ring.Produce(xdp.MakeFrame([]byte{0xB1, 0x02}))
	fq.ring.Produce(xdp.Frame{Buffers: []xdp.Buffer{
		{Data: []byte{0xFF, 0xA2}, DataOffset: 1, DataLength: 1},
		{Data: []byte{0x03, 0xFF}, DataLength: 1},
	}})
	fq.ring.Produce(xdp.MakeFrame([]byte{0xA4}))

	assert.Equal(xdp.RxActionRedirect, fq.q.Receive())
	fq.q.ReceiveBatch()
	actions := []xdp.RxAction{}
	for i := uint32(0); i < 4; i++ {
		actions = append(actions, fq.ring.At(i).Action)
	}
	assert.Equal([]xdp.RxAction{xdp.RxActionRedirect, xdp.RxActionPass, xdp.RxActionRedirect, xdp.RxActionPass}, actions)
	fq.ring.Consume(4)
	assert.Panics(func() { fq.q.Receive() })

	assert.Empty(q.Drain())
	fq.q.FlushReceive()
	assert.Equal([][]byte{{0xA1, 0x01}, {0xA2, 0x03}}, q.Drain())
	assert.Empty(q.Drain())
	fq.q.FlushReceive()
	assert.Empty(q.Drain())

	cnt := q.Counters()
	assert.EqualValues(4, cnt.Inspected)
	assert.EqualValues(2, cnt.Redirected)
	assert.EqualValues(2, cnt.Passed)
	assert.EqualValues(2, cnt.Delivered)
}

func TestTxDispatch(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	fi := newFakeInterface()
	reg, e := p.Register(1, makeCaps(), fi)
	require.NoError(e)
	defer p.Deregister(reg)
	b, e := p.Open(1)
	require.NoError(e)

	q, e := b.CreateTxQueue(0, xdp.TxQueueOptions{RingSize: 2})
	require.NoError(e)
	_, e = q.Transmit([]byte{0x01})
	assert.ErrorIs(e, xdp.StatusInvalidDeviceState)
	require.NoError(q.Activate())
	fq := fi.txq[0]

	t1, e := q.Transmit([]byte{0x01})
	require.NoError(e)
	t2, e := q.Transmit([]byte{0x02})
	require.NoError(e)
	assert.Less(t1, t2)
	_, e = q.Transmit([]byte{0x03})
	assert.ErrorIs(e, xdp.StatusResourceExhausted)
	_, e = q.Transmit(make([]byte, 1515))
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = q.Transmit(nil)
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	assert.Equal(2, fq.notified)

	assert.Equal([][]byte{{0x01}, {0x02}}, fq.complete())
	assert.Equal(xdp.TxCounters{Posted: 2, Completed: 2}, q.Counters())
	assert.Equal(t2, q.LastCompleted())

	_, e = q.Transmit([]byte{0x03})
	assert.NoError(e)
}
