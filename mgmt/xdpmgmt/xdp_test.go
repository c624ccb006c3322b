package xdpmgmt_test

import (
	"testing"
	"time"

	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/mgmt/xdpmgmt"
	"github.com/usnistgov/xdpfn/xdp"
)

var makeAR = testenv.MakeAR

func TestProgramArg(t *testing.T) {
	assert, require := makeAR(t)

	prog, e := xdpmgmt.ProgramArg{Action: "drop"}.Program()
	require.NoError(e)
	assert.Equal(xdp.RxActionDrop, prog([]byte{0x01}))

	prog, e = xdpmgmt.ProgramArg{Action: "redirect", Pattern: []byte{0xC0}, Mask: []byte{0xF0}}.Program()
	require.NoError(e)
	assert.Equal(xdp.RxActionRedirect, prog([]byte{0xC7}))
	assert.Equal(xdp.RxActionPass, prog([]byte{0xB7}))

	prog, e = xdpmgmt.ProgramArg{Action: "redirect", Pattern: []byte{0xC0, 0x01}, Miss: "drop"}.Program()
	require.NoError(e)
	assert.Equal(xdp.RxActionRedirect, prog([]byte{0xC0, 0x01, 0x02}))
	assert.Equal(xdp.RxActionDrop, prog([]byte{0xC0, 0x02}))

	_, e = xdpmgmt.ProgramArg{Action: "forward"}.Program()
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
	_, e = xdpmgmt.ProgramArg{Action: "pass", Pattern: []byte{0xC0}, Mask: []byte{0xF0, 0xF0}}.Program()
	assert.ErrorIs(e, xdp.StatusInvalidArgument)
}

func TestXdp(t *testing.T) {
	assert, require := makeAR(t)

	p := xdp.NewPlatform(xdp.PlatformConfig{})
	defer p.Close()
	mp := fnmp.New(fnmp.Config{Platform: p})
	defer mp.Close()
	a, e := mp.AddAdapter(fnmp.AdapterConfig{IfIndex: 4, RxQueues: 1})
	require.NoError(e)
	mg := xdpmgmt.New(p)

	var list []xdpmgmt.RegistrationInfo
	require.NoError(mg.List(struct{}{}, &list))
	assert.Len(list, 0)

	var q xdpmgmt.RxQueueInfo
	bind := xdpmgmt.BindArg{
		QueueArg: xdpmgmt.QueueArg{IfIndex: 4},
		Program:  xdpmgmt.ProgramArg{Action: "redirect", Pattern: []byte{0xC0}, Mask: []byte{0xF0}},
	}
	assert.ErrorIs(mg.Bind(bind, &q), xdp.StatusNotFound)

	nat, e := a.OpenNative()
	require.NoError(e)
	require.NoError(nat.XdpRegister())

	require.NoError(mg.Bind(bind, &q))
	assert.Equal(xdp.QueueStateActivated.String(), q.State)
	assert.ErrorIs(mg.Bind(bind, &q), xdp.StatusAlreadyRegistered)

	require.NoError(mg.List(struct{}{}, &list))
	require.Len(list, 1)
	assert.EqualValues(4, list[0].IfIndex)
	assert.True(list[0].Open)

	require.NoError(nat.RxEnqueue(xdp.MakeFrame([]byte{0xC1})))
	require.NoError(nat.RxEnqueue(xdp.MakeFrame([]byte{0xB2})))
	require.NoError(nat.RxFlush(fnmp.RxFlushOptions{}))

	var frames [][]byte
	require.NoError(mg.Drain(bind.QueueArg, &frames))
	assert.Equal([][]byte{{0xC1}}, frames)
	assert.Equal([][]byte{{0xB2}}, a.TakeIndicated())

	var tx xdpmgmt.TransmitReply
	frame := make([]byte, 60)
	require.NoError(mg.Transmit(xdpmgmt.TransmitArg{QueueArg: bind.QueueArg, Frame: frame}, &tx))
	assert.EqualValues(1, tx.Token)
	require.NoError(mg.Transmit(xdpmgmt.TransmitArg{QueueArg: bind.QueueArg, Frame: frame}, &tx))
	assert.EqualValues(2, tx.Token)
	assert.EqualValues(2, tx.Counters.Posted)
	assert.Eventually(func() bool { return a.Counters().TxTransmitted == 2 }, time.Second, time.Millisecond)

	require.NoError(mg.Unbind(bind.QueueArg, &q))
	assert.Equal(xdp.QueueStateDeleted.String(), q.State)
	assert.ErrorIs(mg.Drain(bind.QueueArg, &frames), xdp.StatusNotFound)
	assert.ErrorIs(mg.Unbind(bind.QueueArg, &q), xdp.StatusNotFound)
}
