package fnmp_test

import (
	"net"
	"testing"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

var makeAR = testenv.MakeAR

const testIfIndex = 7

var testMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x07}

type fixture struct {
	Platform *xdp.Platform
	Miniport *fnmp.Miniport
	Adapter  *fnmp.Adapter
}

func newFixture(t testing.TB) *fixture {
	var f fixture
	f.Platform = xdp.NewPlatform(xdp.PlatformConfig{})
	f.Miniport = fnmp.New(fnmp.Config{Platform: f.Platform})
	a, e := f.Miniport.AddAdapter(fnmp.AdapterConfig{
		IfIndex:  testIfIndex,
		MAC:      macaddr.Flag{HardwareAddr: testMAC},
		RxQueues: 2,
	})
	if e != nil {
		t.Fatal(e)
	}
	f.Adapter = a
	t.Cleanup(func() {
		f.Miniport.Close()
		f.Platform.Close()
	})
	return &f
}

// registerNative opens a native handle, registers with the platform, and opens a binding.
func (f *fixture) registerNative(t testing.TB) (*fnmp.Native, *xdp.Binding) {
	_, require := makeAR(t)
	nat, e := f.Adapter.OpenNative()
	require.NoError(e)
	require.NoError(nat.XdpRegister())
	b, e := f.Platform.Open(testIfIndex)
	require.NoError(e)
	return nat, b
}

func makeRxFrame(queueID uint32, payload ...byte) xdp.Frame {
	frame := xdp.MakeFrame(payload)
	frame.QueueID = queueID
	return frame
}
