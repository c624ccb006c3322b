package fnmpapi_test

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/core/testenv"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

var makeAR = testenv.MakeAR

const testIfIndex = 11

type fixture struct {
	Platform *xdp.Platform
	Miniport *fnmp.Miniport
	Adapter  *fnmp.Adapter
}

func newFixture(t testing.TB) *fixture {
	var f fixture
	f.Platform = xdp.NewPlatform(xdp.PlatformConfig{})
	f.Miniport = fnmp.New(fnmp.Config{Platform: f.Platform})
	a, e := f.Miniport.AddAdapter(fnmp.AdapterConfig{IfIndex: testIfIndex})
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

// Conn returns a client connection served by the miniport.
func (f *fixture) Conn() net.Conn {
	client, server := net.Pipe()
	go f.Miniport.ServeConn(server)
	return client
}

func makeUDP(t testing.TB, dst net.HardwareAddr, payload []byte) []byte {
	eth := layers.Ethernet{
		SrcMAC:       macaddr.MakeRandom(false),
		DstMAC:       dst,
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(192, 0, 2, 1),
		DstIP:    net.IPv4(192, 0, 2, 2),
	}
	udp := layers.UDP{SrcPort: 4000, DstPort: 6363}
	udp.SetNetworkLayerForChecksum(&ip)

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if e := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(payload)); e != nil {
		t.Fatal(e)
	}
	return buf.Bytes()
}
