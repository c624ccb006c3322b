package main

import (
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/urfave/cli/v2"

	"github.com/usnistgov/xdpfn/core/macaddr"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/xdp"
)

type udpFrame struct {
	Src, Dst         macaddr.Flag
	SrcIP, DstIP     string
	SrcPort, DstPort uint
	Payload          string
}

func (f udpFrame) build() ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       f.Src.HardwareAddr,
		DstMAC:       f.Dst.HardwareAddr,
		EthernetType: layers.EthernetTypeIPv4,
	}
	if f.Src.Empty() {
		eth.SrcMAC = macaddr.MakeRandom(false)
	}
	if f.Dst.Empty() {
		eth.DstMAC = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	}
	ip := layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP(f.SrcIP).To4(),
		DstIP:    net.ParseIP(f.DstIP).To4(),
	}
	udp := layers.UDP{
		SrcPort: layers.UDPPort(f.SrcPort),
		DstPort: layers.UDPPort(f.DstPort),
	}
	if e := udp.SetNetworkLayerForChecksum(&ip); e != nil {
		return nil, e
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if e := gopacket.SerializeLayers(buf, opts, &eth, &ip, &udp, gopacket.Payload(f.Payload)); e != nil {
		return nil, e
	}
	return buf.Bytes(), nil
}

func init() {
	var f udpFrame
	var queueID, count uint
	var rssCPU, lowResources bool
	defineCommand(&cli.Command{
		Category: "rx",
		Name:     "rx",
		Usage:    "Enqueue and flush UDP frames on the RX path",
		Flags: []cli.Flag{
			&cli.GenericFlag{
				Name:  "src",
				Usage: "source `MAC` address (default random)",
				Value: &f.Src,
			},
			&cli.GenericFlag{
				Name:  "dst",
				Usage: "destination `MAC` address (default broadcast)",
				Value: &f.Dst,
			},
			&cli.StringFlag{
				Name:        "src-ip",
				Value:       "192.0.2.1",
				Destination: &f.SrcIP,
			},
			&cli.StringFlag{
				Name:        "dst-ip",
				Value:       "192.0.2.2",
				Destination: &f.DstIP,
			},
			&cli.UintFlag{
				Name:        "sport",
				Value:       6363,
				Destination: &f.SrcPort,
			},
			&cli.UintFlag{
				Name:        "dport",
				Value:       6363,
				Destination: &f.DstPort,
			},
			&cli.StringFlag{
				Name:        "payload",
				Value:       "xdpfnmp",
				Destination: &f.Payload,
			},
			&cli.UintFlag{
				Name:        "queue",
				Usage:       "RX queue `ID`",
				Destination: &queueID,
			},
			&cli.UintFlag{
				Name:        "count",
				Value:       1,
				Destination: &count,
			},
			&cli.BoolFlag{
				Name:        "rss-cpu",
				Usage:       "steer every frame to --queue at flush",
				Destination: &rssCPU,
			},
			&cli.BoolFlag{
				Name:        "low-resources",
				Usage:       "inspect frames one at a time",
				Destination: &lowResources,
			},
		},
		Action: func(c *cli.Context) error {
			wire, e := f.build()
			if e != nil {
				return e
			}
			h, e := openHandle()
			if e != nil {
				return e
			}
			defer h.Close()

			for i := uint(0); i < count; i++ {
				frame := xdp.MakeFrame(wire)
				frame.QueueID = uint32(queueID)
				if e := h.RxEnqueue(frame); e != nil {
					return e
				}
			}

			opts := fnmp.RxFlushOptions{QueueID: uint32(queueID)}
			if rssCPU {
				opts.Flags |= fnmp.RxFlushRssCpu
			}
			if lowResources {
				opts.Flags |= fnmp.RxFlushLowResources
			}
			return h.RxFlush(opts)
		},
	})
}
