package main

import (
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
)

func init() {
	var mtu int
	defineCommand(&cli.Command{
		Category: "adapter",
		Name:     "set-mtu",
		Usage:    "Change adapter MTU and restart its data path",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "mtu",
				Destination: &mtu,
				Required:    true,
			},
		},
		Action: func(c *cli.Context) error {
			g, e := openGeneric()
			if e != nil {
				return e
			}
			defer g.Close()
			return g.SetMTU(mtu)
		},
	})
}

func init() {
	defineCommand(&cli.Command{
		Category: "adapter",
		Name:     "pause-timestamp",
		Usage:    "Print when the adapter data path last paused",
		Action: func(c *cli.Context) error {
			g, e := openGeneric()
			if e != nil {
				return e
			}
			defer g.Close()

			t, e := g.PauseTimestamp()
			if e != nil {
				return e
			}
			if t.IsZero() {
				printJSON(map[string]any{"paused": false})
				return nil
			}
			printJSON(map[string]any{"paused": true, "timestamp": t.Format(time.RFC3339Nano)})
			return nil
		},
	})
}

func init() {
	defineCommand(&cli.Command{
		Category: "xdp",
		Name:     "xdp-register",
		Usage:    "Register the adapter with XDP until interrupted",
		Action: func(c *cli.Context) (e error) {
			nat, e := openNative()
			if e != nil {
				return e
			}
			defer func() { e = multierr.Append(e, nat.Close()) }()

			if e := nat.XdpRegister(); e != nil {
				return e
			}
			printJSON(map[string]any{"registered": nat.IfIndex()})

			holdUntilSignal()
			return nat.XdpDeregister()
		},
	})
}
