// Command xdpfnmp-ctrl drives functional-test miniport adapters over the control device.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sort"

	"github.com/urfave/cli/v2"
	"golang.org/x/sys/unix"

	"github.com/usnistgov/xdpfn/core/version"
	"github.com/usnistgov/xdpfn/fnmp/fnmpapi"
	"github.com/usnistgov/xdpfn/fnmp/fnmpioctl"
)

var (
	device  string
	ifIndex uint
	native  bool
)

var app = &cli.App{
	Version: version.V.String(),
	Usage:   "Control XDP functional-test miniport adapters.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "device",
			Value:       fnmpapi.DefaultDevice,
			Usage:       "control device `socket`",
			Destination: &device,
		},
		&cli.UintFlag{
			Name:        "ifindex",
			Usage:       "adapter `ifindex`",
			Destination: &ifIndex,
			Required:    true,
		},
		&cli.BoolFlag{
			Name:        "native",
			Usage:       "use a native handle instead of a generic handle",
			Destination: &native,
		},
	},
}

func defineCommand(command *cli.Command) {
	app.Commands = append(app.Commands, command)
}

func openHandle() (*fnmpapi.Handle, error) {
	fileType := fnmpioctl.FileGeneric
	if native {
		fileType = fnmpioctl.FileNative
	}
	return fnmpapi.Dial(device, fileType, uint32(ifIndex))
}

func openGeneric() (*fnmpapi.Generic, error) {
	h, e := fnmpapi.Dial(device, fnmpioctl.FileGeneric, uint32(ifIndex))
	if e != nil {
		return nil, e
	}
	return &fnmpapi.Generic{Handle: h}, nil
}

func openNative() (*fnmpapi.Native, error) {
	h, e := fnmpapi.Dial(device, fnmpioctl.FileNative, uint32(ifIndex))
	if e != nil {
		return nil, e
	}
	return &fnmpapi.Native{Handle: h}, nil
}

// holdUntilSignal blocks until SIGINT or SIGTERM.
func holdUntilSignal() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, unix.SIGINT, unix.SIGTERM)
	<-c
	signal.Stop(c)
}

func printJSON(value any) {
	j, _ := json.Marshal(value)
	fmt.Println(string(j))
}

func main() {
	sort.Sort(cli.CommandsByName(app.Commands))
	if e := app.Run(os.Args); e != nil {
		fmt.Fprintln(os.Stderr, e)
		os.Exit(1)
	}
}
