// Command xdpfnmp-svc runs an XDP platform with functional-test miniport adapters.
// Test harnesses drive the adapters over the control device, and inspect them over management RPC.
package main

import (
	"bytes"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/usnistgov/xdpfn/core/logging"
	"github.com/usnistgov/xdpfn/core/version"
	"github.com/usnistgov/xdpfn/core/yamlflag"
	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/mgmt"
	"github.com/usnistgov/xdpfn/mgmt/fnmpmgmt"
	"github.com/usnistgov/xdpfn/mgmt/versionmgmt"
	"github.com/usnistgov/xdpfn/mgmt/xdpmgmt"
	"github.com/usnistgov/xdpfn/xdp"
)

var logger = logging.New("main")

var cfg Config

var app = &cli.App{
	Version: version.V.String(),
	Usage:   "Provide XDP functional-test miniport service.",
	Flags: []cli.Flag{
		&cli.GenericFlag{
			Name:     "config",
			Usage:    "configuration `YAML` document or @file",
			Value:    yamlflag.New(&cfg),
			Required: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg.applyDefaults()
		if e := cfg.Validate(); e != nil {
			return cli.Exit(e, 2)
		}
		return run()
	},
}

type service struct {
	platform *xdp.Platform
	miniport *fnmp.Miniport
	listener net.Listener

	closeOnce sync.Once
	closeErr  error
}

// Close stops management, the control device, and the miniport.
// Later calls return the first result.
func (svc *service) Close() error {
	svc.closeOnce.Do(func() {
		errs := []error{mgmt.Stop()}
		if svc.listener != nil {
			errs = append(errs, svc.listener.Close())
		}
		errs = append(errs, svc.miniport.Close(), svc.platform.Close())
		svc.closeErr = multierr.Combine(errs...)
	})
	return svc.closeErr
}

func run() (e error) {
	var svc service
	svc.platform = xdp.NewPlatform(xdp.PlatformConfig{MaxAPIVersion: cfg.MaxAPIVersion})
	svc.miniport = fnmp.New(fnmp.Config{Platform: svc.platform})
	defer func() {
		if e != nil {
			svc.Close()
		}
	}()

	for _, acfg := range cfg.Adapters {
		a, e := svc.miniport.AddAdapter(acfg)
		if e != nil {
			return cli.Exit(e, 1)
		}
		logger.Info("adapter added",
			zap.Uint32("ifindex", a.IfIndex()),
			zap.Stringer("mac", a.MAC()),
			zap.Int("mtu", a.MTU()),
		)
	}

	if e := multierr.Combine(
		mgmt.Register(versionmgmt.VersionMgmt{}),
		mgmt.Register(fnmpmgmt.FnmpMgmt{Miniport: svc.miniport}),
		mgmt.Register(xdpmgmt.New(svc.platform)),
	); e != nil {
		return cli.Exit(e, 1)
	}
	if e := mgmt.Start(); e != nil {
		return cli.Exit(e, 1)
	}

	os.Remove(cfg.Device)
	if svc.listener, e = net.Listen("unix", cfg.Device); e != nil {
		return cli.Exit(e, 1)
	}
	logger.Info("control device listening", zap.String("device", cfg.Device))

	done := make(chan error, 1)
	go func() { done <- svc.miniport.Serve(svc.listener) }()
	go systemdNotify()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, unix.SIGINT, unix.SIGTERM)
	select {
	case s := <-sig:
		logger.Info("shutdown requested by signal", zap.Stringer("signal", s))
		daemon.SdNotify(false, daemon.SdNotifyStopping)
		return svc.Close()
	case e := <-done:
		if errors.Is(e, net.ErrClosed) {
			e = nil
		}
		return multierr.Append(e, svc.Close())
	}
}

func main() {
	var uname unix.Utsname
	unix.Uname(&uname)
	logger.Info("xdpfnmp service starting",
		zap.Any("version", version.V),
		zap.Int("uid", os.Getuid()),
		zap.ByteString("linux", bytes.TrimRight(uname.Release[:], string([]byte{0}))),
	)

	if e := app.Run(os.Args); e != nil {
		logger.Fatal("service error", zap.Error(e))
	}
}

func systemdNotify() {
	daemon.SdNotify(false, daemon.SdNotifyReady)

	d, e := daemon.SdWatchdogEnabled(false)
	if d == 0 || e != nil {
		logger.Debug("systemd watchdog not configured", zap.Error(e))
		return
	}

	d /= 2
	logger.Debug("systemd watchdog enabled", zap.Duration("duration", d))
	for range time.Tick(d) {
		daemon.SdNotify(false, daemon.SdNotifyWatchdog)
	}
}
