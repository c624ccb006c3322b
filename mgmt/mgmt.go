// Package mgmt serves JSON-RPC 2.0 management over net/rpc.
package mgmt

import (
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/url"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/powerman/rpc-codec/jsonrpc2"
	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/core/logging"
)

var logger = logging.New("mgmt")

// EnvMgmt is the environment variable holding the management listener URL.
// "0" disables the listener.
const EnvMgmt = "XDPFN_MGMT"

// DefaultURL is the management listener URL when EnvMgmt is unset.
const DefaultURL = "unix:///run/xdpfnmp-mgmt.sock"

// Server is the RPC server of management modules.
var Server = rpc.NewServer()

// Register adds a management module.
// Its RPC service name is the type name without "Mgmt" suffix.
func Register(mg any) error {
	typ := reflect.TypeOf(mg)
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	name := strings.TrimSuffix(typ.Name(), "Mgmt")
	return Server.RegisterName(name, mg)
}

// ParseURL parses a listener URL into network and address.
func ParseURL(s string) (network, addr string, e error) {
	u, e := url.Parse(s)
	if e != nil {
		return "", "", fmt.Errorf("management URL parse error %w", e)
	}
	switch u.Scheme {
	case "unix":
		return u.Scheme, u.Path, nil
	case "tcp", "tcp4", "tcp6":
		return u.Scheme, u.Host, nil
	}
	return "", "", fmt.Errorf("unsupported management URL scheme %s", u.Scheme)
}

var (
	lock     sync.Mutex
	listener net.Listener
)

// URL returns management listener URL from environment.
func URL() string {
	if s := os.Getenv(EnvMgmt); s != "" {
		return s
	}
	return DefaultURL
}

// Start starts the management listener at URL().
func Start() error {
	lock.Lock()
	defer lock.Unlock()
	if listener != nil {
		return errors.New("already started")
	}

	s := URL()
	if s == "0" {
		return nil
	}
	network, addr, e := ParseURL(s)
	if e != nil {
		return e
	}
	if network == "unix" {
		os.Remove(addr)
	}

	if listener, e = net.Listen(network, addr); e != nil {
		return fmt.Errorf("cannot listen on %s %s: %w", network, addr, e)
	}
	logger.Info("management listening", zap.String("network", network), zap.Stringer("addr", listener.Addr()))
	go serve(listener)
	return nil
}

func serve(l net.Listener) {
	for {
		conn, e := l.Accept()
		if e != nil {
			if !errors.Is(e, net.ErrClosed) {
				logger.Warn("management accept error", zap.Error(e))
			}
			return
		}
		go Server.ServeCodec(jsonrpc2.NewServerCodec(conn, Server))
	}
}

// Stop stops the management listener.
func Stop() error {
	lock.Lock()
	defer lock.Unlock()
	if listener == nil {
		return nil
	}
	e := listener.Close()
	listener = nil
	return e
}

// Dial connects to a management listener.
// If s is empty, URL() is used.
func Dial(s string) (*jsonrpc2.Client, error) {
	if s == "" {
		s = URL()
	}
	network, addr, e := ParseURL(s)
	if e != nil {
		return nil, e
	}
	return jsonrpc2.Dial(network, addr)
}
