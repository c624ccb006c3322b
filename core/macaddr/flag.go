package macaddr

import (
	"encoding"
	"flag"
	"fmt"
	"net"
)

// Flag is a MAC-48 address usable as a command line flag and a JSON/YAML scalar.
type Flag struct {
	net.HardwareAddr
}

var (
	_ interface {
		flag.Getter
		encoding.TextMarshaler
	} = &Flag{}
	_ encoding.TextMarshaler = Flag{}
)

// Empty returns true if the HardwareAddr is unset.
func (f Flag) Empty() bool {
	return len(f.HardwareAddr) == 0
}

// Get implements flag.Getter.
func (f *Flag) Get() any {
	return f.HardwareAddr
}

// Set implements flag.Value.
// Only MAC-48 addresses are accepted.
func (f *Flag) Set(s string) error {
	mac, e := net.ParseMAC(s)
	if e != nil {
		return e
	}
	if len(mac) != Len {
		return fmt.Errorf("%s is not a MAC-48 address", s)
	}
	f.HardwareAddr = mac
	return nil
}

// MarshalText implements encoding.TextMarshaler.
// An empty address marshals as an empty string.
func (f Flag) MarshalText() (text []byte, e error) {
	return []byte(f.HardwareAddr.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// An empty string clears the address.
func (f *Flag) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		f.HardwareAddr = nil
		return nil
	}
	return f.Set(string(text))
}
