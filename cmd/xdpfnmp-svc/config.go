package main

import (
	"errors"

	"github.com/usnistgov/xdpfn/fnmp"
	"github.com/usnistgov/xdpfn/fnmp/fnmpapi"
)

// Config is the service configuration document.
type Config struct {
	// Device is the unix socket path of the control device.
	Device string `json:"device,omitempty" yaml:"device,omitempty"`

	// MaxAPIVersion is the highest XDP API version accepted at registration.
	MaxAPIVersion uint32 `json:"maxApiVersion,omitempty" yaml:"maxApiVersion,omitempty"`

	Adapters []fnmp.AdapterConfig `json:"adapters" yaml:"adapters"`
}

func (cfg *Config) applyDefaults() {
	if cfg.Device == "" {
		cfg.Device = fnmpapi.DefaultDevice
	}
}

// Validate checks the configuration document.
func (cfg Config) Validate() error {
	if len(cfg.Adapters) == 0 {
		return errors.New("no adapter configured")
	}
	seen := map[uint32]bool{}
	for _, acfg := range cfg.Adapters {
		if seen[acfg.IfIndex] {
			return errors.New("duplicate adapter ifindex")
		}
		seen[acfg.IfIndex] = true
	}
	return nil
}
