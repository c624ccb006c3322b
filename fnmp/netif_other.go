//go:build !linux

package fnmp

import (
	"fmt"

	"github.com/usnistgov/xdpfn/xdp"
)

func (cfg *AdapterConfig) resolveNetif() error {
	if cfg.Netif == "" {
		return nil
	}
	return fmt.Errorf("%w: netif lookup requires Linux", xdp.StatusUnsupported)
}
