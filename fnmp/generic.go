package fnmp

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/usnistgov/xdpfn/xdp"
)

// Generic is a handle that emulates the normal NIC data path.
// Flushed RX frames are indicated to the upper layer; frames sent by the upper layer pass through
// the TX filter.
type Generic struct {
	handle
}

// PauseTimestamp returns when the data path was last paused.
func (g *Generic) PauseTimestamp() (time.Time, error) {
	if e := g.checkOpen(); e != nil {
		return time.Time{}, e
	}
	return g.a.PauseTimestamp(), nil
}

// SetMTU changes MTU and restarts the data path.
func (g *Generic) SetMTU(mtu int) error {
	if e := g.checkOpen(); e != nil {
		return e
	}
	if mtu < MinMTU || mtu > MaxMTU {
		return fmt.Errorf("%w: MTU %d outside [%d,%d]", xdp.StatusInvalidArgument, mtu, MinMTU, MaxMTU)
	}

	a := g.a
	a.lock.Lock()
	old := a.mtu
	a.mtu = mtu
	if a.lookahead > uint32(mtu) {
		a.lookahead = uint32(mtu)
	}
	a.lock.Unlock()
	a.logger.Info("MTU changed", zap.Int("old", old), zap.Int("new", mtu))
	return a.restart()
}

// Close closes the handle, completing captured frames.
func (g *Generic) Close() error {
	if !g.close() {
		return nil
	}
	g.a.detachGeneric(g)
	g.logger.Info("generic handle closed")
	return nil
}
