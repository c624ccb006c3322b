package fnmp

import (
	"fmt"
	"math"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
	"go.uber.org/zap"
)

// resolveNetif seeds unset fields from a kernel network interface.
func (cfg *AdapterConfig) resolveNetif() error {
	if cfg.Netif == "" {
		return nil
	}
	link, e := netlink.LinkByName(cfg.Netif)
	if e != nil {
		return fmt.Errorf("netlink.LinkByName(%s): %w", cfg.Netif, e)
	}
	attrs := link.Attrs()
	if cfg.IfIndex == 0 {
		cfg.IfIndex = uint32(attrs.Index)
	}
	if cfg.MAC.Empty() && len(attrs.HardwareAddr) > 0 {
		cfg.MAC.HardwareAddr = attrs.HardwareAddr
	}
	if cfg.MTU == 0 {
		cfg.MTU = attrs.MTU
	}
	if cfg.RxQueues == 0 || cfg.LinkSpeed == 0 {
		cfg.resolveEthtool()
	}
	logger.Info("adapter seeded from netif",
		zap.String("netif", cfg.Netif),
		zap.Uint32("ifindex", cfg.IfIndex),
		zap.Stringer("mac", cfg.MAC.HardwareAddr),
		zap.Int("mtu", cfg.MTU),
		zap.Int("rx-queues", cfg.RxQueues),
		zap.Uint64("link-speed", cfg.LinkSpeed),
	)
	return nil
}

// resolveEthtool seeds RxQueues and LinkSpeed via ethtool.
// Virtual interfaces often lack these ioctls; failures leave the fields for applyDefaults.
func (cfg *AdapterConfig) resolveEthtool() {
	logEntry := logger.With(zap.String("netif", cfg.Netif))
	etht, e := ethtool.NewEthtool()
	if e != nil {
		logEntry.Warn("ethtool.NewEthtool error", zap.Error(e))
		return
	}
	defer etht.Close()

	if cfg.RxQueues == 0 {
		if channels, e := etht.GetChannels(cfg.Netif); e != nil {
			logEntry.Debug("ethtool.GetChannels error", zap.Error(e))
		} else if n := int(channels.RxCount + channels.CombinedCount); n > 0 {
			cfg.RxQueues = min(n, MaxRxQueues)
		}
	}

	if cfg.LinkSpeed == 0 {
		// speed is in Mbps; MaxUint32 means unknown
		if speed, e := etht.CmdGet(&ethtool.EthtoolCmd{}, cfg.Netif); e != nil {
			logEntry.Debug("ethtool.CmdGet error", zap.Error(e))
		} else if speed != 0 && speed != math.MaxUint32 {
			cfg.LinkSpeed = uint64(speed) * 1000000
		}
	}
}
