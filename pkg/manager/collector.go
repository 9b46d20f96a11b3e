package manager

import (
	"context"
	"time"

	"github.com/eclipse-opendut/opendut-sub003/pkg/metrics"
	"github.com/eclipse-opendut/opendut-sub003/pkg/types"
)

// Collector periodically samples a Manager and publishes gauges for
// stored resource counts and live subscription channels, the same
// ticker-driven loop shape as the teacher's metrics.Collector. It
// lives in this package rather than pkg/metrics so pkg/metrics never
// needs to import pkg/manager.
type Collector struct {
	manager *Manager
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(mgr *Manager) *Collector {
	return &Collector{
		manager: mgr,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_ = c.manager.Resources(ctx, func(tx *Tx) error {
		if values, err := List[types.PeerDescriptor](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("PeerDescriptor").Set(float64(len(values)))
		}
		if values, err := List[types.PeerConnectionState](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("PeerConnectionState").Set(float64(len(values)))
		}
		if values, err := List[types.ClusterConfiguration](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("ClusterConfiguration").Set(float64(len(values)))
		}
		if values, err := List[types.ClusterDeployment](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("ClusterDeployment").Set(float64(len(values)))
		}
		if values, err := List[types.PeerConfiguration](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("PeerConfiguration").Set(float64(len(values)))
		}
		if values, err := List[types.DeviceDescriptor](tx); err == nil {
			metrics.ResourcesTotal.WithLabelValues("DeviceDescriptor").Set(float64(len(values)))
		}
		return nil
	})

	// Subscription cardinality isn't tracked per-open-handle (a
	// Broadcaster counts retained events, not live Subscriptions), so
	// this reports whether a channel for the kind has ever been
	// created rather than a precise live count.
	for _, typ := range c.manager.Channels().Kinds() {
		metrics.LiveSubscriptions.WithLabelValues(typ.Name()).Set(1)
	}
}
