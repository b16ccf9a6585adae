package fib

import (
	"context"
	"log/slog"
	"time"

	"github.com/openr-go/sparkd/internal/gobgp"
)

// BGPNotifier is an ObserverRegistry subscriber that re-exports Spark2
// neighbor lifecycle events to an external BGP speaker, grounded on the
// original's NetlinkFibHandler::sendNeighborDownInfo ("notify bgpd") and
// reusing the teacher's flap-dampening gobgp.Client / gobgp.Dampener.
type BGPNotifier struct {
	client    gobgp.Client
	dampener  *gobgp.Dampener
	logger    *slog.Logger
	timeout   time.Duration
}

// NewBGPNotifier wires client and dampener into a callback suitable for
// Facade.RegisterForNeighborChanged.
func NewBGPNotifier(client gobgp.Client, dampener *gobgp.Dampener, logger *slog.Logger) *BGPNotifier {
	return &BGPNotifier{
		client:   client,
		dampener: dampener,
		logger:   logger.With(slog.String("component", "fib.bgpnotify")),
		timeout:  5 * time.Second,
	}
}

// Callback is registered with Facade.RegisterForNeighborChanged.
func (n *BGPNotifier) Callback(change NeighborChange) {
	// BGP peers are addressed by their transport IP, not their node name;
	// fall back to the node name only if the hello never carried a valid
	// TransportV4 (e.g. a malformed or V6-only peer), so the dampener and
	// gobgp.Client still get a stable, non-empty key.
	peerAddr := change.RemoteNodeName
	if change.TransportV4.IsValid() {
		peerAddr = change.TransportV4.String()
	}

	switch change.Kind {
	case NeighborRemoved:
		if n.dampener.ShouldSuppress(peerAddr) {
			n.logger.Debug("neighbor down suppressed by flap dampening", slog.String("peer", peerAddr))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.client.DisablePeer(ctx, peerAddr, "spark2 neighbor down"); err != nil {
			n.logger.Warn("disable BGP peer failed", slog.String("peer", peerAddr), slog.String("error", err.Error()))
		}
	case NeighborAdded:
		if n.dampener.ShouldSuppressUp(peerAddr) {
			n.logger.Debug("neighbor up suppressed by flap dampening", slog.String("peer", peerAddr))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()
		if err := n.client.EnablePeer(ctx, peerAddr); err != nil {
			n.logger.Warn("enable BGP peer failed", slog.String("peer", peerAddr), slog.String("error", err.Error()))
		}
	}
}
