package spark2

// Metrics is the counter-reporting surface the engine pushes into
// (spec.md §6: counters beyond the FIB's fibagent.num_of_routes are
// implementation-defined). The concrete Prometheus-backed implementation
// lives in internal/metrics; this interface lets the engine run (and be
// tested) without a metrics backend wired in.
type Metrics interface {
	// NeighborStateChange records a transition for (ifName, remoteNodeName)
	// into newState.
	NeighborStateChange(ifName, remoteNodeName, newState string)

	// PacketDropped records a PacketValidationFailure with its reason
	// (spec.md §7: "dropped silently, logged, and counted").
	PacketDropped(ifName, reason string)

	// HelloSent / HelloReceived count per-interface hello traffic.
	HelloSent(ifName string)
	HelloReceived(ifName string)
}

// NoopMetrics discards everything. Used as the default when no Metrics is
// configured.
type NoopMetrics struct{}

func (NoopMetrics) NeighborStateChange(string, string, string) {}
func (NoopMetrics) PacketDropped(string, string)               {}
func (NoopMetrics) HelloSent(string)                            {}
func (NoopMetrics) HelloReceived(string)                        {}
