package spark2

import (
	"net/netip"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// EventKind discriminates the lifecycle events the engine emits.
type EventKind uint8

const (
	// EventUp is emitted when a neighbor reaches ESTABLISHED.
	EventUp EventKind = iota + 1
	// EventDown is emitted when a neighbor reaches the terminal DOWN state.
	EventDown
	// EventRestarting is emitted when a peer is assumed to be in graceful
	// restart.
	EventRestarting
	// EventRestarted is emitted when a peer returns from graceful restart,
	// or when a live ESTABLISHED neighbor's seqNum wraps.
	EventRestarted
	// EventRTTChange is emitted when the smoothed RTT differs from the
	// last reported value by more than Config.RTTChangeTolerance.
	EventRTTChange
)

// String returns the human-readable event kind name.
func (k EventKind) String() string {
	switch k {
	case EventUp:
		return "NEIGHBOR_UP"
	case EventDown:
		return "NEIGHBOR_DOWN"
	case EventRestarting:
		return "NEIGHBOR_RESTARTING"
	case EventRestarted:
		return "NEIGHBOR_RESTARTED"
	case EventRTTChange:
		return "NEIGHBOR_RTT_CHANGE"
	default:
		return "UNKNOWN"
	}
}

// NeighborEvent is a single lifecycle event for a NeighborKey. Events
// concerning a single NeighborKey are delivered in transition order
// (spec.md §4.1, §5 "Ordering guarantees").
type NeighborEvent struct {
	Key         spark2msg.NeighborKey
	Kind        EventKind
	Area        string
	RTTMicros   int64
	TransportV4 netip.Addr
	At          time.Time
}
