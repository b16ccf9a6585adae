package spark2

import (
	"context"
	"log/slog"
	"net/netip"
	"sync/atomic"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// inboundHello is a decoded hello/handshake/legacy-hello routed to a
// specific neighbor actor by the engine's demux.
type inboundHello struct {
	msg      spark2msg.HelloMsg
	legacy   bool
	recvTime time.Time
}

// neighbor is the per-NeighborKey actor: one goroutine owns all mutable
// state and applies FSM events serially (adapted from the teacher's
// per-session actor, internal/bfd/session.go Run/runLoop).
type neighbor struct {
	key     spark2msg.NeighborKey
	cfg     Config
	areas   []compiledArea
	local   spark2msg.InterfaceBinding
	logger  *slog.Logger
	metrics Metrics
	sender  Sender

	// onEstablished, if non-nil, is invoked synchronously from the loop
	// goroutine the moment this neighbor first reaches ESTABLISHED -- the
	// engine uses it to turn off fast-init hello emission on the owning
	// interface without waiting for the actor to exit.
	onEstablished func()

	recvCh  chan inboundHello
	removeCh chan struct{}
	doneCh  chan struct{}
	events  chan<- NeighborEvent

	// state is read by GetNeighborState concurrently with the owning
	// loop; all writes happen on the loop goroutine.
	state State

	remoteIfName    string
	transportV4     netip.Addr
	transportV6     netip.Addr
	lastSeqNum      uint64
	lastHelloTime   time.Time
	peerSentAt      time.Time
	rttSmoothed     time.Duration
	rttLastReported time.Duration
	area            string

	// snapshot is written by the loop goroutine and read by concurrent
	// observability accessors (GetNeighborState) without synchronizing
	// with the loop, hence the atomic pointer.
	snapshot atomic.Pointer[neighborSnapshot]
}

// neighborSnapshot is an immutable point-in-time view of a neighbor,
// published by the loop goroutine after every processed event so that
// GetNeighborState never touches loop-owned memory directly.
type neighborSnapshot struct {
	state      State
	area       string
	rttMicros  int64
	seqNum     uint64
	peerSentAt time.Time
}

func newNeighbor(
	key spark2msg.NeighborKey,
	cfg Config,
	areas []compiledArea,
	local spark2msg.InterfaceBinding,
	logger *slog.Logger,
	metrics Metrics,
	sender Sender,
	events chan<- NeighborEvent,
	onEstablished func(),
) *neighbor {
	if metrics == nil {
		metrics = NoopMetrics{}
	}
	n := &neighbor{
		key:           key,
		cfg:           cfg,
		areas:         areas,
		local:         local,
		logger:        logger.With(slog.String("neighbor", key.String())),
		metrics:       metrics,
		sender:        sender,
		onEstablished: onEstablished,
		recvCh:        make(chan inboundHello, 16),
		removeCh:      make(chan struct{}),
		doneCh:        make(chan struct{}),
		events:        events,
		state:         StateIdle,
	}
	n.snapshot.Store(&neighborSnapshot{state: StateIdle})
	return n
}

// run is the neighbor's event loop. It returns when the neighbor reaches
// StateDown or ctx is cancelled.
func (n *neighbor) run(ctx context.Context) {
	defer close(n.doneCh)

	negotiateHold := newStoppedTimer()
	grHold := newStoppedTimer()
	heartbeatHold := newStoppedTimer()
	handshakeHold := newStoppedTimer()
	defer negotiateHold.Stop()
	defer grHold.Stop()
	defer heartbeatHold.Stop()
	defer handshakeHold.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-n.removeCh:
			n.transition(EventInterfaceRemoved, negotiateHold, grHold, heartbeatHold, handshakeHold)
			return
		case h := <-n.recvCh:
			n.handleHello(h, negotiateHold, grHold, heartbeatHold, handshakeHold)
		case <-heartbeatHold.C:
			n.transition(EventHeartbeatHoldExpired, negotiateHold, grHold, heartbeatHold, handshakeHold)
		case <-negotiateHold.C:
			n.transition(EventNegotiateTimeout, negotiateHold, grHold, heartbeatHold, handshakeHold)
		case <-grHold.C:
			n.transition(EventGRHoldExpired, negotiateHold, grHold, heartbeatHold, handshakeHold)
		case <-handshakeHold.C:
			// Retransmit while NEGOTIATE is still pending: the unicast
			// handshake can be lost just like any other datagram, and
			// nothing else retries it (spec.md §4.1 kNegotiateHoldTime
			// governs giving up, not retry cadence).
			if n.state == StateNegotiate {
				n.sendHandshake()
				resetTimer(handshakeHold, n.cfg.HandshakeTime)
			}
		}
		if n.state == StateDown {
			return
		}
	}
}

func (n *neighbor) handleHello(h inboundHello, negotiateHold, grHold, heartbeatHold, handshakeHold *time.Timer) {
	n.updateRTT(h)

	reflected := hasReflected(h.msg, n.cfg.NodeName)

	switch {
	case h.legacy:
		n.recordHello(h)
		n.transition(EventLegacyHello, negotiateHold, grHold, heartbeatHold, handshakeHold)
	case n.state == StateIdle || n.state == StateWarm:
		n.recordHello(h)
		if reflected {
			n.transition(EventHelloBidirectional, negotiateHold, grHold, heartbeatHold, handshakeHold)
		} else {
			n.transition(EventHelloUnidirectional, negotiateHold, grHold, heartbeatHold, handshakeHold)
		}
	case n.state == StateNegotiate:
		ok, resolved := n.validateGates(h.msg)
		n.recordHello(h)
		if ok {
			n.area = resolved
			n.transition(EventNegotiatePass, negotiateHold, grHold, heartbeatHold, handshakeHold)
		} else {
			n.transition(EventNegotiateFail, negotiateHold, grHold, heartbeatHold, handshakeHold)
		}
	case n.state == StateEstablished:
		if h.msg.SeqNum < n.lastSeqNum {
			n.recordHello(h)
			n.transition(EventSeqWrap, negotiateHold, grHold, heartbeatHold, handshakeHold)
			return
		}
		if h.msg.Restarting {
			n.recordHello(h)
			n.transition(EventPeerGone, negotiateHold, grHold, heartbeatHold, handshakeHold)
			return
		}
		// Ordinary heartbeat/hello: liveness refresh only, no FSM
		// transition is defined for this (state, event) pair.
		n.recordHello(h)
		resetTimer(heartbeatHold, n.cfg.HeartbeatHoldTime)
	case n.state == StateRestarting:
		n.recordHello(h)
		n.transition(EventGRHelloFresh, negotiateHold, grHold, heartbeatHold, handshakeHold)
	}
}

// validateGates applies the four NEGOTIATE validation checks of spec.md
// §4.1 and returns the resolved area on success.
func (n *neighbor) validateGates(msg spark2msg.HelloMsg) (ok bool, resolvedArea string) {
	if msg.Sender.DomainName != n.cfg.DomainName {
		return false, ""
	}
	if !versionsIntersect(n.cfg, msg.Sender) {
		return false, ""
	}
	if n.cfg.EnableV4 {
		if !msg.TransportV4.IsValid() || !n.local.IPv4CIDR.Contains(msg.TransportV4) {
			return false, ""
		}
	}

	localArea := matchArea(n.areas, n.local.IfName, n.key.RemoteNodeName)
	if msg.Area == nil || len(n.areas) == 0 {
		// One side has no area config: both fall back to the default area
		// (spec.md §4.1 gate 4).
		return true, spark2msg.DefaultAreaID
	}
	if localArea != msg.Area.AreaID {
		return false, ""
	}
	return true, localArea
}

// sendHandshake emits a unicast MsgHandshake carrying this neighbor's
// per-peer resolved area (spec.md §6 "HandshakeMsg (during NEGOTIATE):
// the above plus area-negotiation resolution"). Unlike the periodic
// multicast hello, a handshake always knows exactly which peer it is
// addressing, so it is the authoritative vehicle for gate 4's area
// equality check -- the fix for engine.go's sendHello, which cannot
// reliably attribute an area to more than one neighbor sharing an
// interface.
func (n *neighbor) sendHandshake() {
	if n.sender == nil || !n.transportV4.IsValid() {
		return
	}

	resolved := matchArea(n.areas, n.local.IfName, n.key.RemoteNodeName)
	var area *spark2msg.AreaBlock
	if len(n.areas) > 0 {
		area = &spark2msg.AreaBlock{AreaID: resolved}
	}

	hs := spark2msg.HandshakeMsg{
		HelloMsg: spark2msg.HelloMsg{
			Sender:            n.cfg.identity(),
			IfName:            n.local.IfName,
			TransportV4:       n.local.IPv4CIDR.Addr(),
			TransportV6:       n.local.IPv6LinkLocal,
			SeqNum:            n.lastSeqNum,
			HelloHoldTime:     n.cfg.HelloTime,
			HeartbeatHoldTime: n.cfg.HeartbeatHoldTime,
			Area:              area,
			SentAt:            time.Now(),
			EchoOf:            n.peerSentAt,
		},
		ResolvedAreaID: resolved,
	}

	env := spark2msg.Envelope{Version: n.cfg.Version, Type: spark2msg.MsgHandshake, Handshake: &hs}
	if err := n.sender.SendHandshake(n.local.IfName, n.transportV4, env); err != nil {
		n.logger.Warn("failed to send handshake", slog.String("error", err.Error()))
		return
	}
	n.metrics.HelloSent(n.local.IfName)
}

func (n *neighbor) recordHello(h inboundHello) {
	n.lastSeqNum = h.msg.SeqNum
	n.lastHelloTime = h.recvTime
	if !h.msg.SentAt.IsZero() {
		n.peerSentAt = h.msg.SentAt
	}
	if h.msg.TransportV4.IsValid() {
		n.transportV4 = h.msg.TransportV4
	}
	if h.msg.TransportV6.IsValid() {
		n.transportV6 = h.msg.TransportV6
	}
	n.remoteIfName = h.msg.IfName
}

// updateRTT computes a single RTT sample from the echoed timestamp and
// folds it into an exponentially-weighted smoothed value, emitting
// NEIGHBOR_RTT_CHANGE when the smoothed value moves by more than
// Config.RTTChangeTolerance relative to the last reported value
// (spec.md §3 rttMicros invariant, §4.1, §9 tolerance decision).
func (n *neighbor) updateRTT(h inboundHello) {
	if h.msg.EchoOf.IsZero() {
		return
	}
	if h.msg.SeqNum <= n.lastSeqNum {
		// Stale or replayed sample relative to the one already folded in;
		// recordHello has not yet advanced lastSeqNum for this hello.
		return
	}
	rtt := h.recvTime.Sub(h.msg.EchoOf)
	if rtt < 0 {
		rtt = 0
	}

	if n.rttSmoothed == 0 {
		n.rttSmoothed = rtt
	} else {
		const alpha = 0.25
		n.rttSmoothed = time.Duration(alpha*float64(rtt) + (1-alpha)*float64(n.rttSmoothed))
	}

	if n.rttLastReported == 0 {
		n.rttLastReported = n.rttSmoothed
		return
	}

	diff := n.rttSmoothed - n.rttLastReported
	if diff < 0 {
		diff = -diff
	}
	if float64(diff) > n.cfg.RTTChangeTolerance*float64(n.rttLastReported) {
		n.rttLastReported = n.rttSmoothed
		n.emitRTT()
	}
}

// transition applies event to the FSM, executes the returned actions, and
// publishes an updated snapshot.
func (n *neighbor) transition(event Event, negotiateHold, grHold, heartbeatHold, handshakeHold *time.Timer) {
	result := ApplyEvent(n.state, event)
	n.state = result.NewState

	for _, action := range result.Actions {
		switch action {
		case ActionEmitUp:
			n.emit(EventUp)
			if n.onEstablished != nil {
				n.onEstablished()
			}
		case ActionEmitDown:
			n.emit(EventDown)
		case ActionEmitRestarting:
			n.emit(EventRestarting)
		case ActionEmitRestarted:
			n.emit(EventRestarted)
		case ActionArmNegotiateHold:
			resetTimer(negotiateHold, n.cfg.NegotiateHoldTime)
		case ActionArmGRHold:
			resetTimer(grHold, n.cfg.GRHoldTime)
		case ActionResetHeartbeatHold:
			negotiateHold.Stop()
			handshakeHold.Stop()
			resetTimer(heartbeatHold, n.cfg.HeartbeatHoldTime)
		}
	}

	if result.Changed {
		n.logger.Info("neighbor state transition",
			slog.String("from", result.OldState.String()),
			slog.String("to", result.NewState.String()),
			slog.String("event", eventName(event)),
		)
		n.metrics.NeighborStateChange(n.key.IfName, n.key.RemoteNodeName, result.NewState.String())
	}

	if result.OldState == StateNegotiate && result.NewState != StateNegotiate {
		handshakeHold.Stop()
	}
	if result.Changed && n.state == StateNegotiate {
		// Entering NEGOTIATE: send the unicast handshake immediately
		// rather than waiting for the first retransmit tick (spec.md §6
		// "HandshakeMsg (during NEGOTIATE)").
		n.sendHandshake()
		resetTimer(handshakeHold, n.cfg.HandshakeTime)
	}

	n.publishSnapshot()
}

func (n *neighbor) publishSnapshot() {
	n.snapshot.Store(&neighborSnapshot{
		state:      n.state,
		area:       n.area,
		rttMicros:  n.rttSmoothed.Microseconds(),
		seqNum:     n.lastSeqNum,
		peerSentAt: n.peerSentAt,
	})
}

// Snapshot returns the last published point-in-time view. Safe to call
// from any goroutine (spec.md §4.1 getNeighborState "must be safe to call
// concurrently with the engine's own activity").
func (n *neighbor) Snapshot() neighborSnapshot {
	return *n.snapshot.Load()
}

func (n *neighbor) emit(kind EventKind) {
	ev := NeighborEvent{Key: n.key, Kind: kind, Area: n.area, RTTMicros: n.rttSmoothed.Microseconds(), TransportV4: n.transportV4, At: time.Now()}
	select {
	case n.events <- ev:
	default:
		n.logger.Warn("neighbor event dropped: output channel full", slog.String("kind", kind.String()))
	}
}

func (n *neighbor) emitRTT() {
	ev := NeighborEvent{Key: n.key, Kind: EventRTTChange, Area: n.area, RTTMicros: n.rttSmoothed.Microseconds(), TransportV4: n.transportV4, At: time.Now()}
	select {
	case n.events <- ev:
	default:
		n.logger.Warn("neighbor event dropped: output channel full", slog.String("kind", "NEIGHBOR_RTT_CHANGE"))
	}
}

func hasReflected(msg spark2msg.HelloMsg, localNodeName string) bool {
	if msg.Reflected == nil {
		return false
	}
	_, ok := msg.Reflected[localNodeName]
	return ok
}

func eventName(e Event) string {
	switch e {
	case EventHelloUnidirectional:
		return "HelloUnidirectional"
	case EventHelloBidirectional:
		return "HelloBidirectional"
	case EventLegacyHello:
		return "LegacyHello"
	case EventNegotiatePass:
		return "NegotiatePass"
	case EventNegotiateFail:
		return "NegotiateFail"
	case EventNegotiateTimeout:
		return "NegotiateTimeout"
	case EventHeartbeatHoldExpired:
		return "HeartbeatHoldExpired"
	case EventSeqWrap:
		return "SeqWrap"
	case EventPeerGone:
		return "PeerGone"
	case EventGRHelloFresh:
		return "GRHelloFresh"
	case EventGRHoldExpired:
		return "GRHoldExpired"
	case EventInterfaceRemoved:
		return "InterfaceRemoved"
	default:
		return "Unknown"
	}
}

// newStoppedTimer returns a timer that never fires until Reset is called,
// matching the teacher's drainTimer/resetTxTimer convention for
// always-live-but-dormant timers (internal/bfd/session.go).
func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
