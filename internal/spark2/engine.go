package spark2

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// trackedInterface is an interface the engine is actively emitting hellos
// on. One hello-scheduler goroutine runs per tracked interface.
type trackedInterface struct {
	binding  spark2msg.InterfaceBinding
	sequence *HelloSequencer
	cancel   context.CancelFunc
	done     chan struct{}

	mu       sync.Mutex
	fastInit bool
}

// neighborHandle pairs a running neighbor actor with the machinery needed
// to tear it down.
type neighborHandle struct {
	n      *neighbor
	cancel context.CancelFunc
}

// Sender is the minimal outbound transport the engine needs: emit a hello
// on a named interface, plus a unicast handshake addressed to a specific
// peer's resolved transport address once it is known. Concrete
// implementations live in internal/netio (real multicast/unicast) or as a
// deterministic simulated provider for tests (spec.md §2 "Packet I/O
// Provider", §3 "unicast for heartbeat/handshake").
type Sender interface {
	SendHello(ifName string, env spark2msg.Envelope) error
	SendHandshake(ifName string, dst netip.Addr, env spark2msg.Envelope) error
}

// Engine is the Spark2 neighbor discovery engine: per-interface hello
// scheduling plus the per-(interface, neighbor) state machine manager
// (spec.md §4.1). Adapted from the teacher's Manager (internal/bfd/
// manager.go): RWMutex-guarded maps, construction pipeline, fan-out event
// dispatch.
type Engine struct {
	cfg    Config
	areas  []compiledArea
	logger *slog.Logger
	metrics Metrics
	sender Sender

	mu         sync.RWMutex
	interfaces map[string]*trackedInterface
	neighbors  map[spark2msg.NeighborKey]*neighborHandle

	events chan NeighborEvent

	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithSender sets the outbound hello transport.
func WithSender(s Sender) EngineOption {
	return func(e *Engine) { e.sender = s }
}

// WithEngineMetrics sets the Metrics sink.
func WithEngineMetrics(m Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine validates cfg and constructs an Engine. The returned Engine has
// no tracked interfaces; call UpdateInterfaceDb to start hello emission.
func NewEngine(cfg Config, logger *slog.Logger, opts ...EngineOption) (*Engine, error) {
	areas, err := cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("spark2: invalid config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		cfg:        cfg,
		areas:      areas,
		logger:     logger,
		metrics:    NoopMetrics{},
		interfaces: make(map[string]*trackedInterface),
		neighbors:  make(map[spark2msg.NeighborKey]*neighborHandle),
		events:     make(chan NeighborEvent, 256),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Events returns the outbound lifecycle event stream (spec.md §4.1
// recvNeighborEvent). Events concerning a single NeighborKey are in
// transition order; no ordering is guaranteed across keys.
func (e *Engine) Events() <-chan NeighborEvent {
	return e.events
}

// UpdateInterfaceDb replaces the authoritative set of tracked interfaces.
// Additions start hello emission; removals instantly tear down all
// neighbors anchored there, emitting DOWN for each that was ESTABLISHED or
// RESTARTING (spec.md §4.1).
func (e *Engine) UpdateInterfaceDb(bindings []spark2msg.InterfaceBinding) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}

	desired := make(map[string]spark2msg.InterfaceBinding, len(bindings))
	for _, b := range bindings {
		desired[b.IfName] = b
	}

	var toRemove []string
	for name := range e.interfaces {
		if _, ok := desired[name]; !ok {
			toRemove = append(toRemove, name)
		}
	}

	var toAdd []spark2msg.InterfaceBinding
	for name, b := range desired {
		if _, ok := e.interfaces[name]; !ok {
			toAdd = append(toAdd, b)
		}
	}
	e.mu.Unlock()

	for _, name := range toRemove {
		e.removeInterface(name)
	}
	for _, b := range toAdd {
		e.addInterface(b)
	}
	return nil
}

func (e *Engine) addInterface(b spark2msg.InterfaceBinding) {
	seq, err := NewHelloSequencer()
	if err != nil {
		e.logger.Error("failed to seed hello sequencer", slog.String("interface", b.IfName), slog.String("error", err.Error()))
		return
	}

	ctx, cancel := context.WithCancel(e.ctx)
	ti := &trackedInterface{
		binding:  b,
		sequence: seq,
		cancel:   cancel,
		done:     make(chan struct{}),
		fastInit: e.cfg.IncreaseHelloInterval,
	}

	e.mu.Lock()
	e.interfaces[b.IfName] = ti
	e.mu.Unlock()

	go e.runHelloScheduler(ctx, ti)
}

// removeInterface tears down hello emission on ifName and every neighbor
// anchored there (spec.md §4.1: removal invalidates all neighbor state
// anchored to ifName).
func (e *Engine) removeInterface(ifName string) {
	e.mu.Lock()
	ti, ok := e.interfaces[ifName]
	if ok {
		delete(e.interfaces, ifName)
	}

	var toRemove []*neighborHandle
	for key, h := range e.neighbors {
		if key.IfName == ifName {
			toRemove = append(toRemove, h)
			delete(e.neighbors, key)
		}
	}
	e.mu.Unlock()

	if ok {
		ti.cancel()
		<-ti.done
	}

	for _, h := range toRemove {
		close(h.n.removeCh)
		<-h.n.doneCh
	}
}

// runHelloScheduler periodically emits hellos on ti until ctx is cancelled
// (spec.md §4.1 "Timers" / fast-init burst, RFC 5880-Section-6.8.7-style
// jitter adapted to Spark2's helloInterval/keepAliveTime split).
func (e *Engine) runHelloScheduler(ctx context.Context, ti *trackedInterface) {
	defer close(ti.done)

	for {
		ti.mu.Lock()
		period := helloPeriod(e.cfg, ti.fastInit)
		ti.mu.Unlock()

		timer := time.NewTimer(applyJitter(period))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			e.sendHello(ti, false)
		}
	}
}

func (e *Engine) sendHello(ti *trackedInterface, restarting bool) {
	if e.sender == nil {
		return
	}

	seq := ti.sequence.Next()
	reflected := e.buildReflectedInfo(ti.binding.IfName)
	reflectedSentAt := e.buildReflectedSentAt(ti.binding.IfName)
	area := e.areaForInterface(ti.binding.IfName)

	hello := spark2msg.HelloMsg{
		Sender:            e.cfg.identity(),
		IfName:            ti.binding.IfName,
		TransportV4:       ti.binding.IPv4CIDR.Addr(),
		TransportV6:       ti.binding.IPv6LinkLocal,
		SeqNum:            seq,
		Reflected:         reflected,
		ReflectedSentAt:   reflectedSentAt,
		HelloHoldTime:     e.cfg.HelloTime,
		HeartbeatHoldTime: e.cfg.HeartbeatHoldTime,
		Area:              area,
		SentAt:            time.Now(),
		Restarting:        restarting,
	}

	env := spark2msg.Envelope{Version: e.cfg.Version, Type: spark2msg.MsgHello, Hello: &hello}
	if err := e.sender.SendHello(ti.binding.IfName, env); err != nil {
		e.logger.Warn("failed to send hello", slog.String("interface", ti.binding.IfName), slog.String("error", err.Error()))
		return
	}
	e.metrics.HelloSent(ti.binding.IfName)
}

// areaForInterface returns the outgoing area block for ifName's periodic
// multicast hello. Area resolution is inherently peer-specific (spec.md
// §4.1 gate 4 matches by the peer's node name), which a single broadcast
// hello can only approximate: if exactly one neighbor is currently tracked
// on ifName -- the common point-to-point case -- its resolved area is
// embedded directly. Otherwise (no neighbor discovered yet, or more than
// one sharing the interface) the block is left nil; the unicast handshake
// sent once each neighbor individually reaches NEGOTIATE (neighbor.go
// sendHandshake) is the authoritative per-peer vehicle for this.
func (e *Engine) areaForInterface(ifName string) *spark2msg.AreaBlock {
	if len(e.areas) == 0 {
		return nil
	}

	e.mu.RLock()
	var remote string
	count := 0
	for key := range e.neighbors {
		if key.IfName != ifName {
			continue
		}
		remote = key.RemoteNodeName
		count++
	}
	e.mu.RUnlock()

	if count != 1 {
		return nil
	}
	return &spark2msg.AreaBlock{AreaID: matchArea(e.areas, ifName, remote)}
}

// buildReflectedInfo returns the remoteNodeName -> lastSeqNumSeen map for
// every neighbor on ifName that has left IDLE, embedded in outgoing
// hellos so peers can detect bidirectional reachability.
func (e *Engine) buildReflectedInfo(ifName string) map[string]uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]uint64)
	for key, h := range e.neighbors {
		if key.IfName != ifName {
			continue
		}
		snap := h.n.Snapshot()
		if snap.state == StateIdle {
			continue
		}
		out[key.RemoteNodeName] = snap.seqNum
	}
	return out
}

// buildReflectedSentAt mirrors buildReflectedInfo, carrying each non-IDLE
// neighbor's last-observed peer SentAt (when one is known) instead of its
// seqNum. This is what lets steady-state hellos keep the RTT echo flowing
// once sendHandshake stops running (spec.md §4.1 NEIGHBOR_RTT_CHANGE, §8
// scenario 2): every neighbor on ifName pulls its own entry back out of the
// same multicast hello by its own node name.
func (e *Engine) buildReflectedSentAt(ifName string) map[string]time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]time.Time)
	for key, h := range e.neighbors {
		if key.IfName != ifName {
			continue
		}
		snap := h.n.Snapshot()
		if snap.state == StateIdle || snap.peerSentAt.IsZero() {
			continue
		}
		out[key.RemoteNodeName] = snap.peerSentAt
	}
	return out
}

// RecvEnvelope is the upcall from the Packet I/O Provider for a decoded
// envelope received on ifName. Self-loops (sender nodeName equals the
// local identity) are dropped silently and no neighbor state is created
// (spec.md §4.1 "Packet loops").
func (e *Engine) RecvEnvelope(ifName string, env spark2msg.Envelope, recvTime time.Time) {
	hello, legacy, ok := extractHello(env)
	if !ok {
		e.metrics.PacketDropped(ifName, "decode_error")
		return
	}

	if hello.Sender.NodeName == e.cfg.NodeName {
		e.metrics.PacketDropped(ifName, "self_loop")
		return
	}
	if !legacy && hello.Sender.DomainName == "" {
		e.metrics.PacketDropped(ifName, "malformed")
		return
	}

	// A periodic multicast hello carries a per-peer echo map rather than a
	// single EchoOf (more than one neighbor may share ifName); pull this
	// node's own entry out before routing to the neighbor actor, which only
	// ever looks at EchoOf. MsgHandshake already sets EchoOf directly and
	// has no ReflectedSentAt, so this is a no-op for that path.
	if hello.EchoOf.IsZero() && hello.ReflectedSentAt != nil {
		if sentAt, ok := hello.ReflectedSentAt[e.cfg.NodeName]; ok {
			hello.EchoOf = sentAt
		}
	}

	e.metrics.HelloReceived(ifName)

	key := spark2msg.NeighborKey{IfName: ifName, RemoteNodeName: hello.Sender.NodeName}
	h := e.getOrCreateNeighbor(ifName, key)
	if h == nil {
		return
	}

	select {
	case h.n.recvCh <- inboundHello{msg: hello, legacy: legacy, recvTime: recvTime}:
	default:
		e.logger.Warn("neighbor recv queue full, dropping hello", slog.String("neighbor", key.String()))
	}
}

func extractHello(env spark2msg.Envelope) (spark2msg.HelloMsg, bool, bool) {
	switch env.Type {
	case spark2msg.MsgHello:
		if env.Hello == nil {
			return spark2msg.HelloMsg{}, false, false
		}
		return *env.Hello, false, true
	case spark2msg.MsgHandshake:
		if env.Handshake == nil {
			return spark2msg.HelloMsg{}, false, false
		}
		return env.Handshake.HelloMsg, false, true
	case spark2msg.MsgLegacyHello:
		if env.Hello == nil {
			return spark2msg.HelloMsg{}, false, false
		}
		return *env.Hello, true, true
	default:
		return spark2msg.HelloMsg{}, false, false
	}
}

func (e *Engine) getOrCreateNeighbor(ifName string, key spark2msg.NeighborKey) *neighborHandle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	if h, ok := e.neighbors[key]; ok {
		return h
	}

	ti, ok := e.interfaces[ifName]
	if !ok {
		// Interface not tracked: drop (spec.md §8 property — active
		// neighbors are a subset of current-interfaces × discovered peers).
		return nil
	}

	ctx, cancel := context.WithCancel(e.ctx)
	n := newNeighbor(key, e.cfg, e.areas, ti.binding, e.logger, e.metrics, e.sender, e.events, func() {
		e.markFirstEstablished(ifName)
	})
	h := &neighborHandle{n: n, cancel: cancel}
	e.neighbors[key] = h

	go func() {
		n.run(ctx)
		e.reapNeighbor(key)
	}()

	return h
}

// reapNeighbor removes a neighbor whose actor has exited on its own
// (e.g. reached StateDown via heartbeat/GR hold expiry, not via
// removeInterface).
func (e *Engine) reapNeighbor(key spark2msg.NeighborKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok := e.neighbors[key]; ok && h.n.state == StateDown {
		delete(e.neighbors, key)
	}
}

// markFirstEstablished turns off fast-init hello emission on ifName once
// at least one neighbor there has reached ESTABLISHED (spec.md §4.1
// "Timers": fast-init lasts "until the first neighbor reaches ESTABLISHED
// on that interface"). Invoked as a neighbor's onEstablished callback, from
// the transition path the moment ESTABLISHED is entered -- not on actor
// exit, since the common point-to-point neighbor reaches ESTABLISHED and
// then stays alive indefinitely, so waiting for its actor to return would
// never clear fast-init at all.
func (e *Engine) markFirstEstablished(ifName string) {
	e.mu.RLock()
	anyEstablished := false
	for key, h := range e.neighbors {
		if key.IfName != ifName {
			continue
		}
		if h.n.Snapshot().state == StateEstablished {
			anyEstablished = true
			break
		}
	}
	ti := e.interfaces[ifName]
	e.mu.RUnlock()

	if ti == nil || !anyEstablished {
		return
	}
	ti.mu.Lock()
	ti.fastInit = false
	ti.mu.Unlock()
}

// GetNeighborState is an observability accessor, safe to call concurrently
// with the engine's own activity (spec.md §4.1).
func (e *Engine) GetNeighborState(ifName, nodeName string) (State, bool) {
	e.mu.RLock()
	h, ok := e.neighbors[spark2msg.NeighborKey{IfName: ifName, RemoteNodeName: nodeName}]
	e.mu.RUnlock()
	if !ok {
		return StateIdle, false
	}
	snap := h.n.Snapshot()
	if snap.state == StateIdle {
		return StateIdle, false
	}
	return snap.state, true
}

// NeighborArea returns the negotiated area for an established neighbor.
func (e *Engine) NeighborArea(ifName, nodeName string) (string, bool) {
	e.mu.RLock()
	h, ok := e.neighbors[spark2msg.NeighborKey{IfName: ifName, RemoteNodeName: nodeName}]
	e.mu.RUnlock()
	if !ok {
		return "", false
	}
	snap := h.n.Snapshot()
	return snap.area, snap.state == StateEstablished
}

// Close stops all hello schedulers and neighbor actors and waits for them
// to exit (spec.md §5 "All worker threads are joined before process exit").
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.mu.RLock()
	ifaces := make([]*trackedInterface, 0, len(e.interfaces))
	for _, ti := range e.interfaces {
		ifaces = append(ifaces, ti)
	}
	neighbors := make([]*neighborHandle, 0, len(e.neighbors))
	for _, h := range e.neighbors {
		neighbors = append(neighbors, h)
	}
	e.mu.RUnlock()

	// Announce the graceful shutdown before tearing down transport, so
	// peers currently ESTABLISHED transition straight to RESTARTING
	// instead of waiting out the full heartbeat hold (spec.md §4.1 "peer
	// process gone signal").
	for _, ti := range ifaces {
		e.sendHello(ti, true)
	}

	e.cancel()

	for _, ti := range ifaces {
		<-ti.done
	}
	for _, h := range neighbors {
		<-h.n.doneCh
	}
	close(e.events)
	return nil
}
