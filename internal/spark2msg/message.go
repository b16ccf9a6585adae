package spark2msg

import (
	"net/netip"
	"time"
)

// MsgType discriminates the body carried by an Envelope.
type MsgType uint8

const (
	// MsgHello is a multicast discovery/liveness message.
	MsgHello MsgType = iota + 1
	// MsgHandshake is sent during NEGOTIATE, carrying area-negotiation
	// resolution in addition to the Hello fields.
	MsgHandshake
	// MsgHeartbeat is the steady-state liveness message post-negotiation.
	MsgHeartbeat
	// MsgLegacyHello is a predecessor-protocol hello without the Spark2
	// envelope; accepted for backward compatibility (Spark2Test.cpp's
	// BackwardCompatibilityTest).
	MsgLegacyHello
)

// Envelope wraps exactly one Spark2 message body with a version tag.
// The concrete wire encoding of Envelope is out of scope for this package
// (spec: "assumed: a structured message with a versioned envelope and a
// discriminated body"); this is the in-memory shape the engine consumes
// after decoding.
type Envelope struct {
	Version uint32
	Type    MsgType

	Hello     *HelloMsg
	Handshake *HandshakeMsg
	Heartbeat *HeartbeatMsg
}

// AreaBlock carries the sender's area-negotiation state, present on Hello
// and Handshake messages when area support is enabled.
type AreaBlock struct {
	// AreaID is the area the sender computed for this peer/interface pair.
	AreaID string
	// PeerComputedAreaID is a slot for the area the sender believes the
	// *peer* computed. The engine neither sets nor reads it; gate 4 compares
	// only AreaID against the locally resolved area.
	PeerComputedAreaID string
}

// HelloMsg is the multicast discovery/liveness message (spec §6).
type HelloMsg struct {
	Sender      NodeIdentity
	IfName      string
	TransportV4 netip.Addr
	TransportV6 netip.Addr

	SeqNum uint64

	// Reflected is a map of remoteNodeName -> last seqNum the sender has
	// observed from that peer, embedded so peers can detect bidirectional
	// reachability.
	Reflected map[string]uint64

	// ReflectedSentAt mirrors Reflected but carries the SentAt timestamp of
	// each peer's last hello instead of its sequence number. A single
	// multicast hello addresses every neighbor on an interface at once, so
	// this per-peer map is what lets each of them pull out its own RTT echo
	// in steady state, after HandshakeMsg's negotiation-window echo (the
	// only other EchoOf vehicle) has stopped being sent.
	ReflectedSentAt map[string]time.Time

	HelloHoldTime     time.Duration
	HeartbeatHoldTime time.Duration

	Area *AreaBlock

	// SentAt is the sender's local send timestamp, echoed back by the
	// receiver's next hello so the original sender can compute RTT.
	SentAt time.Time
	// EchoOf, when non-zero, is the SentAt timestamp of the last hello the
	// sender received from this peer -- the RTT echo.
	EchoOf time.Time

	// Restarting marks the final hello a node sends before a graceful
	// shutdown (the "FIN hello" of spec §4.1's ESTABLISHED->RESTARTING
	// transition). Spark2 is UDP-based, so there is no socket-close signal
	// to detect; this flag is the only peer-departure notice a node can
	// give short of silently going dark and waiting out the heartbeat hold.
	Restarting bool
}

// HandshakeMsg is sent during NEGOTIATE and carries everything HelloMsg
// does plus the resolved area negotiation outcome.
type HandshakeMsg struct {
	HelloMsg
	ResolvedAreaID string
}

// HeartbeatMsg is the steady-state liveness message.
type HeartbeatMsg struct {
	Sender NodeIdentity
	SeqNum uint64
	HoldTime time.Duration
}
