package spark2

import (
	"fmt"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// Config holds the Spark2 engine's tunables (spec.md §6 "Configuration").
type Config struct {
	NodeName   string
	DomainName string

	EnableV4     bool
	EnableSpark2 bool

	// IncreaseHelloInterval governs fast-init behavior: while true for an
	// interface (no established neighbor yet), hellos are emitted at
	// FastInitKeepAliveTime instead of KeepAliveTime.
	IncreaseHelloInterval bool

	HelloTime             time.Duration
	KeepAliveTime         time.Duration
	FastInitKeepAliveTime time.Duration
	HandshakeTime         time.Duration
	// HeartbeatTime documents the intended steady-state liveness cadence;
	// the periodic hello already resets heartbeatHold on receipt
	// (neighbor.go handleHello), so nothing currently sends a dedicated
	// MsgHeartbeat on this interval.
	HeartbeatTime     time.Duration
	NegotiateHoldTime time.Duration
	HeartbeatHoldTime time.Duration
	GRHoldTime        time.Duration

	Version          uint32
	SupportedVersion uint32

	Areas []spark2msg.AreaEntry

	// RTTChangeTolerance is the relative difference (0, 1] from the last
	// reported smoothed RTT required before NEIGHBOR_RTT_CHANGE fires
	// again. spec.md §9 leaves this implementation-defined, "≤10%
	// relative"; DefaultConfig sets it to 10%, and Validate accepts any
	// value in (0, 1].
	RTTChangeTolerance float64
}

// DefaultConfig returns sane Spark2 defaults, modeled on the RFC 7419-style
// common-interval defaults the teacher uses for BFD (intervals.go) adapted
// to Open/R's Spark2 timer names.
func DefaultConfig() Config {
	return Config{
		EnableV4:              true,
		EnableSpark2:          true,
		IncreaseHelloInterval: true,
		HelloTime:             20 * time.Second,
		KeepAliveTime:         1 * time.Second,
		FastInitKeepAliveTime: 100 * time.Millisecond,
		HandshakeTime:         500 * time.Millisecond,
		HeartbeatTime:         1 * time.Second,
		NegotiateHoldTime:     5 * time.Second,
		HeartbeatHoldTime:     5 * time.Second,
		GRHoldTime:            30 * time.Second,
		Version:               1,
		SupportedVersion:      1,
		RTTChangeTolerance:    0.10,
	}
}

// sentinel validation errors.
var (
	ErrEmptyNodeName       = fmt.Errorf("spark2: node name must not be empty")
	ErrEmptyDomainName     = fmt.Errorf("spark2: domain name must not be empty")
	ErrZeroHeartbeatHold   = fmt.Errorf("spark2: heartbeat hold time must be positive")
	ErrZeroNegotiateHold   = fmt.Errorf("spark2: negotiate hold time must be positive")
	ErrZeroGRHold          = fmt.Errorf("spark2: graceful restart hold time must be positive")
	ErrInvalidRTTTolerance = fmt.Errorf("spark2: RTT change tolerance must be in (0, 1]")
)

// Validate checks the configuration for internally-inconsistent values and
// compiles the area regex lists.
func (c Config) Validate() ([]compiledArea, error) {
	if c.NodeName == "" {
		return nil, ErrEmptyNodeName
	}
	if c.DomainName == "" {
		return nil, ErrEmptyDomainName
	}
	if c.HeartbeatHoldTime <= 0 {
		return nil, ErrZeroHeartbeatHold
	}
	if c.NegotiateHoldTime <= 0 {
		return nil, ErrZeroNegotiateHold
	}
	if c.GRHoldTime <= 0 {
		return nil, ErrZeroGRHold
	}
	if c.RTTChangeTolerance <= 0 || c.RTTChangeTolerance > 1 {
		return nil, ErrInvalidRTTTolerance
	}
	return compileAreas(c.Areas)
}

// identity returns the NodeIdentity this config advertises in hellos.
func (c Config) identity() spark2msg.NodeIdentity {
	return spark2msg.NodeIdentity{
		NodeName:         c.NodeName,
		DomainName:       c.DomainName,
		Version:          c.Version,
		SupportedVersion: c.SupportedVersion,
	}
}

// versionsIntersect reports whether the peer's advertised version range
// overlaps with the locally supported range (spec.md §4.1 gate 2).
func versionsIntersect(local Config, peer spark2msg.NodeIdentity) bool {
	loLocal, hiLocal := minU32(local.Version, local.SupportedVersion), maxU32(local.Version, local.SupportedVersion)
	loPeer, hiPeer := minU32(peer.Version, peer.SupportedVersion), maxU32(peer.Version, peer.SupportedVersion)
	return loLocal <= hiPeer && loPeer <= hiLocal
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}
