// Package fib implements the FIB programming façade: route translation,
// per-client protocol-ID multiplexing, and neighbor-change observer
// fanout (spec.md §4.2).
package fib

import (
	"errors"
	"fmt"
	"net/netip"
)

// ClientId identifies a routing-decision client submitting route
// programming requests (e.g. the Spark2-fed link-state decision engine,
// BGP, static routes).
type ClientId int

// Static client table (spec.md §3 "ClientId -> ProtocolId mapping: a
// static table"). Protocol IDs are constrained to [17, 253] per spec.md §7
// InvalidProtocolId.
const (
	ClientOpenr ClientId = iota
	ClientBGP
	ClientStatic
)

var clientProtocolId = map[ClientId]int{
	ClientOpenr: 99,
	ClientBGP:   17,
	ClientStatic: 253,
}

// protocolDistance is the static protocol-ID -> kernel administrative
// distance table (spec.md §4.2 "Protocol ID -> kernel priority ...is a
// static table; unknown protocol IDs receive an unknown distance
// sentinel").
var protocolDistance = map[int]int{
	17:  20,
	99:  10,
	253: 1,
}

const unknownDistance = -1

const (
	minProtocolId = 17
	maxProtocolId = 253
)

// ProtocolId resolves clientId to its static protocol ID.
func ProtocolId(clientId ClientId) (int, error) {
	pid, ok := clientProtocolId[clientId]
	if !ok {
		return 0, fmt.Errorf("fib: %w: client %v", ErrInvalidClient, clientId)
	}
	return pid, nil
}

// Distance returns the kernel administrative distance for protocolId, or
// unknownDistance if protocolId is not in the static table.
func Distance(protocolId int) int {
	d, ok := protocolDistance[protocolId]
	if !ok {
		return unknownDistance
	}
	return d
}

// validateProtocolId checks protocolId against the reserved band
// (spec.md §7 InvalidProtocolId).
func validateProtocolId(protocolId int) error {
	if protocolId < minProtocolId || protocolId > maxProtocolId {
		return fmt.Errorf("fib: %w: %d not in [%d, %d]", ErrInvalidProtocolId, protocolId, minProtocolId, maxProtocolId)
	}
	return nil
}

// MplsActionKind enumerates MPLS nexthop actions (spec.md §3).
type MplsActionKind int

const (
	MplsActionNone MplsActionKind = iota
	MplsActionPush
	MplsActionSwap
	MplsActionPHP
	MplsActionPopAndLookup
)

// MplsAction describes the MPLS label operation for a nexthop.
type MplsAction struct {
	Kind       MplsActionKind
	PushLabels []uint32 // required, non-empty, for MplsActionPush
	SwapLabel  uint32   // required for MplsActionSwap
}

// NextHop is one forwarding nexthop (spec.md §3).
type NextHop struct {
	GatewayAddr netip.Addr
	IfName      string // optional
	Mpls        *MplsAction
	Weight      int // default 0 (ECMP equal-cost)
}

// UnicastRoute is a client-submitted IPv4/IPv6 route (spec.md §3). An
// empty NextHops set means blackhole.
type UnicastRoute struct {
	Destination netip.Prefix
	NextHops    []NextHop
}

// MaxMplsLabel is the largest valid MPLS top label (2^20 - 1).
const MaxMplsLabel = 1<<20 - 1

// MplsRoute is a client-submitted MPLS route (spec.md §3).
type MplsRoute struct {
	TopLabel uint32
	NextHops []NextHop
}

// -------------------------------------------------------------------------
// Error taxonomy (spec.md §7)
// -------------------------------------------------------------------------

var (
	ErrInvalidClient        = errors.New("fib: invalid client")
	ErrInvalidProtocolId    = errors.New("fib: invalid protocol id")
	ErrUnresolvableInterface = errors.New("fib: unresolvable interface")
	ErrMalformedRoute       = errors.New("fib: malformed route")
	ErrNetlinkFailure       = errors.New("fib: netlink failure")
	ErrSyncTimeout          = errors.New("fib: sync timeout")
)
