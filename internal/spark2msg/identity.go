// Package spark2msg defines the Spark2 wire-level data model: node and
// interface identity, the neighbor key, and the hello/handshake/heartbeat
// message shapes exchanged between Spark2 engines.
//
// Serialization framing is delegated (spec: the wire encoding of these
// messages is assumed to live in a versioned envelope with a discriminated
// body); this package only defines the Go-level structures carried inside
// that envelope.
package spark2msg

import "net/netip"

// NodeIdentity identifies the local process to its neighbors. Immutable
// for the lifetime of the process.
type NodeIdentity struct {
	NodeName         string
	DomainName       string
	Version          uint32
	SupportedVersion uint32
}

// InterfaceBinding describes a tracked local interface. Created on
// UpdateInterfaceDb, destroyed on removal; removal invalidates all
// neighbor state anchored to IfName.
type InterfaceBinding struct {
	IfName        string
	IfIndex       int
	IPv4CIDR      netip.Prefix
	IPv6LinkLocal netip.Addr
}

// NeighborKey uniquely identifies a neighbor within an engine instance.
type NeighborKey struct {
	IfName         string
	RemoteNodeName string
}

// String renders the key for logging.
func (k NeighborKey) String() string {
	return k.IfName + "/" + k.RemoteNodeName
}

// AreaEntry is a single configured area: the first entry (in config order)
// whose regexes accept both the peer's node name and the local interface
// name wins. Matching is case-insensitive, and "accepts" means any regex
// in the list matches (Spark2Test.cpp's createAreaConfig takes regex
// lists, not single regexes).
type AreaEntry struct {
	AreaID           string
	NeighborRegexes  []string
	InterfaceRegexes []string
}

// DefaultAreaID is the well-known fallback area used when either side has
// no area configuration, or when negotiation is otherwise inconsistent
// (one side configured, the other not).
const DefaultAreaID = "0"
