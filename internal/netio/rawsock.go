package netio

import (
	"errors"
	"net/netip"
)

// -------------------------------------------------------------------------
// Spark2 Port Constants
// -------------------------------------------------------------------------

const (
	// MulticastPort is the UDP port Spark2 hellos are multicast to on each
	// tracked interface (spec.md §2 "bind to a link-local multicast group").
	MulticastPort uint16 = 6666

	// UnicastPort is the UDP port handshake and heartbeat messages are sent
	// to once a neighbor's transport address is known (spec.md §3 Transport:
	// "link-local multicast for discovery, unicast for heartbeat/handshake").
	UnicastPort uint16 = 6667

	// sourcePortMin / sourcePortMax name the teacher's RFC 5881 §4
	// ephemeral range. No sender in this package reads them: UDPSender binds
	// the port its caller passes (UnicastPort in cmd/sparkd).
	sourcePortMin uint16 = 49152
	sourcePortMax uint16 = 65535
)

// MulticastGroupV4 and MulticastGroupV6 are the link-local multicast
// addresses Spark2 hellos are sent to, analogous to OSPF/IS-IS all-routers
// groups. Chosen from the administratively-scoped (IPv4) and link-local
// (IPv6) ranges reserved for this kind of use.
var (
	MulticastGroupV4 = netip.MustParseAddr("224.0.0.90")
	MulticastGroupV6 = netip.MustParseAddr("ff02::90")
)

// -------------------------------------------------------------------------
// Transport Metadata
// -------------------------------------------------------------------------

// PacketMeta contains transport-layer metadata extracted from a received
// Spark2 datagram.
type PacketMeta struct {
	// SrcAddr is the source IP address from the IP header.
	SrcAddr netip.Addr

	// IfIndex is the interface index on which the packet was received.
	IfIndex int

	// IfName is the interface name on which the packet was received.
	IfName string

	// Multicast is true when the packet arrived on the discovery multicast
	// group rather than as a unicast handshake/heartbeat.
	Multicast bool
}

// -------------------------------------------------------------------------
// PacketConn Interface
// -------------------------------------------------------------------------

// PacketConn abstracts Spark2 datagram send/receive over a UDP socket
// bound to one interface. Implementations handle platform-specific
// multicast-group membership and PKTINFO metadata extraction.
//
// The interface is intentionally minimal to enable mock implementations
// for testing without elevated privileges.
type PacketConn interface {
	// ReadPacket reads a single datagram into buf, returning the number of
	// bytes read and transport metadata.
	ReadPacket(buf []byte) (n int, meta PacketMeta, err error)

	// WritePacket sends buf to dst.
	WritePacket(buf []byte, dst netip.AddrPort) error

	// Close releases the underlying socket resources.
	Close() error

	// LocalAddr returns the local address and port the socket is bound to.
	LocalAddr() netip.AddrPort
}

// -------------------------------------------------------------------------
// Sentinel Errors
// -------------------------------------------------------------------------

var (
	// ErrPortExhausted indicates no source ports are available in the
	// ephemeral range. No code in this package returns it, since no sender
	// allocates from that range.
	ErrPortExhausted = errors.New("no source ports available in ephemeral range")

	// ErrSocketClosed indicates an operation on a closed socket.
	ErrSocketClosed = errors.New("socket closed")

	// ErrPoolType indicates the packet pool returned an unexpected type.
	ErrPoolType = errors.New("packet pool returned unexpected type")

	// ErrUnexpectedConnType indicates net.ListenConfig.ListenPacket returned
	// a connection type other than *net.UDPConn.
	ErrUnexpectedConnType = errors.New("unexpected connection type")
)
