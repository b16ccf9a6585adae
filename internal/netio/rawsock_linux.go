//go:build linux

package netio

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// -------------------------------------------------------------------------
// LinuxPacketConn — Spark2 multicast discovery / unicast heartbeat socket
// -------------------------------------------------------------------------

// LinuxPacketConn implements PacketConn using a UDP socket bound to one
// interface, joined to the Spark2 discovery multicast group when mcast is
// true (spec.md §2 "bind to a link-local multicast group").
type LinuxPacketConn struct {
	conn      *net.UDPConn
	localAddr netip.AddrPort
	ifName    string
	mcast     bool
	closed    bool
	mu        sync.Mutex
}

// ReadPacket reads a single datagram from the socket, returning the number
// of bytes read and transport metadata extracted from ancillary data.
func (c *LinuxPacketConn) ReadPacket(buf []byte) (int, PacketMeta, error) {
	oob := make([]byte, oobSize)

	n, oobn, _, src, err := c.conn.ReadMsgUDP(buf, oob)
	if err != nil {
		return 0, PacketMeta{}, fmt.Errorf("read spark2 packet: %w", err)
	}

	meta := parseMeta(src, oob[:oobn])
	meta.IfName = c.ifName
	meta.Multicast = c.mcast

	return n, meta, nil
}

// WritePacket sends buf to dst.
func (c *LinuxPacketConn) WritePacket(buf []byte, dst netip.AddrPort) error {
	udpAddr := net.UDPAddrFromAddrPort(dst)

	if _, err := c.conn.WriteToUDP(buf, udpAddr); err != nil {
		return fmt.Errorf("write spark2 packet to %s: %w", dst, err)
	}
	return nil
}

// Close releases the underlying socket.
func (c *LinuxPacketConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("close spark2 socket: %w", err)
	}
	return nil
}

// LocalAddr returns the local address and port the socket is bound to.
func (c *LinuxPacketConn) LocalAddr() netip.AddrPort {
	return c.localAddr
}

// -------------------------------------------------------------------------
// Constructors
// -------------------------------------------------------------------------

// NewMulticastListener creates a PacketConn bound to ifName, joined to the
// Spark2 discovery multicast group (spec.md §2, §3).
func NewMulticastListener(ctx context.Context, ifIndex int, ifName string) (*LinuxPacketConn, error) {
	laddr := netip.AddrPortFrom(netip.IPv4Unspecified(), MulticastPort)

	conn, err := listenUDP(ctx, laddr, ifName)
	if err != nil {
		return nil, fmt.Errorf("multicast listener on %s: %w", ifName, err)
	}

	if joinErr := joinMulticastGroup(conn, ifIndex); joinErr != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("join multicast group on %s: %w", ifName, joinErr)
	}

	return &LinuxPacketConn{
		conn:      conn,
		localAddr: laddr,
		ifName:    ifName,
		mcast:     true,
	}, nil
}

// NewUnicastListener creates a PacketConn bound to addr:UnicastPort on
// ifName, used for handshake and heartbeat traffic once a neighbor's
// transport address is known (spec.md §3).
func NewUnicastListener(ctx context.Context, addr netip.Addr, ifName string) (*LinuxPacketConn, error) {
	laddr := netip.AddrPortFrom(addr, UnicastPort)

	conn, err := listenUDP(ctx, laddr, ifName)
	if err != nil {
		return nil, fmt.Errorf("unicast listener on %s%%%s: %w", laddr, ifName, err)
	}

	return &LinuxPacketConn{
		conn:      conn,
		localAddr: laddr,
		ifName:    ifName,
		mcast:     false,
	}, nil
}

// -------------------------------------------------------------------------
// Socket creation helpers
// -------------------------------------------------------------------------

// oobSize is the buffer size for ancillary (out-of-band) data. Must
// accommodate an IP_PKTINFO struct (28 bytes on Linux, padded).
const oobSize = 64

// listenUDP creates and configures a UDP socket for Spark2 traffic.
func listenUDP(ctx context.Context, laddr netip.AddrPort, ifName string) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			return setSocketOpts(c, ifName)
		},
	}

	pc, err := lc.ListenPacket(ctx, "udp4", laddr.String())
	if err != nil {
		return nil, fmt.Errorf("listen UDP %s: %w", laddr, err)
	}

	conn, ok := pc.(*net.UDPConn)
	if !ok {
		closeErr := pc.Close()
		return nil, fmt.Errorf("listen UDP %s: %w: %w", laddr, ErrUnexpectedConnType, closeErr)
	}

	return conn, nil
}

// setSocketOpts configures Spark2-required socket options: SO_REUSEPORT so
// multiple interfaces can share the multicast port, IP_PKTINFO for
// interface/destination metadata on receive, and SO_BINDTODEVICE to scope
// the socket to one interface.
func setSocketOpts(c syscall.RawConn, ifName string) error {
	var sockErr error

	err := c.Control(func(fd uintptr) {
		//nolint:gosec // G115: fd uintptr->int is safe; kernel FDs are always small positive integers.
		sockErr = applySockOpts(int(fd), ifName)
	})
	if err != nil {
		return fmt.Errorf("raw conn control: %w", err)
	}

	return sockErr
}

func applySockOpts(fd int, ifName string) error {
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fmt.Errorf("set SO_REUSEADDR: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, 1); err != nil {
		return fmt.Errorf("set SO_REUSEPORT: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_PKTINFO, 1); err != nil {
		return fmt.Errorf("set IP_PKTINFO: %w", err)
	}
	if ifName != "" {
		if err := unix.SetsockoptString(fd, unix.SOL_SOCKET, unix.SO_BINDTODEVICE, ifName); err != nil {
			return fmt.Errorf("set SO_BINDTODEVICE(%s): %w", ifName, err)
		}
	}
	return nil
}

// joinMulticastGroup adds membership in MulticastGroupV4 on the given
// interface index.
func joinMulticastGroup(conn *net.UDPConn, ifIndex int) error {
	sc, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("syscall conn: %w", err)
	}

	var sockErr error
	err = sc.Control(func(fd uintptr) {
		mreq := &unix.IPMreqn{
			Multiaddr: [4]byte(MulticastGroupV4.As4()),
			Ifindex:   int32(ifIndex),
		}
		//nolint:gosec // G115: fd uintptr->int is safe; kernel FDs are always small positive integers.
		sockErr = unix.SetsockoptIPMreqn(int(fd), unix.IPPROTO_IP, unix.IP_ADD_MEMBERSHIP, mreq)
	})
	if err != nil {
		return fmt.Errorf("syscall control: %w", err)
	}
	if sockErr != nil {
		return fmt.Errorf("IP_ADD_MEMBERSHIP: %w", sockErr)
	}
	return nil
}

// parseMeta extracts transport metadata from the source address and
// out-of-band ancillary data (IP_PKTINFO).
func parseMeta(src *net.UDPAddr, oob []byte) PacketMeta {
	meta := PacketMeta{}

	if src != nil {
		srcAddr, ok := netip.AddrFromSlice(src.IP)
		if ok {
			meta.SrcAddr = srcAddr.Unmap()
		}
	}

	msgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return meta
	}

	for i := range msgs {
		if msgs[i].Header.Level == unix.IPPROTO_IP && msgs[i].Header.Type == unix.IP_PKTINFO {
			parsePktInfoMessage(msgs[i].Data, &meta)
		}
	}

	return meta
}

// parsePktInfoMessage extracts the receiving interface index from an
// IP_PKTINFO control message (struct in_pktinfo).
func parsePktInfoMessage(data []byte, meta *PacketMeta) {
	const pktInfoSize = 12
	if len(data) < pktInfoSize {
		return
	}
	ifIdx := uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16 | uint32(data[3])<<24
	meta.IfIndex = int(ifIdx)
}
