package netio

import (
	"net/netip"
	"sync"
	"time"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// SimulatedNetwork is an in-memory Spark2 transport connecting a fixed set
// of named interfaces with per-link one-way delay, used to drive
// deterministic engine tests without real sockets (spec.md §2: "Enables
// deterministic testing via a simulated provider that models per-link
// one-way delays").
type SimulatedNetwork struct {
	mu    sync.Mutex
	links map[string]*simulatedLink
}

type simulatedLink struct {
	delay  time.Duration
	conns  []*SimulatedConn
}

// NewSimulatedNetwork creates an empty simulated network.
func NewSimulatedNetwork() *SimulatedNetwork {
	return &SimulatedNetwork{links: make(map[string]*simulatedLink)}
}

// Connect creates a SimulatedConn for ifName on this network, with
// datagrams delivered to every other conn on the same ifName after delay.
func (n *SimulatedNetwork) Connect(ifName string, delay time.Duration) *SimulatedConn {
	n.mu.Lock()
	defer n.mu.Unlock()

	link, ok := n.links[ifName]
	if !ok {
		link = &simulatedLink{delay: delay}
		n.links[ifName] = link
	}

	c := &SimulatedConn{
		network: n,
		ifName:  ifName,
		inbox:   make(chan simulatedDatagram, 64),
	}
	link.conns = append(link.conns, c)
	return c
}

type simulatedDatagram struct {
	buf  []byte
	meta PacketMeta
}

// deliver fans buf out to every conn on ifName other than from, after the
// link's configured delay.
func (n *SimulatedNetwork) deliver(ifName string, from *SimulatedConn, buf []byte, mcast bool) {
	n.mu.Lock()
	link, ok := n.links[ifName]
	n.mu.Unlock()
	if !ok {
		return
	}

	cp := make([]byte, len(buf))
	copy(cp, buf)

	for _, c := range link.conns {
		if c == from {
			continue
		}
		go func(c *SimulatedConn) {
			if link.delay > 0 {
				time.Sleep(link.delay)
			}
			select {
			case c.inbox <- simulatedDatagram{buf: cp, meta: PacketMeta{SrcAddr: from.addr, IfName: ifName, Multicast: mcast}}:
			default:
			}
		}(c)
	}
}

// SimulatedConn is a PacketConn backed by a SimulatedNetwork.
type SimulatedConn struct {
	network *SimulatedNetwork
	ifName  string
	addr    netip.Addr
	inbox   chan simulatedDatagram
	closed  bool
	mu      sync.Mutex
}

// SetAddr sets the source address this conn reports on sends; useful for
// tests that assert on PacketMeta.SrcAddr.
func (c *SimulatedConn) SetAddr(addr netip.Addr) {
	c.addr = addr
}

// ReadPacket blocks until a datagram is available or the conn is closed.
func (c *SimulatedConn) ReadPacket(buf []byte) (int, PacketMeta, error) {
	dg, ok := <-c.inbox
	if !ok {
		return 0, PacketMeta{}, ErrSocketClosed
	}
	n := copy(buf, dg.buf)
	return n, dg.meta, nil
}

// WritePacket delivers buf to every other conn on the same interface.
func (c *SimulatedConn) WritePacket(buf []byte, _ netip.AddrPort) error {
	c.network.deliver(c.ifName, c, buf, false)
	return nil
}

// WriteMulticast delivers buf to every other conn on the same interface,
// tagging PacketMeta.Multicast.
func (c *SimulatedConn) WriteMulticast(buf []byte) error {
	c.network.deliver(c.ifName, c, buf, true)
	return nil
}

// Close marks the conn closed and unblocks any pending ReadPacket.
func (c *SimulatedConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.inbox)
	return nil
}

// LocalAddr returns the conn's configured address, port 0 (simulated).
func (c *SimulatedConn) LocalAddr() netip.AddrPort {
	return netip.AddrPortFrom(c.addr, 0)
}

// SimulatedSender adapts a SimulatedConn to spark2.Sender, encoding
// envelopes with the same gob codec the real transport uses.
type SimulatedSender struct {
	conns map[string]*SimulatedConn
}

// NewSimulatedSender builds a sender over the given ifName->conn map.
func NewSimulatedSender(conns map[string]*SimulatedConn) *SimulatedSender {
	return &SimulatedSender{conns: conns}
}

// SendHello encodes env and multicasts it on ifName, satisfying
// spark2.Sender.
func (s *SimulatedSender) SendHello(ifName string, env spark2msg.Envelope) error {
	raw, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	conn, ok := s.conns[ifName]
	if !ok {
		return nil
	}
	return conn.WriteMulticast(raw)
}

// SendHandshake encodes env and delivers it as a unicast datagram on
// ifName, satisfying spark2.Sender. dst is accepted for interface parity
// with the real transport but unused here: a SimulatedConn fans datagrams
// out to every other conn sharing ifName regardless of destination
// address (spec.md §2 "deterministic testing via a simulated provider").
func (s *SimulatedSender) SendHandshake(ifName string, _ netip.Addr, env spark2msg.Envelope) error {
	raw, err := EncodeEnvelope(env)
	if err != nil {
		return err
	}
	conn, ok := s.conns[ifName]
	if !ok {
		return nil
	}
	return conn.WritePacket(raw, netip.AddrPort{})
}
