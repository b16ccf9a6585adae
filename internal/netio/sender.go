//go:build linux

package netio

import (
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"sync"

	"github.com/openr-go/sparkd/internal/spark2msg"
)

// UDPSender sends Spark2 datagrams: multicast hellos on a tracked
// interface, or unicast handshake/heartbeat traffic to a resolved
// neighbor transport address (spec.md §3).
type UDPSender struct {
	conn   *net.UDPConn
	logger *slog.Logger
	mu     sync.Mutex
	closed bool
}

// NewUDPSender creates a sender bound to localAddr:srcPort.
func NewUDPSender(localAddr netip.Addr, srcPort uint16, logger *slog.Logger) (*UDPSender, error) {
	laddr := net.UDPAddrFromAddrPort(netip.AddrPortFrom(localAddr, srcPort))

	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("create spark2 sender %s: %w", laddr, err)
	}

	return &UDPSender{
		conn: conn,
		logger: logger.With(
			slog.String("component", "netio.sender"),
			slog.String("local", localAddr.String()),
		),
	}, nil
}

// SendTo sends buf to dst.
func (s *UDPSender) SendTo(buf []byte, dst netip.AddrPort) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("send to %s: %w", dst, ErrSocketClosed)
	}
	s.mu.Unlock()

	if _, err := s.conn.WriteToUDP(buf, net.UDPAddrFromAddrPort(dst)); err != nil {
		return fmt.Errorf("send spark2 packet to %s: %w", dst, err)
	}
	return nil
}

// SendMulticast sends buf to the Spark2 discovery multicast group.
func (s *UDPSender) SendMulticast(buf []byte) error {
	return s.SendTo(buf, netip.AddrPortFrom(MulticastGroupV4, MulticastPort))
}

// Close closes the underlying UDP connection.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close sender socket: %w", err)
	}
	return nil
}

// HelloSender fans out spark2.Engine hello emission across one UDPSender
// per tracked interface, satisfying spark2.Sender.
type HelloSender struct {
	mu      sync.RWMutex
	senders map[string]*UDPSender
	logger  *slog.Logger
}

// NewHelloSender creates an empty HelloSender; use Register to add
// per-interface senders as UpdateInterfaceDb tracks them.
func NewHelloSender(logger *slog.Logger) *HelloSender {
	return &HelloSender{
		senders: make(map[string]*UDPSender),
		logger:  logger.With(slog.String("component", "netio.hellosender")),
	}
}

// Register associates ifName with sender. Replaces any existing sender for
// the same name without closing it (the caller owns lifecycle).
func (h *HelloSender) Register(ifName string, sender *UDPSender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.senders[ifName] = sender
}

// Unregister removes ifName's sender mapping.
func (h *HelloSender) Unregister(ifName string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.senders, ifName)
}

// SendHello encodes env and multicasts it on ifName's registered sender.
func (h *HelloSender) SendHello(ifName string, env spark2msg.Envelope) error {
	h.mu.RLock()
	sender, ok := h.senders[ifName]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("hello sender: no sender registered for %s", ifName)
	}

	raw, err := EncodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("hello sender: %w", err)
	}
	return sender.SendMulticast(raw)
}

// SendHandshake encodes env and unicasts it to dst on the well-known
// Spark2 unicast port, satisfying spark2.Sender (spec.md §3 "unicast for
// heartbeat/handshake").
func (h *HelloSender) SendHandshake(ifName string, dst netip.Addr, env spark2msg.Envelope) error {
	h.mu.RLock()
	sender, ok := h.senders[ifName]
	h.mu.RUnlock()
	if !ok {
		return fmt.Errorf("hello sender: no sender registered for %s", ifName)
	}

	raw, err := EncodeEnvelope(env)
	if err != nil {
		return fmt.Errorf("hello sender: %w", err)
	}
	return sender.SendTo(raw, netip.AddrPortFrom(dst, UnicastPort))
}
