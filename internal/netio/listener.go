package netio

import (
	"context"
	"fmt"
)

// -------------------------------------------------------------------------
// Listener — High-level Spark2 packet receive loop
// -------------------------------------------------------------------------

// Listener wraps a PacketConn and provides a context-aware receive loop for
// Spark2 datagrams.
type Listener struct {
	conn PacketConn
}

// NewListener creates a Listener from an existing PacketConn. Use
// NewMulticastListener / NewUnicastListener (rawsock_linux.go) to obtain
// the conn for real traffic, or a SimulatedConn (simulated.go) for tests.
func NewListener(conn PacketConn) *Listener {
	return &Listener{conn: conn}
}

// Recv blocks until a Spark2 datagram is received or ctx is cancelled.
// Returns the raw datagram bytes and transport metadata.
func (l *Listener) Recv(ctx context.Context) ([]byte, PacketMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, PacketMeta{}, fmt.Errorf("listener recv: %w", err)
	}

	buf := make([]byte, maxDatagramSize)
	n, meta, err := l.conn.ReadPacket(buf)
	if err != nil {
		return nil, PacketMeta{}, fmt.Errorf("listener read: %w", err)
	}
	return buf[:n], meta, nil
}

// Close closes the underlying PacketConn.
func (l *Listener) Close() error {
	if err := l.conn.Close(); err != nil {
		return fmt.Errorf("close listener: %w", err)
	}
	return nil
}

// maxDatagramSize bounds a single Spark2 envelope (spec.md §1 Non-goals:
// "IP fragmentation handling (messages fit in one UDP datagram)").
const maxDatagramSize = 8192
