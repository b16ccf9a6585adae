// Package netio provides the Spark2 Packet I/O Provider: raw socket
// abstractions for multicast discovery and unicast handshake/heartbeat
// traffic (spec.md §2 "Packet I/O Provider").
//
// Linux-specific implementation uses golang.org/x/sys/unix for multicast
// group membership and IP_PKTINFO metadata extraction. A SimulatedConn
// (simulated.go) provides a deterministic, privilege-free substitute for
// tests.
package netio
