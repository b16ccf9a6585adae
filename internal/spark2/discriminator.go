package spark2

import (
	"crypto/rand"
	"encoding/binary"
	"sync/atomic"
)

// HelloSequencer issues the monotonically increasing 64-bit sequence
// numbers a single local interface stamps on its outgoing hellos. The
// counter begins at a fresh random value on process start so that peers
// observing a *lower* subsequent value can infer the local process
// restarted (spec.md §3 "HelloSequence" / §4.1 graceful-restart detection).
//
// Adapted from the teacher's DiscriminatorAllocator (internal/bfd/
// discriminator.go), which allocates collision-free random discriminators
// across many sessions; HelloSequence only needs a random *origin* for a
// single monotonic per-interface counter, not global uniqueness, so the
// collision-retry loop is dropped in favor of a plain atomic counter seeded
// from crypto/rand.
type HelloSequencer struct {
	counter atomic.Uint64
}

// NewHelloSequencer creates a sequencer seeded with a random 64-bit origin.
func NewHelloSequencer() (*HelloSequencer, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, err
	}
	hs := &HelloSequencer{}
	hs.counter.Store(binary.BigEndian.Uint64(buf[:]))
	return hs, nil
}

// Next returns the next sequence number to stamp on an outgoing hello.
func (h *HelloSequencer) Next() uint64 {
	return h.counter.Add(1)
}

// Current returns the last sequence number issued without advancing it.
func (h *HelloSequencer) Current() uint64 {
	return h.counter.Load()
}
