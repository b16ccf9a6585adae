package spark2

import (
	"math/rand/v2"
	"time"
)

// applyJitter reduces interval by a random 0-25%, the same desynchronization
// technique the teacher's BFD implementation uses on its Tx timer (RFC 5880
// Section 6.8.7, internal/bfd/session.go ApplyJitter) to avoid lockstep
// hello emission between neighbors on a shared multicast segment.
func applyJitter(interval time.Duration) time.Duration {
	if interval <= 0 {
		return interval
	}
	jitterPercent := rand.IntN(26) //nolint:gosec // jitter is not security sensitive
	reduction := time.Duration(int64(interval) * int64(jitterPercent) / 100)
	return interval - reduction
}

// helloPeriod returns the interval at which an interface should emit
// hellos: the accelerated fast-init period while no neighbor on that
// interface has reached ESTABLISHED, otherwise the steady-state period.
func helloPeriod(cfg Config, fastInit bool) time.Duration {
	if fastInit && cfg.IncreaseHelloInterval {
		return cfg.FastInitKeepAliveTime
	}
	return cfg.KeepAliveTime
}
