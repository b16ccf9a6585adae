package spark2

import "errors"

// Sentinel errors for Spark2 engine operations. Packet-validation failures
// (spec.md §7 PacketValidationFailure) are never surfaced to callers; they
// are logged and counted only. These sentinels are for the programmatic
// surface (UpdateInterfaceDb, neighbor accessors).
var (
	// ErrInterfaceNotFound names an untracked interface. No Engine method
	// returns it; accessors report a missing entry with a false bool.
	ErrInterfaceNotFound = errors.New("spark2: interface not tracked")

	// ErrNeighborNotFound names a key with no NeighborEntry. No Engine
	// method returns it; GetNeighborState and NeighborArea report a
	// missing neighbor with a false bool.
	ErrNeighborNotFound = errors.New("spark2: neighbor not found")

	// ErrEngineClosed is returned by operations attempted after Close.
	ErrEngineClosed = errors.New("spark2: engine closed")
)
