package fib

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/openr-go/sparkd/internal/ifcache"
)

// Facade is the FIB programming façade (spec.md §4.2): it serves route
// programming requests from multiple clients, translates typed route
// descriptions into kernel operations isolated by protocol ID, and fans
// out neighbor-change notifications to registered observers.
//
// The façade itself is stateless with respect to route content (spec.md
// §3 "the facade is stateless with respect to route content and reads
// back via netlink cache"); all durable state lives behind Transport.
type Facade struct {
	transport Transport
	ifaces    *ifcache.Cache
	observers *ObserverRegistry
	logger    *slog.Logger

	startedAt time.Time

	mu     sync.Mutex
	routes map[routeKey]struct{}
}

// routeKey identifies one programmed route (unicast or MPLS) independent
// of its next hops, so repeated adds/replaces of the same destination
// don't inflate the route count.
type routeKey struct {
	pid      int
	isMpls   bool
	dest     string
	topLabel uint32
}

func unicastKey(pid int, dest UnicastRoute) routeKey {
	return routeKey{pid: pid, dest: dest.Destination.String()}
}

func mplsKey(pid int, topLabel uint32) routeKey {
	return routeKey{pid: pid, isMpls: true, topLabel: topLabel}
}

// NewFacade constructs a Facade over transport, sharing ifaces with the
// Spark2 engine (spec.md §2 "Kernel link events -> Interface Cache ->
// both Spark2 ... and FIB").
func NewFacade(transport Transport, ifaces *ifcache.Cache, logger *slog.Logger) *Facade {
	return &Facade{
		transport: transport,
		ifaces:    ifaces,
		observers: NewObserverRegistry(logger),
		logger:    logger.With(slog.String("component", "fib.facade")),
		startedAt: time.Now(),
		routes:    make(map[routeKey]struct{}),
	}
}

func (f *Facade) trackRoute(key routeKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[key] = struct{}{}
}

func (f *Facade) untrackRoute(key routeKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.routes, key)
}

// untrackRoutesForPid clears every tracked route (of the given MPLS-ness)
// belonging to pid before a sync replaces the set wholesale.
func (f *Facade) untrackRoutesForPid(pid int, isMpls bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.routes {
		if k.pid == pid && k.isMpls == isMpls {
			delete(f.routes, k)
		}
	}
}

// -------------------------------------------------------------------------
// Unicast routes
// -------------------------------------------------------------------------

// AddUnicastRoute adds or replaces route under clientId's protocol ID
// (spec.md §4.2 addUnicastRoute: "idempotent add/replace ... Concurrent
// adds for the same prefix under the same client act as last-writer-wins").
func (f *Facade) AddUnicastRoute(ctx context.Context, clientId ClientId, route UnicastRoute) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}

	kr, err := f.translateUnicast(ctx, pid, route)
	if err != nil {
		return err
	}

	if err := f.transport.AddRoute(ctx, kr); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrNetlinkFailure, err)
	}
	f.trackRoute(unicastKey(pid, route))
	return nil
}

// DeleteUnicastRoute removes destination from clientId's route table.
func (f *Facade) DeleteUnicastRoute(ctx context.Context, clientId ClientId, destination UnicastRoute) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}
	if err := f.transport.DeleteRoute(ctx, pid, destination.Destination); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrNetlinkFailure, err)
	}
	f.untrackRoute(unicastKey(pid, destination))
	return nil
}

// AddUnicastRoutes applies routes sequentially; the first failure aborts
// and is surfaced, leaving already-applied operations in place (spec.md
// §4.2 "best-effort sequential", §9 batch-semantics decision).
func (f *Facade) AddUnicastRoutes(ctx context.Context, clientId ClientId, routes []UnicastRoute) error {
	for i, r := range routes {
		if err := f.AddUnicastRoute(ctx, clientId, r); err != nil {
			return fmt.Errorf("fib: batch add aborted at index %d: %w", i, err)
		}
	}
	return nil
}

// DeleteUnicastRoutes is the batched, best-effort-sequential counterpart
// to DeleteUnicastRoute.
func (f *Facade) DeleteUnicastRoutes(ctx context.Context, clientId ClientId, routes []UnicastRoute) error {
	for i, r := range routes {
		if err := f.DeleteUnicastRoute(ctx, clientId, r); err != nil {
			return fmt.Errorf("fib: batch delete aborted at index %d: %w", i, err)
		}
	}
	return nil
}

// SyncFib replaces the entire unicast route set for clientId atomically
// from the kernel's standpoint (spec.md §4.2 syncFib).
func (f *Facade) SyncFib(ctx context.Context, clientId ClientId, routes []UnicastRoute) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}

	krs := make([]KernelRoute, 0, len(routes))
	for _, r := range routes {
		kr, terr := f.translateUnicast(ctx, pid, r)
		if terr != nil {
			return terr
		}
		krs = append(krs, kr)
	}

	if err := f.transport.SyncRoutes(ctx, pid, krs); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrSyncTimeout, err)
	}
	f.untrackRoutesForPid(pid, false)
	for _, r := range routes {
		f.trackRoute(unicastKey(pid, r))
	}
	return nil
}

// GetRouteTableByClient returns all unicast routes whose protocol ID
// matches clientId. On any read error, it returns an empty list rather
// than raising (spec.md §4.2: "readers are observability paths").
func (f *Facade) GetRouteTableByClient(ctx context.Context, clientId ClientId) []UnicastRoute {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return nil
	}
	krs, err := f.transport.GetRoutes(ctx, pid)
	if err != nil {
		f.logger.Warn("get route table failed", slog.String("error", err.Error()))
		return nil
	}

	out := make([]UnicastRoute, 0, len(krs))
	for _, kr := range krs {
		out = append(out, UnicastRoute{Destination: kr.Destination, NextHops: f.untranslateNextHops(ctx, kr.NextHops)})
	}
	return out
}

// -------------------------------------------------------------------------
// MPLS routes
// -------------------------------------------------------------------------

// AddMplsRoute adds or replaces an MPLS route under clientId's protocol ID.
func (f *Facade) AddMplsRoute(ctx context.Context, clientId ClientId, route MplsRoute) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}

	kr, err := f.translateMpls(ctx, pid, route)
	if err != nil {
		return err
	}

	if err := f.transport.AddRoute(ctx, kr); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrNetlinkFailure, err)
	}
	f.trackRoute(mplsKey(pid, route.TopLabel))
	return nil
}

// DeleteMplsRoute removes topLabel from clientId's MPLS route table.
func (f *Facade) DeleteMplsRoute(ctx context.Context, clientId ClientId, topLabel uint32) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}
	if err := f.transport.DeleteMplsRoute(ctx, pid, topLabel); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrNetlinkFailure, err)
	}
	f.untrackRoute(mplsKey(pid, topLabel))
	return nil
}

// AddMplsRoutes is the batched, best-effort-sequential counterpart to
// AddMplsRoute.
func (f *Facade) AddMplsRoutes(ctx context.Context, clientId ClientId, routes []MplsRoute) error {
	for i, r := range routes {
		if err := f.AddMplsRoute(ctx, clientId, r); err != nil {
			return fmt.Errorf("fib: batch add aborted at index %d: %w", i, err)
		}
	}
	return nil
}

// DeleteMplsRoutes is the batched, best-effort-sequential counterpart to
// DeleteMplsRoute.
func (f *Facade) DeleteMplsRoutes(ctx context.Context, clientId ClientId, topLabels []uint32) error {
	for i, l := range topLabels {
		if err := f.DeleteMplsRoute(ctx, clientId, l); err != nil {
			return fmt.Errorf("fib: batch delete aborted at index %d: %w", i, err)
		}
	}
	return nil
}

// SyncMplsFib replaces the entire MPLS route set for clientId atomically.
func (f *Facade) SyncMplsFib(ctx context.Context, clientId ClientId, routes []MplsRoute) error {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return err
	}

	krs := make([]KernelRoute, 0, len(routes))
	for _, r := range routes {
		kr, terr := f.translateMpls(ctx, pid, r)
		if terr != nil {
			return terr
		}
		krs = append(krs, kr)
	}

	if err := f.transport.SyncMplsRoutes(ctx, pid, krs); err != nil {
		return fmt.Errorf("fib: %w: %w", ErrSyncTimeout, err)
	}
	f.untrackRoutesForPid(pid, true)
	for _, r := range routes {
		f.trackRoute(mplsKey(pid, r.TopLabel))
	}
	return nil
}

// GetMplsRouteTableByClient returns all MPLS routes whose protocol ID
// matches clientId, or an empty list on any read error.
func (f *Facade) GetMplsRouteTableByClient(ctx context.Context, clientId ClientId) []MplsRoute {
	pid, err := ProtocolId(clientId)
	if err != nil {
		return nil
	}
	krs, err := f.transport.GetMplsRoutes(ctx, pid)
	if err != nil {
		f.logger.Warn("get MPLS route table failed", slog.String("error", err.Error()))
		return nil
	}

	out := make([]MplsRoute, 0, len(krs))
	for _, kr := range krs {
		out = append(out, MplsRoute{TopLabel: kr.TopLabel, NextHops: f.untranslateNextHops(ctx, kr.NextHops)})
	}
	return out
}

// -------------------------------------------------------------------------
// Neighbor notifications
// -------------------------------------------------------------------------

// RegisterForNeighborChanged subscribes cb to neighbor add/remove
// notifications and returns an id usable with UnregisterNeighborChanged.
func (f *Facade) RegisterForNeighborChanged(cb NeighborChangeCallback) uint64 {
	return f.observers.Register(cb)
}

// UnregisterNeighborChanged removes a subscription by id.
func (f *Facade) UnregisterNeighborChanged(id uint64) {
	f.observers.Unregister(id)
}

// NotifyNeighborChanged is the upcall from the Spark2 engine's event
// stream into the façade's observer fanout.
func (f *Facade) NotifyNeighborChanged(change NeighborChange) {
	f.observers.Notify(change)
}

// SendNeighborDownInfo injects a synthetic "these neighbors are gone"
// notification to all subscribers (spec.md §4.2).
func (f *Facade) SendNeighborDownInfo(removed []NeighborChange) {
	f.observers.SendNeighborDownInfo(removed)
}

// -------------------------------------------------------------------------
// Status & counters
// -------------------------------------------------------------------------

// GetCounters returns at minimum fibagent.num_of_routes (spec.md §4.2).
func (f *Facade) GetCounters() map[string]int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return map[string]int64{"fibagent.num_of_routes": int64(len(f.routes))}
}

// AliveSince returns the unix timestamp the façade started at.
func (f *Facade) AliveSince() int64 {
	return f.startedAt.Unix()
}

// Status enumerates the façade's coarse health state (spec.md §4.2
// getStatus).
type Status int

const StatusAlive Status = 0

// GetStatus always reports ALIVE once constructed.
func (f *Facade) GetStatus() Status { return StatusAlive }

// SwitchRunState enumerates the façade's switch-configuration state
// (spec.md §4.2 getSwitchRunState).
type SwitchRunState int

const RunStateConfigured SwitchRunState = 0

// GetSwitchRunState always reports CONFIGURED.
func (f *Facade) GetSwitchRunState() SwitchRunState { return RunStateConfigured }

// -------------------------------------------------------------------------
// Route translation (spec.md §4.2 "Route translation rules")
// -------------------------------------------------------------------------

func (f *Facade) translateUnicast(ctx context.Context, pid int, route UnicastRoute) (KernelRoute, error) {
	if err := validateProtocolId(pid); err != nil {
		return KernelRoute{}, err
	}
	nhs, err := f.translateNextHops(ctx, route.NextHops)
	if err != nil {
		return KernelRoute{}, err
	}
	return KernelRoute{ProtocolId: pid, Distance: Distance(pid), Destination: route.Destination, NextHops: nhs}, nil
}

func (f *Facade) translateMpls(ctx context.Context, pid int, route MplsRoute) (KernelRoute, error) {
	if err := validateProtocolId(pid); err != nil {
		return KernelRoute{}, err
	}
	if route.TopLabel > MaxMplsLabel {
		return KernelRoute{}, fmt.Errorf("fib: %w: top label %d exceeds %d", ErrMalformedRoute, route.TopLabel, MaxMplsLabel)
	}
	nhs, err := f.translateNextHops(ctx, route.NextHops)
	if err != nil {
		return KernelRoute{}, err
	}
	return KernelRoute{ProtocolId: pid, Distance: Distance(pid), TopLabel: route.TopLabel, IsMpls: true, NextHops: nhs}, nil
}

func (f *Facade) translateNextHops(ctx context.Context, nhs []NextHop) ([]KernelNextHop, error) {
	out := make([]KernelNextHop, 0, len(nhs))
	for _, nh := range nhs {
		kn, err := f.translateNextHop(ctx, nh)
		if err != nil {
			return nil, err
		}
		out = append(out, kn)
	}
	return out, nil
}

func (f *Facade) translateNextHop(ctx context.Context, nh NextHop) (KernelNextHop, error) {
	kn := KernelNextHop{GatewayAddr: nh.GatewayAddr, Mpls: nh.Mpls, Weight: nh.Weight}

	if nh.Mpls != nil {
		switch nh.Mpls.Kind {
		case MplsActionSwap:
			if nh.Mpls.SwapLabel == 0 {
				return KernelNextHop{}, fmt.Errorf("fib: %w: SWAP requires swapLabel", ErrMalformedRoute)
			}
		case MplsActionPush:
			if len(nh.Mpls.PushLabels) == 0 {
				return KernelNextHop{}, fmt.Errorf("fib: %w: PUSH requires pushLabels", ErrMalformedRoute)
			}
		case MplsActionPopAndLookup:
			loopIdx, err := f.ifaces.LoopbackIndex(ctx)
			if err != nil {
				return KernelNextHop{}, fmt.Errorf("fib: %w: POP_AND_LOOKUP requires loopback: %w", ErrMalformedRoute, err)
			}
			kn.IfIndex = loopIdx
			return kn, nil
		case MplsActionPHP, MplsActionNone:
			// No additional payload required.
		}
	}

	if nh.IfName != "" {
		idx, err := f.ifaces.IndexOf(ctx, nh.IfName)
		if err != nil {
			return KernelNextHop{}, fmt.Errorf("fib: %w: %s: %w", ErrUnresolvableInterface, nh.IfName, err)
		}
		kn.IfIndex = idx
	}

	return kn, nil
}

// untranslateNextHops reverses IfIndex back to IfName via the Interface
// Cache so that a route read back after syncFib/addRoute carries the same
// nexthop interface names it was constructed with (spec.md §8 round-trip
// property). An index that no longer resolves (interface since removed)
// is left with an empty IfName rather than failing the whole read.
func (f *Facade) untranslateNextHops(ctx context.Context, kns []KernelNextHop) []NextHop {
	out := make([]NextHop, 0, len(kns))
	for _, kn := range kns {
		nh := NextHop{GatewayAddr: kn.GatewayAddr, Mpls: kn.Mpls, Weight: kn.Weight}
		if kn.IfIndex != 0 {
			if name, err := f.ifaces.NameOf(ctx, kn.IfIndex); err == nil {
				nh.IfName = name
			}
		}
		out = append(out, nh)
	}
	return out
}
