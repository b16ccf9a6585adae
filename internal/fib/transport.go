package fib

import (
	"context"
	"net/netip"

	"github.com/openr-go/sparkd/internal/ifcache"
)

// KernelRoute is the netlink-level route representation the Transport
// boundary deals in, after NextHop interface names have been resolved to
// indices by the Interface Cache.
type KernelRoute struct {
	ProtocolId  int
	Distance    int          // administrative distance, unknownDistance if pid is unrecognized
	Destination netip.Prefix // zero Prefix for MPLS routes
	TopLabel    uint32       // zero for unicast routes
	IsMpls      bool
	NextHops    []KernelNextHop
}

// KernelNextHop is a nexthop after interface resolution.
type KernelNextHop struct {
	GatewayAddr netip.Addr
	IfIndex     int
	Mpls        *MplsAction
	Weight      int
}

// Transport is the assumed kernel netlink boundary (spec.md §1 Non-goals:
// "The kernel netlink transport itself (assumed to expose addRoute,
// delRoute, syncRoutes, getAllLinks, and a neighbor-update subscription)").
// The façade depends only on this interface; a concrete implementation is
// out of this repo's scope, same as the teacher's own BFD sessions assume
// an injected PacketSender rather than owning raw sockets directly.
type Transport interface {
	AddRoute(ctx context.Context, route KernelRoute) error
	DeleteRoute(ctx context.Context, protocolId int, destination netip.Prefix) error
	DeleteMplsRoute(ctx context.Context, protocolId int, topLabel uint32) error
	SyncRoutes(ctx context.Context, protocolId int, routes []KernelRoute) error
	SyncMplsRoutes(ctx context.Context, protocolId int, routes []KernelRoute) error
	GetRoutes(ctx context.Context, protocolId int) ([]KernelRoute, error)
	GetMplsRoutes(ctx context.Context, protocolId int) ([]KernelRoute, error)

	ifcache.LinkProvider
}
