package fib_test

import (
	"context"
	"errors"
	"log/slog"
	"net/netip"
	"os"
	"sync"
	"testing"

	"go.uber.org/goleak"

	"github.com/openr-go/sparkd/internal/fib"
	"github.com/openr-go/sparkd/internal/ifcache"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeTransport is an in-memory fib.Transport used to exercise the façade
// without a real kernel netlink boundary.
type fakeTransport struct {
	mu        sync.Mutex
	links     []ifcache.Link
	unicast   map[int]map[netip.Prefix]fib.KernelRoute
	mplsRoute map[int]map[uint32]fib.KernelRoute
	failNext  error
}

func newFakeTransport(links []ifcache.Link) *fakeTransport {
	return &fakeTransport{
		links:     links,
		unicast:   make(map[int]map[netip.Prefix]fib.KernelRoute),
		mplsRoute: make(map[int]map[uint32]fib.KernelRoute),
	}
}

func (f *fakeTransport) GetAllLinks(_ context.Context) ([]ifcache.Link, error) {
	return f.links, nil
}

func (f *fakeTransport) AddRoute(_ context.Context, route fib.KernelRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	if route.IsMpls {
		if f.mplsRoute[route.ProtocolId] == nil {
			f.mplsRoute[route.ProtocolId] = make(map[uint32]fib.KernelRoute)
		}
		f.mplsRoute[route.ProtocolId][route.TopLabel] = route
		return nil
	}
	if f.unicast[route.ProtocolId] == nil {
		f.unicast[route.ProtocolId] = make(map[netip.Prefix]fib.KernelRoute)
	}
	f.unicast[route.ProtocolId][route.Destination] = route
	return nil
}

func (f *fakeTransport) DeleteRoute(_ context.Context, protocolId int, destination netip.Prefix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.unicast[protocolId], destination)
	return nil
}

func (f *fakeTransport) DeleteMplsRoute(_ context.Context, protocolId int, topLabel uint32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.mplsRoute[protocolId], topLabel)
	return nil
}

func (f *fakeTransport) SyncRoutes(_ context.Context, protocolId int, routes []fib.KernelRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := make(map[netip.Prefix]fib.KernelRoute, len(routes))
	for _, r := range routes {
		table[r.Destination] = r
	}
	f.unicast[protocolId] = table
	return nil
}

func (f *fakeTransport) SyncMplsRoutes(_ context.Context, protocolId int, routes []fib.KernelRoute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := make(map[uint32]fib.KernelRoute, len(routes))
	for _, r := range routes {
		table[r.TopLabel] = r
	}
	f.mplsRoute[protocolId] = table
	return nil
}

func (f *fakeTransport) GetRoutes(_ context.Context, protocolId int) ([]fib.KernelRoute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fib.KernelRoute, 0, len(f.unicast[protocolId]))
	for _, r := range f.unicast[protocolId] {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeTransport) GetMplsRoutes(_ context.Context, protocolId int) ([]fib.KernelRoute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fib.KernelRoute, 0, len(f.mplsRoute[protocolId]))
	for _, r := range f.mplsRoute[protocolId] {
		out = append(out, r)
	}
	return out, nil
}

func newTestFacade(t *testing.T, links []ifcache.Link) (*fib.Facade, *fakeTransport) {
	t.Helper()
	transport := newFakeTransport(links)
	ifaces := ifcache.New(transport)
	return fib.NewFacade(transport, ifaces, testLogger()), transport
}

func TestAddUnicastRouteRoundTrip(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, []ifcache.Link{{Index: 2, Name: "eth0"}})
	ctx := context.Background()

	route := fib.UnicastRoute{
		Destination: netip.MustParsePrefix("10.0.0.0/24"),
		NextHops:    []fib.NextHop{{GatewayAddr: netip.MustParseAddr("10.0.0.1"), IfName: "eth0"}},
	}
	if err := facade.AddUnicastRoute(ctx, fib.ClientOpenr, route); err != nil {
		t.Fatalf("AddUnicastRoute: %v", err)
	}

	got := facade.GetRouteTableByClient(ctx, fib.ClientOpenr)
	if len(got) != 1 {
		t.Fatalf("GetRouteTableByClient returned %d routes, want 1", len(got))
	}
	if got[0].Destination != route.Destination {
		t.Errorf("Destination = %v, want %v", got[0].Destination, route.Destination)
	}
	if len(got[0].NextHops) != 1 || got[0].NextHops[0].IfName != "eth0" {
		t.Errorf("NextHops round-trip failed: %+v", got[0].NextHops)
	}

	counters := facade.GetCounters()
	if counters["fibagent.num_of_routes"] != 1 {
		t.Errorf("num_of_routes = %d, want 1", counters["fibagent.num_of_routes"])
	}
}

func TestDeleteUnicastRouteClearsCounter(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, []ifcache.Link{{Index: 2, Name: "eth0"}})
	ctx := context.Background()

	route := fib.UnicastRoute{Destination: netip.MustParsePrefix("10.0.0.0/24")}
	if err := facade.AddUnicastRoute(ctx, fib.ClientOpenr, route); err != nil {
		t.Fatalf("AddUnicastRoute: %v", err)
	}
	if err := facade.DeleteUnicastRoute(ctx, fib.ClientOpenr, route); err != nil {
		t.Fatalf("DeleteUnicastRoute: %v", err)
	}

	if n := facade.GetCounters()["fibagent.num_of_routes"]; n != 0 {
		t.Errorf("num_of_routes after delete = %d, want 0", n)
	}
	if got := facade.GetRouteTableByClient(ctx, fib.ClientOpenr); len(got) != 0 {
		t.Errorf("expected empty route table after delete, got %d entries", len(got))
	}
}

// TestAddUnicastRoutesBatchAbortsOnFirstFailure exercises the
// best-effort-sequential batch semantics: a failure on the batch's first
// element aborts before later elements run, and a route added before the
// batch stays in place.
func TestAddUnicastRoutesBatchAbortsOnFirstFailure(t *testing.T) {
	t.Parallel()

	facade, transport := newTestFacade(t, []ifcache.Link{{Index: 2, Name: "eth0"}})
	ctx := context.Background()

	routes := []fib.UnicastRoute{
		{Destination: netip.MustParsePrefix("10.0.0.0/24")},
		{Destination: netip.MustParsePrefix("10.0.1.0/24")},
		{Destination: netip.MustParsePrefix("10.0.2.0/24")},
	}

	wantErr := errors.New("simulated netlink failure")

	// Seed the first route so its survival after the aborted batch can be
	// asserted below.
	if err := facade.AddUnicastRoute(ctx, fib.ClientOpenr, routes[0]); err != nil {
		t.Fatalf("seed add: %v", err)
	}

	transport.mu.Lock()
	transport.failNext = wantErr
	transport.mu.Unlock()

	err := facade.AddUnicastRoutes(ctx, fib.ClientOpenr, routes[1:])
	if err == nil {
		t.Fatal("expected batch to abort with an error")
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("batch error = %v, want wrapping %v", err, wantErr)
	}

	got := facade.GetRouteTableByClient(ctx, fib.ClientOpenr)
	if len(got) != 1 {
		t.Fatalf("expected only the seeded route to remain after aborted batch, got %d", len(got))
	}
	if got[0].Destination != routes[0].Destination {
		t.Errorf("surviving route = %v, want %v", got[0].Destination, routes[0].Destination)
	}
}

func TestSyncFibReplacesRouteSetAtomically(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, []ifcache.Link{{Index: 2, Name: "eth0"}})
	ctx := context.Background()

	initial := []fib.UnicastRoute{
		{Destination: netip.MustParsePrefix("10.0.0.0/24")},
		{Destination: netip.MustParsePrefix("10.0.1.0/24")},
	}
	if err := facade.SyncFib(ctx, fib.ClientOpenr, initial); err != nil {
		t.Fatalf("SyncFib initial: %v", err)
	}
	if n := facade.GetCounters()["fibagent.num_of_routes"]; n != 2 {
		t.Fatalf("num_of_routes after initial sync = %d, want 2", n)
	}

	replacement := []fib.UnicastRoute{{Destination: netip.MustParsePrefix("10.0.2.0/24")}}
	if err := facade.SyncFib(ctx, fib.ClientOpenr, replacement); err != nil {
		t.Fatalf("SyncFib replacement: %v", err)
	}

	got := facade.GetRouteTableByClient(ctx, fib.ClientOpenr)
	if len(got) != 1 || got[0].Destination != replacement[0].Destination {
		t.Fatalf("route table after sync = %+v, want only %v", got, replacement[0].Destination)
	}
	if n := facade.GetCounters()["fibagent.num_of_routes"]; n != 1 {
		t.Errorf("num_of_routes after sync replacement = %d, want 1", n)
	}
}

func TestMplsRouteTopLabelValidation(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, nil)
	ctx := context.Background()

	route := fib.MplsRoute{TopLabel: fib.MaxMplsLabel + 1}
	err := facade.AddMplsRoute(ctx, fib.ClientOpenr, route)
	if !errors.Is(err, fib.ErrMalformedRoute) {
		t.Fatalf("AddMplsRoute with oversized label error = %v, want %v", err, fib.ErrMalformedRoute)
	}
}

func TestMplsPopAndLookupRequiresLoopback(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, []ifcache.Link{{Index: 2, Name: "eth0"}})
	ctx := context.Background()

	route := fib.MplsRoute{
		TopLabel: 100,
		NextHops: []fib.NextHop{{Mpls: &fib.MplsAction{Kind: fib.MplsActionPopAndLookup}}},
	}
	err := facade.AddMplsRoute(ctx, fib.ClientOpenr, route)
	if !errors.Is(err, fib.ErrMalformedRoute) {
		t.Fatalf("AddMplsRoute POP_AND_LOOKUP without loopback error = %v, want %v", err, fib.ErrMalformedRoute)
	}

	links := []ifcache.Link{{Index: 1, Name: "lo", Loopback: true}, {Index: 2, Name: "eth0"}}
	facade2, _ := newTestFacade(t, links)
	if err := facade2.AddMplsRoute(ctx, fib.ClientOpenr, route); err != nil {
		t.Fatalf("AddMplsRoute POP_AND_LOOKUP with loopback present: %v", err)
	}
}

func TestInvalidClientIdRejected(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, nil)
	ctx := context.Background()

	err := facade.AddUnicastRoute(ctx, fib.ClientId(999), fib.UnicastRoute{})
	if !errors.Is(err, fib.ErrInvalidClient) {
		t.Fatalf("AddUnicastRoute with unknown client error = %v, want %v", err, fib.ErrInvalidClient)
	}
}

func TestUnresolvableInterfaceRejected(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, nil)
	ctx := context.Background()

	route := fib.UnicastRoute{
		Destination: netip.MustParsePrefix("10.0.0.0/24"),
		NextHops:    []fib.NextHop{{IfName: "eth9"}},
	}
	err := facade.AddUnicastRoute(ctx, fib.ClientOpenr, route)
	if !errors.Is(err, fib.ErrUnresolvableInterface) {
		t.Fatalf("AddUnicastRoute with unresolvable interface error = %v, want %v", err, fib.ErrUnresolvableInterface)
	}
}

func TestGetStatusAndSwitchRunState(t *testing.T) {
	t.Parallel()

	facade, _ := newTestFacade(t, nil)
	if facade.GetStatus() != fib.StatusAlive {
		t.Errorf("GetStatus = %v, want StatusAlive", facade.GetStatus())
	}
	if facade.GetSwitchRunState() != fib.RunStateConfigured {
		t.Errorf("GetSwitchRunState = %v, want RunStateConfigured", facade.GetSwitchRunState())
	}
	if facade.AliveSince() <= 0 {
		t.Errorf("AliveSince = %d, want a positive unix timestamp", facade.AliveSince())
	}
}

func TestDistanceTable(t *testing.T) {
	t.Parallel()

	tests := map[int]int{17: 20, 99: 10, 253: 1, 7: -1}
	for pid, want := range tests {
		if got := fib.Distance(pid); got != want {
			t.Errorf("Distance(%d) = %d, want %d", pid, got, want)
		}
	}
}
