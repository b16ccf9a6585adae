package fib_test

import (
	"sync"
	"testing"
	"time"

	"github.com/openr-go/sparkd/internal/fib"
)

func TestObserverRegistryNotifiesAllSubscribers(t *testing.T) {
	t.Parallel()

	registry := fib.NewObserverRegistry(testLogger())

	var mu sync.Mutex
	var gotA, gotB []fib.NeighborChange

	idA := registry.Register(func(c fib.NeighborChange) {
		mu.Lock()
		defer mu.Unlock()
		gotA = append(gotA, c)
	})
	idB := registry.Register(func(c fib.NeighborChange) {
		mu.Lock()
		defer mu.Unlock()
		gotB = append(gotB, c)
	})
	defer registry.Unregister(idA)
	defer registry.Unregister(idB)

	change := fib.NeighborChange{Kind: fib.NeighborAdded, IfName: "eth0", RemoteNodeName: "node-b"}
	registry.Notify(change)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(gotA) == 1 && len(gotB) == 1
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gotA) != 1 || gotA[0].RemoteNodeName != "node-b" {
		t.Errorf("subscriber A received %+v, want one NeighborChange for node-b", gotA)
	}
	if len(gotB) != 1 || gotB[0].RemoteNodeName != "node-b" {
		t.Errorf("subscriber B received %+v, want one NeighborChange for node-b", gotB)
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	t.Parallel()

	registry := fib.NewObserverRegistry(testLogger())

	var mu sync.Mutex
	count := 0
	id := registry.Register(func(fib.NeighborChange) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})

	registry.Notify(fib.NeighborChange{Kind: fib.NeighborAdded})
	time.Sleep(20 * time.Millisecond)

	registry.Unregister(id)
	registry.Notify(fib.NeighborChange{Kind: fib.NeighborAdded})
	time.Sleep(20 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("callback invoked %d times, want exactly 1 (before unregister)", count)
	}
}

// TestPanickingCallbackIsEvictedNotPropagated verifies a subscriber whose
// callback panics is silently evicted rather than bringing down the
// registry or other subscribers.
func TestPanickingCallbackIsEvictedNotPropagated(t *testing.T) {
	t.Parallel()

	registry := fib.NewObserverRegistry(testLogger())

	panicID := registry.Register(func(fib.NeighborChange) {
		panic("boom")
	})
	defer registry.Unregister(panicID)

	var mu sync.Mutex
	survivorCount := 0
	survivorID := registry.Register(func(fib.NeighborChange) {
		mu.Lock()
		defer mu.Unlock()
		survivorCount++
	})
	defer registry.Unregister(survivorID)

	registry.Notify(fib.NeighborChange{Kind: fib.NeighborAdded})
	registry.Notify(fib.NeighborChange{Kind: fib.NeighborAdded})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := survivorCount == 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if survivorCount != 2 {
		t.Errorf("surviving subscriber received %d notifications, want 2", survivorCount)
	}
}

func TestSendNeighborDownInfoForcesRemovedKind(t *testing.T) {
	t.Parallel()

	registry := fib.NewObserverRegistry(testLogger())

	var mu sync.Mutex
	var got []fib.NeighborChange
	id := registry.Register(func(c fib.NeighborChange) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, c)
	})
	defer registry.Unregister(id)

	registry.SendNeighborDownInfo([]fib.NeighborChange{
		{Kind: fib.NeighborAdded, RemoteNodeName: "node-a"},
		{Kind: fib.NeighborAdded, RemoteNodeName: "node-b"},
	})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(got) == 2
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Fatalf("received %d notifications, want 2", len(got))
	}
	for _, c := range got {
		if c.Kind != fib.NeighborRemoved {
			t.Errorf("notification for %s has Kind=%v, want NeighborRemoved", c.RemoteNodeName, c.Kind)
		}
	}
}
