// Package ifcache implements the Interface Cache: a bidirectional
// name/index map plus an atomic loopback index, shared between the Spark2
// engine (for if-index resolution) and the FIB façade (for nexthop
// resolution) (spec.md §4.3).
package ifcache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Link is one entry of the kernel link table.
type Link struct {
	Index    int
	Name     string
	Loopback bool
}

// LinkProvider enumerates the kernel's current link table. The concrete
// implementation talks to the netlink transport; tests substitute a fake
// table.
type LinkProvider interface {
	GetAllLinks(ctx context.Context) ([]Link, error)
}

// Cache is the Interface Cache (spec.md §4.3): two mappings (name->index,
// index->name) plus an atomic loopback index. Refresh is lazy — any lookup
// miss triggers a full re-enumeration. Entries are overwritten, never
// deleted, so stale entries survive a provider hiccup (grounded on the
// original's NetlinkFibHandler::initializeInterfaceCache: "we don't clear
// cache, instead override entries").
type Cache struct {
	provider LinkProvider

	mu        sync.RWMutex
	byName    map[string]int
	byIndex   map[int]string
	loopback  atomic.Int64 // holds an int; -1 sentinel means "unknown"
	refreshMu sync.Mutex
}

// New creates a Cache backed by provider. The cache starts empty; the
// first lookup miss triggers a refresh.
func New(provider LinkProvider) *Cache {
	c := &Cache{
		provider: provider,
		byName:   make(map[string]int),
		byIndex:  make(map[int]string),
	}
	c.loopback.Store(-1)
	return c
}

// IndexOf resolves ifName to its kernel index, refreshing from the
// provider on a miss.
func (c *Cache) IndexOf(ctx context.Context, ifName string) (int, error) {
	c.mu.RLock()
	idx, ok := c.byName[ifName]
	c.mu.RUnlock()
	if ok {
		return idx, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return 0, err
	}

	c.mu.RLock()
	idx, ok = c.byName[ifName]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("ifcache: interface %q not found", ifName)
	}
	return idx, nil
}

// NameOf resolves ifIndex to its interface name, refreshing from the
// provider on a miss.
func (c *Cache) NameOf(ctx context.Context, ifIndex int) (string, error) {
	c.mu.RLock()
	name, ok := c.byIndex[ifIndex]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	if err := c.Refresh(ctx); err != nil {
		return "", err
	}

	c.mu.RLock()
	name, ok = c.byIndex[ifIndex]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("ifcache: interface index %d not found", ifIndex)
	}
	return name, nil
}

// LoopbackIndex returns the cached loopback interface index, refreshing
// once if it has never been observed.
func (c *Cache) LoopbackIndex(ctx context.Context) (int, error) {
	if idx := c.loopback.Load(); idx >= 0 {
		return int(idx), nil
	}
	if err := c.Refresh(ctx); err != nil {
		return 0, err
	}
	idx := c.loopback.Load()
	if idx < 0 {
		return 0, fmt.Errorf("ifcache: no loopback interface observed")
	}
	return int(idx), nil
}

// Refresh re-enumerates the kernel link table and overwrites cache
// entries. Concurrent refreshes are serialized; readers are never blocked
// against each other, only against a refresh in flight (spec.md §5 "many
// concurrent readers; exclusive writer during refresh... refreshes are
// serialized").
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	links, err := c.provider.GetAllLinks(ctx)
	if err != nil {
		return fmt.Errorf("ifcache: refresh: %w", err)
	}

	c.mu.Lock()
	for _, l := range links {
		c.byName[l.Name] = l.Index
		c.byIndex[l.Index] = l.Name
		if l.Loopback {
			c.loopback.Store(int64(l.Index))
		}
	}
	c.mu.Unlock()
	return nil
}
