package fib

import (
	"log/slog"
	"net/netip"
	"sync"
	"sync/atomic"
)

// NeighborChangeKind mirrors the Spark2 engine's lifecycle events as
// re-exported through the FIB façade (spec.md §4.2
// registerForNeighborChanged).
type NeighborChangeKind int

const (
	NeighborAdded NeighborChangeKind = iota
	NeighborRemoved
)

// NeighborChange is delivered to every registered subscriber on each
// Spark2 neighbor lifecycle transition that the façade re-exports.
type NeighborChange struct {
	Kind           NeighborChangeKind
	IfName         string
	RemoteNodeName string
	Area           string
	TransportV4    netip.Addr
}

// NeighborChangeCallback is invoked on the subscriber's own event context,
// never synchronously on the caller (spec.md §4.2 "callbacks are invoked
// on the caller's event context", §5 "callbacks to them are dispatched
// into their own loop — never executed synchronously on the caller").
type NeighborChangeCallback func(NeighborChange)

// subscriber owns a private inbox goroutine that drains into callback, so
// a slow or panicking callback cannot block the observer registry's
// fanout or other subscribers (teacher: manager.go RunDispatch's
// select-default drop on a full public channel, generalized to N
// independent per-subscriber channels).
type subscriber struct {
	id       uint64
	inbox    chan NeighborChange
	callback NeighborChangeCallback
	broken   atomic.Bool
	done     chan struct{}
}

// ObserverRegistry is the FIB façade's neighbor-change fanout (spec.md
// §4.2 "Observer registry"). The mutex guards only subscription-list
// mutation; callback invocation happens on each subscriber's own
// goroutine, never under the registry's lock.
type ObserverRegistry struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
	logger *slog.Logger
}

// NewObserverRegistry creates an empty registry.
func NewObserverRegistry(logger *slog.Logger) *ObserverRegistry {
	return &ObserverRegistry{
		subs:   make(map[uint64]*subscriber),
		logger: logger.With(slog.String("component", "fib.observers")),
	}
}

// Register adds cb as a subscriber and returns an id usable with
// Unregister. The subscriber's inbox goroutine starts immediately.
func (r *ObserverRegistry) Register(cb NeighborChangeCallback) uint64 {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	s := &subscriber{
		id:       id,
		inbox:    make(chan NeighborChange, 64),
		callback: cb,
		done:     make(chan struct{}),
	}
	r.subs[id] = s
	r.mu.Unlock()

	go r.runSubscriber(s)
	return id
}

// Unregister removes a subscriber by id, allowing its inbox goroutine to
// drain and exit.
func (r *ObserverRegistry) Unregister(id uint64) {
	r.mu.Lock()
	s, ok := r.subs[id]
	if ok {
		delete(r.subs, id)
	}
	r.mu.Unlock()

	if ok {
		close(s.inbox)
		<-s.done
	}
}

func (r *ObserverRegistry) runSubscriber(s *subscriber) {
	defer close(s.done)
	for change := range s.inbox {
		r.invoke(s, change)
		if s.broken.Load() {
			r.evict(s.id)
			return
		}
	}
}

// invoke calls the subscriber's callback, recovering from a panic and
// marking the subscriber broken (spec.md §7 "Observer callback failures
// are caught, logged, and used to evict the subscription — never
// propagated").
func (r *ObserverRegistry) invoke(s *subscriber, change NeighborChange) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("observer callback panicked, evicting subscriber",
				slog.Uint64("subscriber", s.id),
				slog.Any("panic", rec),
			)
			s.broken.Store(true)
		}
	}()
	s.callback(change)
}

func (r *ObserverRegistry) evict(id uint64) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Notify fans change out to every live subscriber's inbox without
// blocking; a full inbox drops the event and logs, per the teacher's
// RunDispatch convention.
func (r *ObserverRegistry) Notify(change NeighborChange) {
	r.mu.Lock()
	subs := make([]*subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.Unlock()

	for _, s := range subs {
		select {
		case s.inbox <- change:
		default:
			r.logger.Warn("subscriber inbox full, dropping neighbor change",
				slog.Uint64("subscriber", s.id),
				slog.String("interface", change.IfName),
				slog.String("neighbor", change.RemoteNodeName),
			)
		}
	}
}

// SendNeighborDownInfo injects a synthetic "these neighbors are gone"
// notification to all subscribers (spec.md §4.2 sendNeighborDownInfo). An
// empty removed list is a no-op: there is no change to deliver (spec.md §9
// Open Question decision).
func (r *ObserverRegistry) SendNeighborDownInfo(removed []NeighborChange) {
	for _, nc := range removed {
		nc.Kind = NeighborRemoved
		r.Notify(nc)
	}
}
