// Package sparkmetrics exposes the daemon's Prometheus counters: Spark2
// neighbor/packet counters and the FIB façade's route gauge.
package sparkmetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace        = "sparkd"
	subsystemSpark2  = "spark2"
	subsystemFib     = "fib"
)

// Label names.
const (
	labelInterface = "interface"
	labelNeighbor  = "neighbor"
	labelState     = "state"
	labelReason    = "reason"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Spark2/FIB Metrics
// -------------------------------------------------------------------------

// Collector holds all sparkd Prometheus metrics. It implements
// spark2.Metrics directly so it can be wired into spark2.WithEngineMetrics
// without an adapter.
type Collector struct {
	// NeighborStateTransitions counts Spark2 FSM transitions per
	// (interface, neighbor, new state) (spec.md §6).
	NeighborStateTransitions *prometheus.CounterVec

	// PacketsDropped counts decode/validation/gate failures per
	// (interface, reason) (spec.md §7 "dropped silently, logged, and
	// counted").
	PacketsDropped *prometheus.CounterVec

	// HellosSent / HellosReceived count per-interface hello traffic.
	HellosSent     *prometheus.CounterVec
	HellosReceived *prometheus.CounterVec

	// NumRoutes mirrors the FIB façade's fibagent.num_of_routes counter
	// (spec.md §4.2 getCounters) as a Prometheus gauge.
	NumRoutes prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered against reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.NeighborStateTransitions,
		c.PacketsDropped,
		c.HellosSent,
		c.HellosReceived,
		c.NumRoutes,
	)

	return c
}

func newMetrics() *Collector {
	ifaceNeighborState := []string{labelInterface, labelNeighbor, labelState}
	ifaceReason := []string{labelInterface, labelReason}
	iface := []string{labelInterface}

	return &Collector{
		NeighborStateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpark2,
			Name:      "neighbor_state_transitions_total",
			Help:      "Total Spark2 neighbor FSM state transitions.",
		}, ifaceNeighborState),

		PacketsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpark2,
			Name:      "packets_dropped_total",
			Help:      "Total Spark2 packets dropped, labeled by reason.",
		}, ifaceReason),

		HellosSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpark2,
			Name:      "hellos_sent_total",
			Help:      "Total Spark2 hello packets transmitted per interface.",
		}, iface),

		HellosReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystemSpark2,
			Name:      "hellos_received_total",
			Help:      "Total Spark2 hello packets received per interface.",
		}, iface),

		NumRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystemFib,
			Name:      "num_of_routes",
			Help:      "Number of routes currently programmed by the FIB facade.",
		}),
	}
}

// -------------------------------------------------------------------------
// spark2.Metrics implementation
// -------------------------------------------------------------------------

// NeighborStateChange implements spark2.Metrics.
func (c *Collector) NeighborStateChange(ifName, remoteNodeName, newState string) {
	c.NeighborStateTransitions.WithLabelValues(ifName, remoteNodeName, newState).Inc()
}

// PacketDropped implements spark2.Metrics.
func (c *Collector) PacketDropped(ifName, reason string) {
	c.PacketsDropped.WithLabelValues(ifName, reason).Inc()
}

// HelloSent implements spark2.Metrics.
func (c *Collector) HelloSent(ifName string) {
	c.HellosSent.WithLabelValues(ifName).Inc()
}

// HelloReceived implements spark2.Metrics.
func (c *Collector) HelloReceived(ifName string) {
	c.HellosReceived.WithLabelValues(ifName).Inc()
}

// -------------------------------------------------------------------------
// FIB counters
// -------------------------------------------------------------------------

// SetNumRoutes reports the FIB façade's current route count
// (fib.Facade.GetCounters()["fibagent.num_of_routes"]).
func (c *Collector) SetNumRoutes(n int64) {
	c.NumRoutes.Set(float64(n))
}
