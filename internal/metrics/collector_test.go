package sparkmetrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	sparkmetrics "github.com/openr-go/sparkd/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sparkmetrics.NewCollector(reg)

	if c.NeighborStateTransitions == nil {
		t.Error("NeighborStateTransitions is nil")
	}
	if c.PacketsDropped == nil {
		t.Error("PacketsDropped is nil")
	}
	if c.HellosSent == nil {
		t.Error("HellosSent is nil")
	}
	if c.HellosReceived == nil {
		t.Error("HellosReceived is nil")
	}
	if c.NumRoutes == nil {
		t.Error("NumRoutes is nil")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
}

func TestNeighborStateChange(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sparkmetrics.NewCollector(reg)

	c.NeighborStateChange("eth0", "node-b", "ESTABLISHED")
	c.NeighborStateChange("eth0", "node-b", "ESTABLISHED")

	val := counterValue(t, c.NeighborStateTransitions, "eth0", "node-b", "ESTABLISHED")
	if val != 2 {
		t.Errorf("NeighborStateTransitions = %v, want 2", val)
	}
}

func TestPacketDropped(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sparkmetrics.NewCollector(reg)

	c.PacketDropped("eth0", "decode_error")

	val := counterValue(t, c.PacketsDropped, "eth0", "decode_error")
	if val != 1 {
		t.Errorf("PacketsDropped = %v, want 1", val)
	}
}

func TestHelloCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sparkmetrics.NewCollector(reg)

	c.HelloSent("eth0")
	c.HelloSent("eth0")
	c.HelloSent("eth0")
	c.HelloReceived("eth0")

	if v := counterValue(t, c.HellosSent, "eth0"); v != 3 {
		t.Errorf("HellosSent = %v, want 3", v)
	}
	if v := counterValue(t, c.HellosReceived, "eth0"); v != 1 {
		t.Errorf("HellosReceived = %v, want 1", v)
	}
}

func TestSetNumRoutes(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := sparkmetrics.NewCollector(reg)

	c.SetNumRoutes(42)

	m := &dto.Metric{}
	if err := c.NumRoutes.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	if got := m.GetGauge().GetValue(); got != 42 {
		t.Errorf("NumRoutes = %v, want 42", got)
	}
}

// counterValue reads the current value of a CounterVec with the given labels.
func counterValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()

	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}

	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}

	return m.GetCounter().GetValue()
}
