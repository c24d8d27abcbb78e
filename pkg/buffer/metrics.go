package buffer

import (
	"github.com/c360/ringbuff/metric"
	"github.com/prometheus/client_golang/prometheus"
)

// bufferMetrics mirrors Statistics as Prometheus series.
type bufferMetrics struct {
	writes   prometheus.Counter
	reads    prometheus.Counter
	peeks    prometheus.Counter
	evicted  prometheus.Counter
	rejected prometheus.Counter
	removed  prometheus.Counter
	cleared  prometheus.Counter
	blocked  prometheus.Counter

	size        prometheus.Gauge
	utilization prometheus.Gauge
}

func bufferCounter(prefix, name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   metric.Namespace,
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

func bufferGauge(prefix, name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   metric.Namespace,
		Subsystem:   "buffer",
		Name:        name,
		ConstLabels: prometheus.Labels{"component": prefix},
		Help:        help,
	})
}

// newBufferMetrics creates and registers buffer metrics with the provided registry.
func newBufferMetrics(registry *metric.MetricsRegistry, prefix string) (*bufferMetrics, error) {
	m := &bufferMetrics{
		writes:      bufferCounter(prefix, "writes_total", "Items accepted into the buffer"),
		reads:       bufferCounter(prefix, "reads_total", "Items read from the buffer"),
		peeks:       bufferCounter(prefix, "peeks_total", "Successful peeks"),
		evicted:     bufferCounter(prefix, "evicted_total", "Buffered items overwritten by drop_oldest"),
		rejected:    bufferCounter(prefix, "rejected_total", "Writes refused by drop_newest"),
		removed:     bufferCounter(prefix, "removed_total", "Items filtered out by retain"),
		cleared:     bufferCounter(prefix, "cleared_total", "Items discarded by clear"),
		blocked:     bufferCounter(prefix, "blocked_total", "Block-policy writes that waited for room"),
		size:        bufferGauge(prefix, "size", "Current number of items in buffer"),
		utilization: bufferGauge(prefix, "utilization", "Buffer utilization as a fraction of capacity"),
	}

	counters := []struct {
		name string
		c    prometheus.Counter
	}{
		{"buffer_writes", m.writes},
		{"buffer_reads", m.reads},
		{"buffer_peeks", m.peeks},
		{"buffer_evicted", m.evicted},
		{"buffer_rejected", m.rejected},
		{"buffer_removed", m.removed},
		{"buffer_cleared", m.cleared},
		{"buffer_blocked", m.blocked},
	}
	for _, c := range counters {
		if err := registry.RegisterCounter(prefix, c.name, c.c); err != nil {
			return nil, err
		}
	}
	if err := registry.RegisterGauge(prefix, "buffer_size", m.size); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "buffer_utilization", m.utilization); err != nil {
		return nil, err
	}

	return m, nil
}

// updateSize sets the current buffer size and utilization.
func (m *bufferMetrics) updateSize(size, capacity int) {
	m.size.Set(float64(size))
	m.utilization.Set(float64(size) / float64(capacity))
}
