package metric

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ringbuff/errors"
)

// gathered reports whether the registry exposes a family with the given name.
func gathered(t *testing.T, registry *MetricsRegistry, name string) bool {
	t.Helper()
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()

	assert.NotNil(t, registry)
	assert.NotNil(t, registry.PrometheusRegistry())
	assert.NotNil(t, registry.CoreMetrics())
	assert.True(t, gathered(t, registry, "go_goroutines"), "runtime collectors should be registered")
}

func TestMetricsRegistry_RegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_counter",
		Help: "A test counter",
	})

	err := registry.RegisterCounter("test-component", "test_counter", counter)
	require.NoError(t, err)
	counter.Inc()

	assert.True(t, gathered(t, registry, "test_counter"))
}

func TestMetricsRegistry_RegisterGauge(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_gauge",
		Help: "A test gauge",
	})

	require.NoError(t, registry.RegisterGauge("test-component", "test_gauge", gauge))
	gauge.Set(42)

	assert.True(t, gathered(t, registry, "test_gauge"))
}

func TestMetricsRegistry_RegisterHistogram(t *testing.T) {
	registry := NewMetricsRegistry()

	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_histogram",
		Help:    "A test histogram",
		Buckets: prometheus.DefBuckets,
	})

	require.NoError(t, registry.RegisterHistogram("test-component", "test_histogram", histogram))
	histogram.Observe(0.5)

	assert.True(t, gathered(t, registry, "test_histogram"))
}

func TestMetricsRegistry_RegisterVecs(t *testing.T) {
	registry := NewMetricsRegistry()

	counters := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_counter_vec",
		Help: "A test counter vec",
	}, []string{"kind"})
	gauges := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "test_gauge_vec",
		Help: "A test gauge vec",
	}, []string{"kind"})

	require.NoError(t, registry.RegisterCounterVec("test-component", "counters", counters))
	require.NoError(t, registry.RegisterGaugeVec("test-component", "gauges", gauges))
	counters.WithLabelValues("a").Inc()
	gauges.WithLabelValues("a").Set(1)

	assert.True(t, gathered(t, registry, "test_counter_vec"))
	assert.True(t, gathered(t, registry, "test_gauge_vec"))
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	t.Run("same key", func(t *testing.T) {
		registry := NewMetricsRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_key", Help: "dup"})
		other := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_key_other", Help: "dup"})

		require.NoError(t, registry.RegisterCounter("component", "dup", counter))

		err := registry.RegisterCounter("component", "dup", other)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.Contains(t, err.Error(), "duplicate metric registration")
	})

	t.Run("prometheus conflict", func(t *testing.T) {
		registry := NewMetricsRegistry()
		counter1 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})
		counter2 := prometheus.NewCounter(prometheus.CounterOpts{Name: "duplicate_counter", Help: "First counter"})

		require.NoError(t, registry.RegisterCounter("component1", "duplicate_counter", counter1))

		err := registry.RegisterCounter("component2", "duplicate_counter", counter2)
		require.Error(t, err)
		assert.True(t, errors.IsInvalid(err))
		assert.Contains(t, err.Error(), "prometheus conflict")
	})
}

func TestMetricsRegistry_UnregisterMetric(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "unregister_counter",
		Help: "A counter to unregister",
	})

	require.NoError(t, registry.RegisterCounter("test-component", "unregister_counter", counter))
	assert.True(t, gathered(t, registry, "unregister_counter"))

	assert.True(t, registry.Unregister("test-component", "unregister_counter"))
	assert.False(t, gathered(t, registry, "unregister_counter"))

	assert.False(t, registry.Unregister("test-component", "unregister_counter"),
		"second unregister should report nothing removed")

	// The key is free again.
	require.NoError(t, registry.RegisterCounter("test-component", "unregister_counter", counter))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	numGoroutines := 10

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			counter := prometheus.NewCounter(prometheus.CounterOpts{
				Name: fmt.Sprintf("concurrent_counter_%d", id),
				Help: "A concurrent counter",
			})

			err := registry.RegisterCounter("concurrent-component",
				fmt.Sprintf("concurrent_counter_%d", id), counter)
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	metricFamilies, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	counterCount := 0
	for _, mf := range metricFamilies {
		if strings.HasPrefix(mf.GetName(), "concurrent_counter_") {
			counterCount++
		}
	}

	assert.Equal(t, numGoroutines, counterCount,
		"All concurrent counters should be registered")
}

func TestMetricsRegistrar_Interface(t *testing.T) {
	var registrar MetricsRegistrar = NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "interface_counter",
		Help: "Counter registered through interface",
	})

	require.NoError(t, registrar.RegisterCounter("interface-component", "interface_counter", counter))
}
