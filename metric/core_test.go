package metric

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoreMetrics_Initialization(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	// Vector metrics only appear in Gather once a child exists.
	core.RecordInfo("abc", "DropOldest", "64")
	core.RecordSample("random")
	core.RecordRejected("stdin")
	core.RecordWindow(3, 1)
	core.RecordSummary(1, 3, 2, 3, time.Millisecond)
	core.RecordError("sampler", "invalid")

	expected := []string{
		"ringbuff_info",
		"ringbuff_sampler_samples_total",
		"ringbuff_sampler_rejected_total",
		"ringbuff_window_samples",
		"ringbuff_window_expired_total",
		"ringbuff_window_value",
		"ringbuff_report_duration_seconds",
		"ringbuff_errors_total",
	}
	for _, name := range expected {
		assert.True(t, gathered(t, registry, name), "core metric %s should be registered", name)
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	core := NewMetrics()

	core.RecordSample("random")
	core.RecordSample("random")
	core.RecordSample("stdin")
	assert.Equal(t, 2.0, testutil.ToFloat64(core.SamplesTotal.WithLabelValues("random")))
	assert.Equal(t, 1.0, testutil.ToFloat64(core.SamplesTotal.WithLabelValues("stdin")))

	core.RecordWindow(5, 0)
	core.RecordWindow(4, 2)
	assert.Equal(t, 4.0, testutil.ToFloat64(core.WindowSize))
	assert.Equal(t, 2.0, testutil.ToFloat64(core.WindowExpired))

	core.RecordSummary(-1, 7, 2.5, 6, 10*time.Microsecond)
	assert.Equal(t, -1.0, testutil.ToFloat64(core.WindowStat.WithLabelValues("min")))
	assert.Equal(t, 7.0, testutil.ToFloat64(core.WindowStat.WithLabelValues("max")))
	assert.Equal(t, 2.5, testutil.ToFloat64(core.WindowStat.WithLabelValues("mean")))
	assert.Equal(t, 6.0, testutil.ToFloat64(core.WindowStat.WithLabelValues("last")))
	assert.Equal(t, 1, testutil.CollectAndCount(core.ReportDuration))

	core.RecordError("reporter", "transient")
	assert.Equal(t, 1.0, testutil.ToFloat64(core.ErrorsTotal.WithLabelValues("reporter", "transient")))
}

func TestCoreMetrics_InfoExposition(t *testing.T) {
	core := NewMetrics()
	core.RecordInfo("abc", "Block", "16")

	want := `
# HELP ringbuff_info Constant 1, labelled with the running instance and its buffer configuration
# TYPE ringbuff_info gauge
ringbuff_info{capacity="16",instance="abc",policy="Block"} 1
`
	require.NoError(t, testutil.CollectAndCompare(core.Info, strings.NewReader(want)))
}
