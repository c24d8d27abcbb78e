package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the ringwatch pipeline metrics. Buffer-level counters are
// registered separately by each buffer through WithMetrics.
type Metrics struct {
	Info            *prometheus.GaugeVec
	SamplesTotal    *prometheus.CounterVec
	SamplesRejected *prometheus.CounterVec
	WindowSize      prometheus.Gauge
	WindowExpired   prometheus.Counter
	WindowStat      *prometheus.GaugeVec
	ReportDuration  prometheus.Histogram
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		Info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "info",
				Help:      "Constant 1, labelled with the running instance and its buffer configuration",
			},
			[]string{"instance", "policy", "capacity"},
		),

		SamplesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sampler",
				Name:      "samples_total",
				Help:      "Total number of samples produced",
			},
			[]string{"source"},
		),

		SamplesRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "sampler",
				Name:      "rejected_total",
				Help:      "Total number of input lines that could not be parsed as samples",
			},
			[]string{"source"},
		),

		WindowSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "window",
				Name:      "samples",
				Help:      "Number of samples currently held by the window",
			},
		),

		WindowExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "window",
				Name:      "expired_total",
				Help:      "Total number of samples expired by age",
			},
		),

		WindowStat: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "window",
				Name:      "value",
				Help:      "Latest window summary statistic (min, max, mean, last)",
			},
			[]string{"stat"},
		),

		ReportDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Subsystem: "report",
				Name:      "duration_seconds",
				Help:      "Time spent computing a window summary",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Subsystem: "errors",
				Name:      "total",
				Help:      "Total number of errors",
			},
			[]string{"component", "class"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Info,
		c.SamplesTotal,
		c.SamplesRejected,
		c.WindowSize,
		c.WindowExpired,
		c.WindowStat,
		c.ReportDuration,
		c.ErrorsTotal,
	}
}

// RecordInfo publishes the instance info series.
func (c *Metrics) RecordInfo(instance, policy, capacity string) {
	c.Info.WithLabelValues(instance, policy, capacity).Set(1)
}

// RecordSample increments the sample counter for source.
func (c *Metrics) RecordSample(source string) {
	c.SamplesTotal.WithLabelValues(source).Inc()
}

// RecordRejected increments the rejected-input counter for source.
func (c *Metrics) RecordRejected(source string) {
	c.SamplesRejected.WithLabelValues(source).Inc()
}

// RecordWindow updates the window size and adds expired samples.
func (c *Metrics) RecordWindow(size, expired int) {
	c.WindowSize.Set(float64(size))
	if expired > 0 {
		c.WindowExpired.Add(float64(expired))
	}
}

// RecordSummary publishes the summary statistics and how long they took to compute.
func (c *Metrics) RecordSummary(minimum, maximum, mean, last float64, took time.Duration) {
	c.WindowStat.WithLabelValues("min").Set(minimum)
	c.WindowStat.WithLabelValues("max").Set(maximum)
	c.WindowStat.WithLabelValues("mean").Set(mean)
	c.WindowStat.WithLabelValues("last").Set(last)
	c.ReportDuration.Observe(took.Seconds())
}

// RecordError increments error counter
func (c *Metrics) RecordError(component, class string) {
	c.ErrorsTotal.WithLabelValues(component, class).Inc()
}
