// Package metric provides the Prometheus registry and HTTP endpoint for ringwatch.
//
// A MetricsRegistry owns a private prometheus.Registry. On construction it
// registers the core pipeline metrics (Metrics) together with the Go runtime
// and process collectors. Components register their own collectors through
// the MetricsRegistrar interface; pkg/buffer does this when built with
// buffer.WithMetrics.
//
// Registration is keyed by component and metric name. Registering the same key
// twice, or a collector Prometheus considers a duplicate, returns an error
// classified as invalid (see the errors package).
//
// # Basic Usage
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        slog.Error("Metrics server failed", "error", err)
//	    }
//	}()
//	defer server.Stop()
//
//	registry.CoreMetrics().RecordSample("random")
//
// The server also answers /health with 200 OK and serves a small index page at /.
// All exported metric names start with the "ringbuff" namespace.
package metric
