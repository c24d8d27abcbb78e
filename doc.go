// Package ringbuff is a fixed-capacity ring buffer and the small set of
// packages built around it.
//
// # Layout
//
//   - pkg/ring: the Ring[T] engine. Fixed capacity chosen at construction,
//     no allocation after New, FIFO order, overwrite-oldest on PushBackEvict,
//     in-place Retain/RetainMut and a restartable Iterator that detects
//     structural changes.
//   - pkg/buffer: a goroutine-safe Buffer[T] on top of Ring with overflow
//     policies (DropOldest, DropNewest, Block), drop callbacks, always-on
//     Statistics and optional Prometheus metrics.
//   - pkg/window: a sliding window of timestamped samples bounded by count
//     and age, with summary statistics.
//   - errors: classified errors (transient, invalid, fatal) and the sentinels
//     returned by the ring and buffer.
//   - metric: Prometheus registry wrapper, core ringwatch metrics and the
//     HTTP server exposing them.
//   - config: layered JSON/YAML configuration with environment overrides.
//   - cmd/ringwatch: reads samples, buffers them, keeps a sliding window and
//     reports summaries.
//
// # Quick start
//
//	r, err := ring.New[int](3)
//	if err != nil {
//		return err
//	}
//	for i := range 5 {
//		r.PushBack(i) // 0 and 1 are overwritten
//	}
//	v, _ := r.Pop() // 2
//
// The Ring itself is not safe for concurrent use; wrap it in a buffer.Buffer
// or guard it with a mutex.
//
// # Running ringwatch
//
//	go build -o bin/ringwatch ./cmd/ringwatch
//	./bin/ringwatch --log-format=text
//	seq 1 100 | RINGWATCH_SAMPLER_SOURCE=stdin ./bin/ringwatch --config ringwatch.yaml
//
// Metrics are served on :9090/metrics unless metrics.enabled is false.
package ringbuff
