// Package buffer provides a thread-safe circular buffer with configurable overflow
// policies, always-on statistics and optional Prometheus metrics.
//
// # Overview
//
// CircularBuffer guards a pkg/ring Ring with a sync.RWMutex and decides what a
// Write does when the ring is full. The ring itself is single-owner and never
// allocates after construction; this package adds locking, blocking writers and
// observability on top of it.
//
// # Quick Start
//
//	buf, err := buffer.NewCircularBuffer[float64](1024)
//	if err != nil {
//		return err
//	}
//
//	_ = buf.Write(42)
//	v, ok := buf.Read()
//
// A capacity of zero or less is rejected with errors.ErrInvalidCapacity.
//
// # Overflow Policies
//
//   - DropOldest: evict the oldest item to make room (default)
//   - DropNewest: discard the item being written
//   - Block: Write waits for a reader to free a slot
//
// With Block, WriteWithContext and WriteWithTimeout bound the wait:
//
//	buf, _ := buffer.NewCircularBuffer[*Event](100,
//		buffer.WithOverflowPolicy[*Event](buffer.Block),
//	)
//
//	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
//	defer cancel()
//	err := buf.WriteWithContext(ctx, event)
//
// Under the other policies both methods behave like Write.
//
// Items dropped by either Drop policy, and items discarded by Clear, are passed to
// the WithDropCallback callback after the buffer lock has been released, so the
// callback may call back into the buffer. A panicking callback is recovered and
// logged at Warn through the WithLogger logger.
//
// # Filtering
//
// Retain removes every item the predicate rejects, keeps the rest in order and
// returns how many were removed. The predicate runs with the buffer locked and
// must not call the buffer. Removed items are counted as Removed in Statistics
// and are not reported to the drop callback.
//
// # Observability
//
// Statistics are always collected with atomic counters and are available through
// Stats(). Items leave the buffer in one of four ways and each has its own
// counter: Reads, Evicted (overwritten under DropOldest), Removed (filtered by
// Retain) and Cleared. Writes refused under DropNewest are counted as Rejected
// and never enter Writes. Drops is the sum of the counters that reach the drop
// callback.
//
// WithMetrics additionally registers matching Prometheus counters and gauges
// under the ringbuff_buffer_ prefix, labelled with the given component name.
//
// # Thread Safety
//
// All Buffer methods are safe for concurrent use. Snapshot returns a copy;
// nothing returned by the buffer aliases its storage.
package buffer
