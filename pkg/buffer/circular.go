package buffer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/ringbuff/errors"
	"github.com/c360/ringbuff/pkg/ring"
)

// circularBuffer guards a ring.Ring with a mutex and applies the overflow policy.
type circularBuffer[T any] struct {
	mu      sync.RWMutex
	ring    *ring.Ring[T]
	stats   *Statistics    // ALWAYS initialized for observability
	metrics *bufferMetrics // Optional Prometheus metrics
	opts    *bufferOptions[T]
	logger  *slog.Logger

	// For Block policy
	notEmpty *sync.Cond
	notFull  *sync.Cond
	closed   bool
}

// newCircularBuffer creates a new circular buffer instance.
// Returns an error for capacity <= 0 or if metrics registration fails when requested.
func newCircularBuffer[T any](capacity int, opts *bufferOptions[T]) (*circularBuffer[T], error) {
	r, err := ring.New[T](capacity)
	if err != nil {
		return nil, err
	}

	var metrics *bufferMetrics
	if opts.metricsReg != nil && opts.metricsPrefix != "" {
		metrics, err = newBufferMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.WrapTransient(err, "buffer", "newCircularBuffer", "metrics registration")
		}
	}

	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}

	cb := &circularBuffer[T]{
		ring:    r,
		stats:   NewStatistics(),
		metrics: metrics,
		opts:    opts,
		logger:  logger.With("component", "buffer", "capacity", capacity),
	}

	cb.notEmpty = sync.NewCond(&cb.mu)
	cb.notFull = sync.NewCond(&cb.mu)

	return cb, nil
}

// Write adds an item to the buffer according to the overflow policy.
func (cb *circularBuffer[T]) Write(item T) error {
	cb.mu.Lock()

	if cb.closed {
		cb.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write", "buffer closed")
	}

	if cb.ring.IsFull() {
		switch cb.opts.overflowPolicy {
		case DropNewest:
			cb.recordRejected()
			cb.mu.Unlock()
			cb.notifyDrop(item)
			return nil

		case Block:
			cb.recordBlocked()
			for cb.ring.IsFull() && !cb.closed {
				cb.notFull.Wait()
			}
			if cb.closed {
				cb.mu.Unlock()
				return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "Write",
					"buffer closed during blocking wait")
			}
		}
	}

	dropped, evicted := cb.push(item)
	cb.mu.Unlock()

	if evicted {
		cb.notifyDrop(dropped)
	}
	return nil
}

// push appends under the lock. For DropOldest on a full ring the oldest item is
// evicted and returned.
func (cb *circularBuffer[T]) push(item T) (T, bool) {
	dropped, evicted := cb.ring.PushBackEvict(item)
	cb.recordWrite(evicted)
	cb.notEmpty.Signal()
	return dropped, evicted
}

// The record helpers keep Statistics and the optional metrics in step. They
// run with cb.mu held, read-locked only for recordPeek.

func (cb *circularBuffer[T]) recordWrite(evicted bool) {
	size := cb.ring.Len()
	cb.stats.recordWrite(size)
	if evicted {
		cb.stats.recordEvicted()
	}
	if m := cb.metrics; m != nil {
		m.writes.Inc()
		if evicted {
			m.evicted.Inc()
		}
		m.updateSize(size, cb.ring.Cap())
	}
}

func (cb *circularBuffer[T]) recordRead(n int) {
	size := cb.ring.Len()
	cb.stats.recordRead(n, size)
	if m := cb.metrics; m != nil {
		m.reads.Add(float64(n))
		m.updateSize(size, cb.ring.Cap())
	}
}

func (cb *circularBuffer[T]) recordPeek() {
	cb.stats.recordPeek()
	if m := cb.metrics; m != nil {
		m.peeks.Inc()
	}
}

func (cb *circularBuffer[T]) recordRejected() {
	cb.stats.recordRejected()
	if m := cb.metrics; m != nil {
		m.rejected.Inc()
	}
}

func (cb *circularBuffer[T]) recordRemoved(n int) {
	size := cb.ring.Len()
	cb.stats.recordRemoved(n, size)
	if m := cb.metrics; m != nil {
		m.removed.Add(float64(n))
		m.updateSize(size, cb.ring.Cap())
	}
}

func (cb *circularBuffer[T]) recordCleared(n int) {
	cb.stats.recordCleared(n)
	if m := cb.metrics; m != nil {
		m.cleared.Add(float64(n))
		m.updateSize(0, cb.ring.Cap())
	}
}

func (cb *circularBuffer[T]) recordBlocked() {
	cb.stats.recordBlocked()
	if m := cb.metrics; m != nil {
		m.blocked.Inc()
	}
}

// notifyDrop runs the drop callback. It must be called without cb.mu held so
// the callback may use the buffer.
func (cb *circularBuffer[T]) notifyDrop(items ...T) {
	cb.logger.Debug("Buffer dropped items",
		"policy", cb.opts.overflowPolicy.String(),
		"count", len(items))

	if cb.opts.dropCallback == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			cb.logger.Warn("Drop callback panicked", "panic", r)
		}
	}()
	for _, item := range items {
		cb.opts.dropCallback(item)
	}
}

// Read retrieves and removes one item from the buffer.
func (cb *circularBuffer[T]) Read() (T, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	item, err := cb.ring.Pop()
	if err != nil {
		return item, false
	}

	cb.recordRead(1)
	cb.notFull.Signal()

	return item, true
}

// ReadBatch retrieves and removes up to max items from the buffer.
func (cb *circularBuffer[T]) ReadBatch(max int) []T {
	if max <= 0 {
		return nil
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	readCount := min(max, cb.ring.Len())
	if readCount == 0 {
		return nil
	}

	result := make([]T, 0, readCount)
	for range readCount {
		item, err := cb.ring.Pop()
		if err != nil {
			break
		}
		result = append(result, item)
	}

	cb.recordRead(len(result))
	cb.notFull.Broadcast()

	return result
}

// Peek retrieves one item without removing it from the buffer.
func (cb *circularBuffer[T]) Peek() (T, bool) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	item, err := cb.ring.Peek()
	if err != nil {
		return item, false
	}

	cb.recordPeek()

	return item, true
}

// Get returns the item at logical position i without removing it.
func (cb *circularBuffer[T]) Get(i int) (T, error) {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.ring.Get(i)
}

// Retain filters the buffer in place. keep runs with the buffer locked and
// must not call back into it.
func (cb *circularBuffer[T]) Retain(keep func(T) bool) int {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	before := cb.ring.Len()
	cb.ring.Retain(keep)
	removed := before - cb.ring.Len()
	if removed == 0 {
		return 0
	}

	cb.recordRemoved(removed)
	cb.notFull.Broadcast()

	return removed
}

// Snapshot copies the buffered items, oldest first.
func (cb *circularBuffer[T]) Snapshot() []T {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.ring.AppendTo(make([]T, 0, cb.ring.Len()))
}

// Size returns the current number of items in the buffer.
func (cb *circularBuffer[T]) Size() int {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.ring.Len()
}

// Capacity returns the maximum number of items the buffer can hold.
func (cb *circularBuffer[T]) Capacity() int {
	return cb.ring.Cap() // immutable, no lock needed
}

// IsFull returns true if the buffer is at maximum capacity.
func (cb *circularBuffer[T]) IsFull() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.ring.IsFull()
}

// IsEmpty returns true if the buffer contains no items.
func (cb *circularBuffer[T]) IsEmpty() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.ring.IsEmpty()
}

// Clear removes all items from the buffer. They are counted as Cleared and,
// after the lock is released, passed to the drop callback if one is set.
func (cb *circularBuffer[T]) Clear() {
	cb.mu.Lock()

	n := cb.ring.Len()
	var dropped []T
	if cb.opts.dropCallback != nil && n > 0 {
		dropped = cb.ring.AppendTo(make([]T, 0, n))
	}

	cb.ring.Clear()
	if n > 0 {
		cb.recordCleared(n)
	}

	cb.notFull.Broadcast()
	cb.mu.Unlock()

	if len(dropped) > 0 {
		cb.notifyDrop(dropped...)
	}
}

// Stats returns buffer statistics (always available for observability).
func (cb *circularBuffer[T]) Stats() *Statistics {
	return cb.stats
}

// Close shuts down the buffer and releases resources.
func (cb *circularBuffer[T]) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return nil
	}

	cb.closed = true

	cb.notEmpty.Broadcast()
	cb.notFull.Broadcast()

	return nil
}

// WriteWithTimeout attempts to write an item with a timeout when using Block policy.
func (cb *circularBuffer[T]) WriteWithTimeout(item T, timeout time.Duration) error {
	if cb.opts.overflowPolicy != Block {
		return cb.Write(item)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return cb.WriteWithContext(ctx, item)
}

// WriteWithContext attempts to write an item with context cancellation when using Block policy.
func (cb *circularBuffer[T]) WriteWithContext(ctx context.Context, item T) error {
	if cb.opts.overflowPolicy != Block {
		return cb.Write(item)
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "WriteWithContext", "buffer closed")
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if cb.ring.IsFull() {
		cb.recordBlocked()
	}

	// Wake the Wait below on cancellation. Taking cb.mu before broadcasting
	// means the wakeup cannot land between the ctx check and Wait.
	stop := context.AfterFunc(ctx, func() {
		cb.mu.Lock()
		cb.notFull.Broadcast()
		cb.mu.Unlock()
	})
	defer stop()

	for cb.ring.IsFull() && !cb.closed {
		if err := ctx.Err(); err != nil {
			return err
		}
		cb.notFull.Wait()
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if cb.closed {
		return errors.WrapInvalid(errors.ErrAlreadyStopped, "Buffer", "WriteWithContext", "buffer closed during wait")
	}

	cb.push(item)

	return nil
}
