// Package ring implements a fixed-capacity, allocation-free FIFO ring buffer
// that evicts its oldest element on overflow.
//
// # Overview
//
// A Ring owns a single backing array of slots sized at construction. Writes
// wrap from the end of the array to the beginning; when every slot is live, a
// write first evicts the oldest element. After New returns, no operation
// allocates.
//
//	r, err := ring.New[int](4)
//	if err != nil {
//		return err
//	}
//
//	for v := 100; v <= 104; v++ {
//		r.PushBack(v) // 100 is evicted by the fifth push
//	}
//
//	v, _ := r.Pop() // 101
//
// # Cursors
//
// The ring tracks three values: head (physical slot of the oldest element),
// tail (physical slot of the next write) and count. Logical position i, where
// 0 is the oldest element, lives in physical slot (head+i) mod Cap().
// tail always equals (head+count) mod Cap().
//
// # Errors
//
// Fallible operations return sentinels from the errors package:
//
//   - New with capacity <= 0: ErrInvalidCapacity (wrapped with context)
//   - Pop, Peek, Newest on an empty ring: ErrEmptyBuffer
//   - Get, GetMut with i >= Len(): ErrIndexOutOfRange
//
// PushBack never fails.
//
// # Retain
//
// Retain and RetainMut filter the ring in place. The predicate runs once per
// element, oldest to newest; rejected slots are emptied, then survivors are
// swapped forward so they occupy a contiguous window starting at head. Order
// is preserved, head does not move, and nothing is allocated.
//
// # Iteration
//
// Iter, All and Backward read a snapshot of the current length without
// consuming elements. Every mutation bumps an internal generation counter;
// an Iterator that observes a new generation stops and reports
// ErrConcurrentModification from Err, while the range-over-func forms panic
// with it.
//
// # Thread Safety
//
// Ring performs no locking. Share it across goroutines only behind external
// synchronization, such as buffer.NewCircularBuffer.
package ring
