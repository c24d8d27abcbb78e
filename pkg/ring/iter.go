package ring

import (
	"iter"

	"github.com/c360/ringbuff/errors"
)

// Iterator walks a snapshot of the ring, oldest to newest, without consuming it.
// It stops and reports ErrConcurrentModification if the ring is mutated while
// the iteration is in progress.
type Iterator[T any] struct {
	r   *Ring[T]
	gen uint64
	n   int
	pos int
	err error
}

// Iter returns an iterator positioned before the oldest element.
func (r *Ring[T]) Iter() Iterator[T] {
	return Iterator[T]{r: r, gen: r.gen, n: r.count}
}

// Next returns the next element. The second result is false once the
// snapshot is exhausted or the ring has changed underneath the iterator.
func (it *Iterator[T]) Next() (T, bool) {
	var zero T
	if it.err != nil || it.pos >= it.n {
		return zero, false
	}
	if it.r.gen != it.gen {
		it.err = errors.ErrConcurrentModification
		return zero, false
	}

	v := it.r.slots[(it.r.head+it.pos)%len(it.r.slots)].value
	it.pos++
	return v, true
}

// Remaining returns how many elements Next will still yield if the ring is
// left alone.
func (it *Iterator[T]) Remaining() int {
	if it.err != nil {
		return 0
	}
	return it.n - it.pos
}

// Err returns ErrConcurrentModification if iteration was cut short.
func (it *Iterator[T]) Err() error {
	return it.err
}

// Reset restarts the iterator against the ring's current contents.
func (it *Iterator[T]) Reset() {
	*it = it.r.Iter()
}

// All returns a range-over-func sequence of (logical index, element) pairs,
// oldest first. Mutating the ring from the loop body panics with
// ErrConcurrentModification.
func (r *Ring[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		gen, n := r.gen, r.count
		for i := 0; i < n; i++ {
			if r.gen != gen {
				panic(errors.ErrConcurrentModification)
			}
			if !yield(i, r.slots[(r.head+i)%len(r.slots)].value) {
				return
			}
		}
	}
}

// Backward is All in newest-to-oldest order.
func (r *Ring[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		gen, n := r.gen, r.count
		for i := n - 1; i >= 0; i-- {
			if r.gen != gen {
				panic(errors.ErrConcurrentModification)
			}
			if !yield(i, r.slots[(r.head+i)%len(r.slots)].value) {
				return
			}
		}
	}
}
