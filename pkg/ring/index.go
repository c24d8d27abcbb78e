package ring

import "github.com/c360/ringbuff/errors"

// next returns the physical slot after i.
func (r *Ring[T]) next(i int) int {
	return (i + 1) % len(r.slots)
}

// previous returns the physical slot before i.
func (r *Ring[T]) previous(i int) int {
	return (i - 1 + len(r.slots)) % len(r.slots)
}

// toAbsolute maps logical position i (0 = oldest) to its physical slot.
func (r *Ring[T]) toAbsolute(i int) (int, error) {
	if i < 0 || i >= r.count {
		return 0, errors.ErrIndexOutOfRange
	}
	return (r.head + i) % len(r.slots), nil
}

// Newest returns the most recently pushed element.
func (r *Ring[T]) Newest() (T, error) {
	if r.count == 0 {
		var zero T
		return zero, errors.ErrEmptyBuffer
	}
	return r.slots[r.previous(r.tail)].value, nil
}
