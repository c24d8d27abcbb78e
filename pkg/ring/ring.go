package ring

import (
	"fmt"
	"strings"

	"github.com/c360/ringbuff/errors"
)

// slot holds at most one element. occupied distinguishes an empty slot from a
// slot holding the zero value of T.
type slot[T any] struct {
	value    T
	occupied bool
}

// Ring is a fixed-capacity FIFO that overwrites its oldest element when full.
// Ring is not safe for concurrent use; see pkg/buffer for a synchronized wrapper.
type Ring[T any] struct {
	slots []slot[T]
	head  int    // physical index of the oldest live element
	tail  int    // physical index of the next write
	count int    // live elements, 0 <= count <= len(slots)
	gen   uint64 // bumped on every cursor mutation, checked by iterators
}

// New creates an empty ring holding at most capacity elements.
// Capacity is fixed for the lifetime of the ring.
func New[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 {
		return nil, errors.WrapInvalid(errors.ErrInvalidCapacity, "Ring", "New", "validate capacity")
	}
	return &Ring[T]{
		slots: make([]slot[T], capacity),
	}, nil
}

// PushBack appends v as the newest element. If the ring is full the oldest
// element is evicted first. PushBack never fails.
func (r *Ring[T]) PushBack(v T) {
	r.PushBackEvict(v)
}

// PushBackEvict is PushBack that also reports the element evicted to make room,
// if any.
func (r *Ring[T]) PushBackEvict(v T) (evicted T, ok bool) {
	if r.count == len(r.slots) {
		// Full: tail == head, so the write below lands on the evicted slot.
		evicted, ok = r.slots[r.head].value, true
		r.head = r.next(r.head)
	} else {
		r.count++
	}

	r.slots[r.tail] = slot[T]{value: v, occupied: true}
	r.tail = r.next(r.tail)
	r.gen++

	return evicted, ok
}

// Pop removes and returns the oldest element.
// It returns ErrEmptyBuffer and leaves the ring untouched when empty.
func (r *Ring[T]) Pop() (T, error) {
	if r.count == 0 {
		var zero T
		return zero, errors.ErrEmptyBuffer
	}

	v := r.slots[r.head].value
	r.slots[r.head] = slot[T]{}
	r.head = r.next(r.head)
	r.count--
	r.gen++

	return v, nil
}

// Peek returns the oldest element without removing it.
func (r *Ring[T]) Peek() (T, error) {
	if r.count == 0 {
		var zero T
		return zero, errors.ErrEmptyBuffer
	}
	return r.slots[r.head].value, nil
}

// Get returns the element at logical position i, where 0 is the oldest.
func (r *Ring[T]) Get(i int) (T, error) {
	p, err := r.toAbsolute(i)
	if err != nil {
		var zero T
		return zero, err
	}
	return r.slots[p].value, nil
}

// GetMut returns a pointer to the element at logical position i. The pointer
// refers into the ring's storage and is only meaningful until the next
// PushBack, Pop, Retain or Clear.
func (r *Ring[T]) GetMut(i int) (*T, error) {
	p, err := r.toAbsolute(i)
	if err != nil {
		return nil, err
	}
	return &r.slots[p].value, nil
}

// Clear removes every element and empties every slot.
func (r *Ring[T]) Clear() {
	clear(r.slots)
	r.head = 0
	r.tail = 0
	r.count = 0
	r.gen++
}

// Len returns the number of live elements.
func (r *Ring[T]) Len() int { return r.count }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.slots) }

// IsEmpty reports whether the ring holds no elements.
func (r *Ring[T]) IsEmpty() bool { return r.count == 0 }

// IsFull reports whether the next PushBack will evict.
func (r *Ring[T]) IsFull() bool { return r.count == len(r.slots) }

// Slice copies the live elements, oldest first, into a new slice.
func (r *Ring[T]) Slice() []T {
	return r.AppendTo(make([]T, 0, r.count))
}

// AppendTo appends the live elements, oldest first, to dst and returns the
// extended slice. It does not allocate when dst has room for Len() elements.
func (r *Ring[T]) AppendTo(dst []T) []T {
	for i := 0; i < r.count; i++ {
		dst = append(dst, r.slots[(r.head+i)%len(r.slots)].value)
	}
	return dst
}

// String renders cursors and contents for debugging, for example
// "ring.Ring[cap=4 len=2 head=1 tail=3][101 102]".
func (r *Ring[T]) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "ring.Ring[cap=%d len=%d head=%d tail=%d][", len(r.slots), r.count, r.head, r.tail)
	for i := 0; i < r.count; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprint(&sb, r.slots[(r.head+i)%len(r.slots)].value)
	}
	sb.WriteByte(']')
	return sb.String()
}
