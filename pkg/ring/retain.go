package ring

// Retain keeps only the elements for which keep returns true, preserving their
// order. keep is called exactly once per element, oldest to newest, before any
// element moves. No memory is allocated.
func (r *Ring[T]) Retain(keep func(T) bool) {
	r.RetainMut(func(v *T) bool { return keep(*v) })
}

// RetainMut is Retain with a predicate that may modify an element in place
// before deciding whether to keep it.
func (r *Ring[T]) RetainMut(keep func(*T) bool) {
	n := r.count
	if n == 0 {
		return
	}

	removed := 0
	// Compaction runs even if keep panics, so the cursors stay consistent
	// with whatever was already marked.
	defer func() {
		if removed > 0 {
			r.compact(n, n-removed)
		}
	}()

	// Mark phase: empty the slot of every rejected element.
	for i := 0; i < n; i++ {
		p := (r.head + i) % len(r.slots)
		if !keep(&r.slots[p].value) {
			r.slots[p] = slot[T]{}
			removed++
		}
	}
}

// compact moves the survivors within the first n logical positions to the
// front of the window, keeping their order, then re-seats count and tail.
func (r *Ring[T]) compact(n, survivors int) {
	c := len(r.slots)
	scan := 0 // logical positions in (i, scan) are known to be empty
	for i := 0; i < survivors; i++ {
		p := (r.head + i) % c
		if r.slots[p].occupied {
			continue
		}
		if scan <= i {
			scan = i + 1
		}
		for scan < n && !r.slots[(r.head+scan)%c].occupied {
			scan++
		}
		q := (r.head + scan) % c
		r.slots[p], r.slots[q] = r.slots[q], r.slots[p]
		scan++
	}

	r.count = survivors
	r.tail = (r.head + survivors) % c
	r.gen++
}
